// Package report turns a suite's collected results into files on disk: a
// human-readable summary and a machine-readable JSON dump.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/bench"
)

// Reporter writes suite reports.
type Reporter struct {
	suiteName  string
	results    []*bench.Result
	failures   map[string]string
	outputPath string
}

// NewReporter builds a reporter for one suite run. failures maps model names
// to the error that kept them from producing a score.
func NewReporter(suiteName string, results []*bench.Result, failures map[string]string, outputPath string) *Reporter {
	return &Reporter{
		suiteName:  suiteName,
		results:    results,
		failures:   failures,
		outputPath: outputPath,
	}
}

// GenerateReport writes all report formats.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateJSONReport(); err != nil {
		return err
	}

	log.Info().Str("path", r.outputPath).Int("results", len(r.results)).Msg("Suite report written")
	return nil
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "suite_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "SUITE RESULTS: %s\n", r.suiteName)
	fmt.Fprintf(file, "========================\n\n")
	fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	sorted := append([]*bench.Result(nil), r.results...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Strategy != sorted[j].Strategy {
			return sorted[i].Strategy < sorted[j].Strategy
		}
		return sorted[i].Model < sorted[j].Model
	})

	fmt.Fprintf(file, "SCORES\n")
	fmt.Fprintf(file, "------\n")
	for _, res := range sorted {
		fmt.Fprintf(file, "%-24s %-22s %10.4f  [%g, %g]\n",
			res.Strategy, res.Model, res.Score.Value, res.Score.Min, res.Score.Max)
		for i, s := range res.SubjectScores {
			fmt.Fprintf(file, "    subject %-2d %32.4f\n", i, s)
		}
	}

	if len(r.failures) > 0 {
		names := make([]string, 0, len(r.failures))
		for name := range r.failures {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(file, "\nFAILED MODELS\n")
		fmt.Fprintf(file, "-------------\n")
		for _, name := range names {
			fmt.Fprintf(file, "%-24s %s\n", name, r.failures[name])
		}
	}

	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "suite_results.json")

	payload := struct {
		Suite     string           `json:"suite"`
		Generated time.Time        `json:"generated"`
		Results   []*bench.Result  `json:"results"`
		Failures  map[string]string `json:"failures,omitempty"`
	}{
		Suite:     r.suiteName,
		Generated: time.Now(),
		Results:   r.results,
		Failures:  r.failures,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write JSON report: %w", err)
	}
	return nil
}
