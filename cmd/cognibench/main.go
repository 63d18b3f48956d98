package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/agents"
	"github.com/shashankyld/cognibench/internal/bench"
	"github.com/shashankyld/cognibench/internal/cfg"
	"github.com/shashankyld/cognibench/internal/env"
	"github.com/shashankyld/cognibench/internal/metrics"
	"github.com/shashankyld/cognibench/internal/model"
	"github.com/shashankyld/cognibench/internal/optimize"
	"github.com/shashankyld/cognibench/internal/remote"
	"github.com/shashankyld/cognibench/internal/report"
	"github.com/shashankyld/cognibench/internal/storage"
	"github.com/shashankyld/cognibench/internal/stream"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to suite config YAML (overrides CONFIG_FILE)")
		outputPath = flag.String("output", "results", "Output directory for suite reports")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	)
	flag.Parse()

	// Local .env is optional.
	_ = godotenv.Load()

	if *configPath != "" {
		os.Setenv("CONFIG_FILE", *configPath)
	}

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	levelStr := settings.LogLevel
	if *logLevel != "" {
		levelStr = *logLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	m := metrics.New()
	tracker := metrics.NewWrapper(m)
	if settings.MetricsPort != 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := ":" + strconv.Itoa(settings.MetricsPort)
			log.Info().Str("addr", addr).Msg("Serving metrics")
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	if err := runSuite(settings, tracker, *outputPath); err != nil {
		log.Fatal().Err(err).Msg("Suite failed")
	}
}

func runSuite(settings cfg.Settings, tracker bench.Tracker, outputPath string) error {
	var artifacts *storage.ArtifactStore
	if settings.PersistPath != "" {
		var err error
		artifacts, err = storage.NewArtifactStore(settings.PersistPath)
		if err != nil {
			return err
		}
	}

	var history *storage.RunStore
	if settings.DataPath != "" {
		var err error
		history, err = storage.NewRunStore(settings.DataPath)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	nTrials := settings.EnvTrials
	strategies, err := buildStrategies(settings, nTrials)
	if err != nil {
		return err
	}

	results := make([]*bench.Result, 0, len(strategies)*len(settings.Models))
	failures := make(map[string]string)

	for _, strat := range strategies {
		for _, mc := range settings.Models {
			mdl, err := buildModel(settings, mc)
			if err != nil {
				log.Error().Err(err).Str("model", mc.Name).Msg("Skipping model")
				failures[mc.Name] = err.Error()
				continue
			}

			opts := []bench.Option{bench.WithTracker(tracker)}
			if len(mc.Subjects) > 0 {
				opts = append(opts, bench.WithMultiSubject())
			}
			if artifacts != nil {
				opts = append(opts, bench.WithArtifactStore(artifacts))
			}
			harness, err := bench.New(strat, opts...)
			if err != nil {
				return err
			}

			set, err := observationsFor(settings, maxInt(1, len(mc.Subjects)))
			if err != nil {
				return err
			}

			result, err := harness.Run(mdl, set)
			if err != nil {
				// A model lacking a capability fails alone, never the suite.
				if errors.Is(err, model.ErrCapability) {
					log.Warn().Err(err).Str("model", mc.Name).Str("strategy", strat.Name()).Msg("Model incompatible with strategy")
					failures[mc.Name+"/"+strat.Name()] = err.Error()
					continue
				}
				return fmt.Errorf("run %s against %s: %w", mc.Name, strat.Name(), err)
			}
			results = append(results, result)

			if history != nil {
				rec := storage.RunRecord{
					Model:         result.Model,
					Strategy:      result.Strategy,
					Score:         result.Score.Value,
					SubjectScores: result.SubjectScores,
					Ts:            time.Now(),
				}
				if err := history.Append(rec); err != nil {
					return fmt.Errorf("record run history: %w", err)
				}
			}
		}
	}

	reporter := report.NewReporter(settings.SuiteName, results, failures, outputPath)
	return reporter.GenerateReport()
}

func buildStrategies(settings cfg.Settings, nTrials int) ([]bench.Strategy, error) {
	interactive, err := bench.NewInteractive(accuracyScore)
	if err != nil {
		return nil, err
	}
	batch, err := bench.NewBatch(accuracyScore)
	if err != nil {
		return nil, err
	}
	trainTest, err := bench.NewBatchTrainAndTest(accuracyScore, bench.SplitOptions{
		NumTrials:     nTrials,
		TrainFraction: settings.TrainFraction,
		Seed:          settings.SplitSeed,
	})
	if err != nil {
		return nil, err
	}
	return []bench.Strategy{interactive, batch, trainTest}, nil
}

func buildModel(settings cfg.Settings, mc cfg.ModelConfig) (model.Model, error) {
	ctor, err := modelConstructor(settings, mc)
	if err != nil {
		return nil, err
	}
	if len(mc.Subjects) == 0 {
		return ctor(mc.Params)
	}

	perSubject := make([]model.Params, len(mc.Subjects))
	for i, p := range mc.Subjects {
		perSubject[i] = model.Params(p)
	}
	return model.Compose(mc.Name, ctor, perSubject, model.Params(mc.Params))
}

func modelConstructor(settings cfg.Settings, mc cfg.ModelConfig) (model.Constructor, error) {
	fitCfg := optimize.Config{MaxIter: settings.FitMaxIter, Tol: settings.FitTol}
	stimDims := maxInt(1, len(settings.EnvArms)-1)

	switch mc.Kind {
	case "rw":
		return func(p model.Params) (model.Model, error) {
			return agents.NewRescorlaWagner(mc.Name, stimDims, p)
		}, nil
	case "softmax":
		return func(p model.Params) (model.Model, error) {
			return agents.NewSoftmaxBandit(mc.Name, p, fitCfg)
		}, nil
	case "linear":
		return func(p model.Params) (model.Model, error) {
			return agents.NewLeastSquares(mc.Name, p)
		}, nil
	case "remote":
		return func(p model.Params) (model.Model, error) {
			return remote.NewClient(mc.Name, settings.RemoteURL, settings.RemoteTimeout), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown model kind %q", model.ErrConfiguration, mc.Kind)
	}
}

// observationsFor supplies one observation set per evaluated model: a live
// session feed when one is configured, synthetic bandit data otherwise.
func observationsFor(settings cfg.Settings, nSubjects int) (*bench.ObservationSet, error) {
	if settings.StreamURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		return stream.NewCollector(settings.StreamURL).Collect(ctx, nSubjects)
	}
	return generateObservations(settings, nSubjects)
}

// generateObservations rolls synthetic two-armed task data out of the
// configured bandit environment, one trial record per subject and trial. The
// behavioral policy follows the presented cue, so learned models have
// structure to pick up.
func generateObservations(settings cfg.Settings, nSubjects int) (*bench.ObservationSet, error) {
	dims := maxInt(1, len(settings.EnvArms)-1)
	stimuli := make([][]float64, len(settings.EnvArms))
	for i := range stimuli {
		cue := make([]float64, dims)
		if i > 0 {
			cue[i-1] = 1
		}
		stimuli[i] = cue
	}
	pStimuli := make([]float64, len(settings.EnvArms))
	for i := range pStimuli {
		pStimuli[i] = 1 / float64(len(pStimuli))
	}

	subjects := make([]*bench.Observations, nSubjects)
	for s := 0; s < nSubjects; s++ {
		world, err := env.NewStimulusBandit(stimuli, pStimuli, settings.EnvArms, settings.EnvSeed+int64(s))
		if err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(settings.EnvSeed + int64(s)))
		obsStimuli, rewards, actions, err := world.Generate(settings.EnvTrials, func(stim []float64) (float64, error) {
			// Noisy cue-following behavior.
			if rng.Float64() < 0.1 {
				return float64(rng.Intn(2)), nil
			}
			if len(stim) > 0 && stim[0] > 0 {
				return 1, nil
			}
			return 0, nil
		})
		if err != nil {
			return nil, err
		}
		subjects[s] = &bench.Observations{Stimuli: obsStimuli, Rewards: rewards, Actions: actions}
	}

	if nSubjects == 1 {
		return bench.SingleSubject(subjects[0]), nil
	}
	return bench.MultiSubject(subjects...), nil
}

// accuracyScore is the suite's default scoring function: the fraction of
// trials where the rounded prediction matches the observed action.
func accuracyScore(actions, predictions []float64, args bench.ScoreArgs) (bench.Score, error) {
	if len(actions) != len(predictions) {
		return bench.Score{}, fmt.Errorf("have %d actions but %d predictions", len(actions), len(predictions))
	}
	threshold := 0.5
	if args != nil {
		if t, ok := args["threshold"]; ok {
			threshold = t
		}
	}

	var hits float64
	for i, p := range predictions {
		predicted := 0.0
		if p >= threshold {
			predicted = 1
		}
		if predicted == actions[i] {
			hits++
		}
	}
	return bench.Score{Value: hits / float64(len(actions)), Min: 0, Max: 1}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
