// Package storage persists benchmark results. It provides the per-model
// artifact directory written after each harness run and a BoltDB-backed run
// history for later inspection.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/shashankyld/cognibench/internal/model"
)

// Artifact is the persisted result of one harness run.
type Artifact struct {
	Score       float64     `json:"score"`
	Predictions [][]float64 `json:"predictions"`
	// TestIndices records the held-out trial indices for train/test runs so
	// predictions can be re-aligned with the raw data. Nil otherwise.
	TestIndices []int `json:"test_indices,omitempty"`
}

// ArtifactStore writes run artifacts under root, one directory per model:
//
//	<root>/<model>/score                the aggregate score scalar
//	<root>/<model>/predictions          per-subject prediction arrays
//	<root>/<model>/predictions_indices  held-out indices (train/test runs)
//	<root>/<model>/model                model snapshot, best effort
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates a store rooted at the given path. The root is
// created on first save, not here.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty artifact root", model.ErrConfiguration)
	}
	return &ArtifactStore{root: root}, nil
}

// Root returns the store's base directory.
func (s *ArtifactStore) Root() string { return s.root }

// SaveRun persists one run's artifact keyed by model name. Score and
// prediction write failures propagate; a missing snapshot capability or a
// failing snapshot is logged and skipped.
func (s *ArtifactStore) SaveRun(modelName string, art Artifact, m model.Model) error {
	dir := filepath.Join(s.root, modelName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "score"), art.Score); err != nil {
		return fmt.Errorf("persist score: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "predictions"), art.Predictions); err != nil {
		return fmt.Errorf("persist predictions: %w", err)
	}
	if art.TestIndices != nil {
		if err := writeJSON(filepath.Join(dir, "predictions_indices"), art.TestIndices); err != nil {
			return fmt.Errorf("persist prediction indices: %w", err)
		}
	}

	snap, ok := m.(model.Snapshotter)
	if !ok {
		log.Debug().Str("model", modelName).Msg("Model does not support snapshots, skipping")
		return nil
	}
	if err := snap.Save(filepath.Join(dir, "model")); err != nil {
		log.Warn().Err(err).Str("model", modelName).Msg("Model snapshot failed, continuing without it")
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
