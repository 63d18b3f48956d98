package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const runsBucket = "runs" // Bucket name for run history records

// RunRecord is one completed harness run as kept in the history store.
type RunRecord struct {
	Model         string    `json:"model"`
	Strategy      string    `json:"strategy"`
	Score         float64   `json:"score"`
	SubjectScores []float64 `json:"subject_scores,omitempty"`
	Ts            time.Time `json:"ts"`
}

// RunStore keeps a durable history of harness runs in BoltDB, keyed by
// "model_timestamp" for efficient per-model range queries.
type RunStore struct {
	db *bbolt.DB
}

// NewRunStore opens (or creates) the run history database under dataPath.
func NewRunStore(dataPath string) (*RunStore, error) {
	dbPath := filepath.Join(dataPath, "cognibench-runs.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunStore{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append stores one run record.
func (s *RunStore) Append(rec RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal run record: %w", err)
		}

		key := fmt.Sprintf("%s_%d", rec.Model, rec.Ts.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// Runs retrieves the run history for a model within a time range, ordered by
// timestamp. The range is inclusive on both ends.
func (s *RunStore) Runs(modelName string, start, end time.Time) ([]RunRecord, error) {
	var records []RunRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		c := b.Cursor()

		prefix := []byte(modelName + "_")
		startKey := []byte(fmt.Sprintf("%s_%d", modelName, start.UnixNano()))
		endKey := []byte(fmt.Sprintf("%s_%d", modelName, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}

			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}

		return nil
	})

	return records, err
}
