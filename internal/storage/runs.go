package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// TrainingRun is one execution of the offline pipeline.
type TrainingRun struct {
	ID                string             `json:"id"`
	ModelID           string             `json:"model_id,omitempty"`
	Status            string             `json:"status"`
	Error             string             `json:"error,omitempty"`
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
	DatasetPath       string             `json:"dataset_path"`
	ModelPath         string             `json:"model_path"`
	Records           int                `json:"records"`
	Seed              int64              `json:"seed"`
	Trees             int                `json:"trees"`
	TestFraction      float64            `json:"test_fraction"`
	TrainRows         int                `json:"train_rows"`
	TestRows          int                `json:"test_rows"`
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	Checksum          string             `json:"checksum,omitempty"`
}

// SaveTrainingRun stores run keyed by its start time.
func (s *Store) SaveTrainingRun(run TrainingRun) error {
	if run.ID == "" {
		return fmt.Errorf("training run has no id")
	}
	return s.put(runsBucket, recordKey(run.StartedAt, run.ID), run)
}

// ListTrainingRuns returns up to limit runs, newest first. Malformed records
// are skipped.
func (s *Store) ListTrainingRuns(limit int) ([]TrainingRun, error) {
	var runs []TrainingRun
	err := s.latest(runsBucket, limit, func(v []byte) bool {
		var run TrainingRun
		if err := json.Unmarshal(v, &run); err != nil {
			return true
		}
		runs = append(runs, run)
		return true
	})
	return runs, err
}

// LatestTrainingRun returns the most recent successful run, or nil when
// there is none.
func (s *Store) LatestTrainingRun() (*TrainingRun, error) {
	var latest *TrainingRun
	err := s.latest(runsBucket, 0, func(v []byte) bool {
		var run TrainingRun
		if err := json.Unmarshal(v, &run); err != nil {
			return true
		}
		if run.Status != RunSucceeded {
			return true
		}
		latest = &run
		return false
	})
	return latest, err
}

// CountTrainingRuns returns the number of stored runs.
func (s *Store) CountTrainingRuns() (int, error) {
	return s.count(runsBucket)
}
