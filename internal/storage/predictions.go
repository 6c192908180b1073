package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Source      string               `json:"source"`
	ModelID     string               `json:"model_id"`
	Features    schema.FeatureVector `json:"features"`
	Label       int                  `json:"label"`
	Probability float64              `json:"probability"`
	Band        string               `json:"band"`
}

// SavePrediction stores record keyed by its timestamp.
func (s *Store) SavePrediction(record PredictionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("prediction record has no id")
	}
	return s.put(predictionsBucket, recordKey(record.Timestamp, record.ID), record)
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.latest(predictionsBucket, limit, func(v []byte) bool {
		var rec PredictionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return true
		}
		records = append(records, rec)
		return true
	})
	return records, err
}

// PredictionsBetween returns predictions served in [start, end], oldest
// first.
func (s *Store) PredictionsBetween(start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.between(predictionsBucket, start, end, func(v []byte) {
		var rec PredictionRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return // Skip malformed records
		}
		records = append(records, rec)
	})
	return records, err
}

// CountPredictions returns the number of stored predictions.
func (s *Store) CountPredictions() (int, error) {
	return s.count(predictionsBucket)
}
