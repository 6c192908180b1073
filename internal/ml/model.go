package ml

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// ModelMetadata describes how a model was trained.
type ModelMetadata struct {
	ID                string             `json:"id"`
	TrainedAt         time.Time          `json:"trained_at"`
	Config            TrainConfig        `json:"config"`
	TrainRows         int                `json:"train_rows"`
	TestRows          int                `json:"test_rows"`
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// Model is a trained forest together with the feature order it expects. It
// is not modified after training.
type Model struct {
	Features []string
	Forest   Forest
	Metadata ModelMetadata
}

// Probability returns the estimated probability of success for x.
func (m *Model) Probability(x schema.FeatureVector) float64 {
	return m.Forest.Probability(x)
}

// Predict classifies x. The label is 1 exactly when the probability is at
// least 0.5.
func (m *Model) Predict(x schema.FeatureVector) PredictionResult {
	return NewPredictionResult(m.Probability(x))
}

// Validate checks the feature list against the schema and the forest's
// structure.
func (m *Model) Validate() error {
	if !schema.MatchesNames(m.Features) {
		return fmt.Errorf("feature list %v does not match schema %v", m.Features, schema.FeatureNames())
	}
	return m.Forest.Validate()
}

// Checksum is the hex SHA-256 of the forest's compact JSON encoding.
func (m *Model) Checksum() (string, error) {
	data, err := json.Marshal(m.Forest)
	if err != nil {
		return "", fmt.Errorf("marshal forest: %w", err)
	}
	return checksum(data), nil
}

func (m *Model) accuracy(x []schema.FeatureVector, y []int) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i := range x {
		if m.Predict(x[i]).Label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Band groups probabilities for display.
type Band string

const (
	BandAtRisk     Band = "at_risk"
	BandBorderline Band = "borderline"
	BandLikely     Band = "likely"
)

// DecisionThreshold is the probability at or above which the label is 1.
const DecisionThreshold = 0.5

const likelyThreshold = 0.75

// BandFor maps a probability to its display band.
func BandFor(p float64) Band {
	switch {
	case p < DecisionThreshold:
		return BandAtRisk
	case p < likelyThreshold:
		return BandBorderline
	default:
		return BandLikely
	}
}

// PredictionResult is the outcome of one inference.
type PredictionResult struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
	Band        Band    `json:"band"`
}

// NewPredictionResult derives the label and band from p.
func NewPredictionResult(p float64) PredictionResult {
	label := 0
	if p >= DecisionThreshold {
		label = 1
	}
	return PredictionResult{Label: label, Probability: p, Band: BandFor(p)}
}
