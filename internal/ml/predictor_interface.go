// Package ml trains and serves the student-success forest.
//
// Train fits a bagged ensemble of CART trees on a stratified split of a
// labelled dataset and SaveArtifact persists it as one JSON document. A
// Service loads that artifact once and answers predictions concurrently.
package ml

import "github.com/krnkaavya03/StuPred/internal/schema"

// Predictor is the inference surface consumed by the HTTP boundary and the
// CLI. *Service implements it.
type Predictor interface {
	// Predict classifies a complete feature vector.
	Predict(fv schema.FeatureVector) (PredictionResult, error)

	// Info describes the model behind the predictions.
	Info() ModelInfo
}

var _ Predictor = (*Service)(nil)
