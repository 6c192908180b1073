package ml

import (
	"errors"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

var (
	// ErrInvalidFeatureVector is returned by the inference path for incomplete
	// or non-numeric input. It is the same value as the schema package's.
	ErrInvalidFeatureVector = schema.ErrInvalidFeatureVector
	// ErrInsufficientData is returned when a dataset cannot be split into
	// non-empty train and test partitions holding both classes.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrInvalidConfig is returned for out-of-range training parameters.
	ErrInvalidConfig = errors.New("invalid training config")
	// ErrModelLoad is returned when an artifact is missing, unreadable or
	// inconsistent with the feature schema.
	ErrModelLoad = errors.New("model load failed")
)
