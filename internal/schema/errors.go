package schema

import "errors"

// ErrInvalidFeatureVector is returned when prediction input is missing a
// feature, carries an unknown one, or holds a non-numeric value.
var ErrInvalidFeatureVector = errors.New("invalid feature vector")
