package dataset

import "errors"

var (
	// ErrInvalidCount is returned when a negative number of records is requested.
	ErrInvalidCount = errors.New("invalid record count")
	// ErrMalformedDataset is returned when a dataset file has the wrong header
	// or a row that cannot be parsed.
	ErrMalformedDataset = errors.New("malformed dataset")
)
