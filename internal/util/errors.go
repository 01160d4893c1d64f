package util

import "errors"

var (
	// ErrModelNotReady means no model artifact is currently loaded. It is a
	// state, not a scoring failure: callers should train or reload rather
	// than change their input.
	ErrModelNotReady = errors.New("model not loaded")

	// ErrNoTrainingData means none of the candidate dataset paths exist.
	ErrNoTrainingData = errors.New("no training data found")

	// ErrMissingLabel means the dataset lacks the assignment_hours column.
	ErrMissingLabel = errors.New("label column assignment_hours missing")

	// ErrNoFeatures means none of the candidate feature columns are present.
	ErrNoFeatures = errors.New("no usable feature columns in training data")

	// ErrTableNotFound wraps the name of a required raw table that could not
	// be located in the data directory.
	ErrTableNotFound = errors.New("required table not found")

	// ErrMalformedRecord wraps field-level detail about a prediction record
	// that could not be coerced; the whole batch is rejected.
	ErrMalformedRecord = errors.New("malformed prediction record")

	// ErrMissingColumn wraps the table and column name when a core table
	// lacks a column the build cannot proceed without.
	ErrMissingColumn = errors.New("required column not found")

	// ErrCanvasNotConfigured means canvas.base_url or canvas.token is unset.
	ErrCanvasNotConfigured = errors.New("canvas base URL or API token not configured")
)
