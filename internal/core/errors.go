package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when neither subject nor content is given.
	ErrInvalidInput = errors.New("subject or content is required")
	// ErrDatasetNotFound is returned when the dataset path cannot be read.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrMalformedDataset is returned when the dataset has fewer than two columns.
	ErrMalformedDataset = errors.New("malformed dataset")
	// ErrEmptyDataset is returned when no usable rows remain.
	ErrEmptyDataset = errors.New("dataset has no usable rows")
	// ErrNotReady is returned when no models are loaded.
	ErrNotReady = errors.New("models are not loaded")
	// ErrFeatureMismatch is returned when models and vectorizer disagree.
	ErrFeatureMismatch = errors.New("models do not match the vectorizer")
	// ErrArtifactsMissing is returned when a required artifact is absent.
	ErrArtifactsMissing = errors.New("required artifacts are missing")
)

// PersistError reports a training run whose results could not be saved.
// The in-memory state is left unchanged.
type PersistError struct {
	Statistics *TrainingStatistics
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("training finished but artifacts were not persisted: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
