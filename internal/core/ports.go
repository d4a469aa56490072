package core

import (
	"context"
	"time"
)

// DatasetLoader reads a labeled corpus
type DatasetLoader interface {
	// Load parses the dataset at path
	Load(ctx context.Context, path string) ([]LabeledEmail, error)
}

// ArtifactStore persists the fitted vectorizer, models and statistics
type ArtifactStore interface {
	// Save replaces the stored set with set as one unit
	Save(ctx context.Context, set ArtifactSet) error

	// Load returns every stored artifact. Missing artifacts are simply
	// absent from the result.
	Load(ctx context.Context) (ArtifactSet, error)
}

// PredictionCache caches prediction results
type PredictionCache interface {
	// Get retrieves a cached result
	Get(ctx context.Context, key string) (*PredictionResult, bool)

	// Set stores a result for ttl
	Set(ctx context.Context, key string, result *PredictionResult, ttl time.Duration)
}

// EmailFilter is a mail front-end driven by the service
type EmailFilter interface {
	// ProcessEmail classifies an email
	ProcessEmail(ctx context.Context, email *Email) (*PredictionResult, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
