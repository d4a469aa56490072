// Package models holds the four binary spam classifiers, the bank that
// trains and evaluates them together and the fixed-weight ensemble.
package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/mikey/ml-spam-filter/internal/features"
)

var (
	// ErrNotFitted is returned when a model is used before Fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrDimensionMismatch is returned when a vector does not match the
	// dimension the model was fitted on.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Model names. They double as artifact names.
const (
	NaiveBayesName         = "naive_bayes"
	SVMName                = "svm"
	RandomForestName       = "random_forest"
	LogisticRegressionName = "logistic_regression"
)

// Names lists every model in a stable order.
var Names = []string{NaiveBayesName, SVMName, RandomForestName, LogisticRegressionName}

// Classifier is a binary classifier emitting a spam probability.
// PredictProbability must be safe for concurrent use once Fit has returned.
type Classifier interface {
	Name() string
	Fit(X []features.Vector, y []int) error
	PredictProbability(x features.Vector) (float64, error)
	NumFeatures() int
}

// New returns an unfitted classifier for name with its training settings.
func New(name string) (Classifier, error) {
	switch name {
	case NaiveBayesName:
		return NewNaiveBayes(0.1), nil
	case SVMName:
		return NewLinearSVM(1.0, 42), nil
	case RandomForestName:
		return NewRandomForest(100, 50, 42), nil
	case LogisticRegressionName:
		return NewLogisticRegression(1.0, 1000), nil
	default:
		return nil, fmt.Errorf("unknown model: %s", name)
	}
}

func checkTrainingSet(X []features.Vector, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty training set")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("got %d samples and %d labels", len(X), len(y))
	}
	dim := X[0].Dim
	for i, x := range X {
		if x.Dim != dim {
			return 0, fmt.Errorf("sample %d: %w", i, ErrDimensionMismatch)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("sample %d: label %d is not binary", i, y[i])
		}
	}
	return dim, nil
}

func checkInput(x features.Vector, dim int, fitted bool) error {
	if !fitted {
		return ErrNotFitted
	}
	if x.Dim != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, x.Dim, dim)
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
