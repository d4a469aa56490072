package models

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/features"
)

// Bank is a fitted vectorizer together with the models trained on its output.
type Bank struct {
	Vectorizer *features.Vectorizer
	Models     map[string]Classifier
}

// Validate checks that every model is present and shares the vectorizer's
// feature space.
func (b *Bank) Validate() error {
	if b == nil || !b.Vectorizer.Fitted() {
		return features.ErrNotFitted
	}
	dim := b.Vectorizer.NumFeatures()
	for _, name := range Names {
		m, ok := b.Models[name]
		if !ok || m == nil {
			return fmt.Errorf("model %s: %w", name, ErrNotFitted)
		}
		if m.NumFeatures() != dim {
			return fmt.Errorf("model %s has %d features, vectorizer has %d: %w",
				name, m.NumFeatures(), dim, ErrDimensionMismatch)
		}
	}
	return nil
}

// Predict returns each model's spam probability for normalized text.
func (b *Bank) Predict(text string) (map[string]float64, error) {
	vec, err := b.Vectorizer.Transform(text)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(Names))
	for _, name := range Names {
		m, ok := b.Models[name]
		if !ok {
			return nil, fmt.Errorf("model %s: %w", name, ErrNotFitted)
		}
		p, err := m.PredictProbability(vec)
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}

// Report describes one training run.
type Report struct {
	DatasetSize  int
	TrainSize    int
	TestSize     int
	SpamCount    int
	HamCount     int
	FeatureCount int
	Metrics      map[string]Metrics
}

// Best returns the model with the highest test accuracy, ties broken by
// the order of Names.
func (r *Report) Best() (string, Metrics) {
	best := ""
	var bestMetrics Metrics
	for _, name := range Names {
		m, ok := r.Metrics[name]
		if !ok {
			continue
		}
		if best == "" || m.TestAccuracy > bestMetrics.TestAccuracy {
			best, bestMetrics = name, m
		}
	}
	return best, bestMetrics
}

// Trainer fits a Bank from a labeled corpus.
type Trainer struct {
	logger     *zap.Logger
	Vectorizer features.Config
	TestRatio  float64
	Seed       uint64
	// NewModel builds the unfitted classifier for a name. Defaults to New.
	NewModel func(name string) (Classifier, error)
}

// NewTrainer returns a Trainer with the production settings.
func NewTrainer(logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		logger:     logger,
		Vectorizer: features.DefaultConfig(),
		TestRatio:  0.2,
		Seed:       SplitSeed,
		NewModel:   New,
	}
}

// Train splits the corpus, fits the vectorizer on the training part, fits
// every model and evaluates it on the held-out part. Any failure aborts the
// whole run.
func (t *Trainer) Train(texts []string, labels []int) (*Bank, *Report, error) {
	if len(texts) != len(labels) {
		return nil, nil, fmt.Errorf("got %d texts and %d labels", len(texts), len(labels))
	}
	if len(texts) == 0 {
		return nil, nil, errors.New("empty corpus")
	}

	report := &Report{DatasetSize: len(texts), Metrics: make(map[string]Metrics, len(Names))}
	for _, l := range labels {
		if l == 1 {
			report.SpamCount++
		} else {
			report.HamCount++
		}
	}

	trainIdx, testIdx := StratifiedSplit(labels, t.TestRatio, t.Seed)
	report.TrainSize, report.TestSize = len(trainIdx), len(testIdx)
	t.logger.Info("Split dataset",
		zap.Int("total", report.DatasetSize),
		zap.Int("spam", report.SpamCount),
		zap.Int("ham", report.HamCount),
		zap.Int("train", report.TrainSize),
		zap.Int("test", report.TestSize))

	trainTexts, trainY := pick(texts, labels, trainIdx)
	testTexts, testY := pick(texts, labels, testIdx)

	vec := features.NewVectorizer(t.Vectorizer)
	trainX, err := vec.FitTransform(trainTexts)
	if err != nil {
		return nil, nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	testX, err := vec.TransformAll(testTexts)
	if err != nil {
		return nil, nil, fmt.Errorf("transform test set: %w", err)
	}
	report.FeatureCount = vec.NumFeatures()
	t.logger.Info("Fitted vectorizer", zap.Int("features", report.FeatureCount))

	newModel := t.NewModel
	if newModel == nil {
		newModel = New
	}

	bank := &Bank{Vectorizer: vec, Models: make(map[string]Classifier, len(Names))}
	for _, name := range Names {
		model, err := newModel(name)
		if err != nil {
			return nil, nil, err
		}

		start := time.Now()
		if err := model.Fit(trainX, trainY); err != nil {
			return nil, nil, fmt.Errorf("fit %s: %w", name, err)
		}

		m, err := evaluate(model, trainX, trainY, testX, testY)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate %s: %w", name, err)
		}
		bank.Models[name] = model
		report.Metrics[name] = m

		t.logger.Info("Trained model",
			zap.String("model", name),
			zap.Duration("duration", time.Since(start)),
			zap.Float64("train_accuracy", m.TrainAccuracy),
			zap.Float64("test_accuracy", m.TestAccuracy),
			zap.Float64("precision", m.Precision),
			zap.Float64("recall", m.Recall),
			zap.Float64("f1", m.F1))
	}

	return bank, report, nil
}

func pick(texts []string, labels []int, idx []int) ([]string, []int) {
	outT := make([]string, len(idx))
	outY := make([]int, len(idx))
	for k, i := range idx {
		outT[k] = texts[i]
		outY[k] = labels[i]
	}
	return outT, outY
}

func predictAll(model Classifier, X []features.Vector) ([]int, error) {
	out := make([]int, len(X))
	for i, x := range X {
		p, err := model.PredictProbability(x)
		if err != nil {
			return nil, err
		}
		out[i] = threshold(p)
	}
	return out, nil
}

func evaluate(model Classifier, trainX []features.Vector, trainY []int, testX []features.Vector, testY []int) (Metrics, error) {
	trainPred, err := predictAll(model, trainX)
	if err != nil {
		return Metrics{}, err
	}
	testPred, err := predictAll(model, testX)
	if err != nil {
		return Metrics{}, err
	}
	cm := Confusion(testY, testPred)
	return Metrics{
		TrainAccuracy:   Confusion(trainY, trainPred).Accuracy(),
		TestAccuracy:    cm.Accuracy(),
		Precision:       cm.Precision(),
		Recall:          cm.Recall(),
		F1:              cm.F1(),
		ConfusionMatrix: cm,
	}, nil
}
