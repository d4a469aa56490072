package core

import (
	"time"
)

// Labels of a LabeledEmail.
const (
	LabelHam  = 0
	LabelSpam = 1
)

// Email represents an email message
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// LabeledEmail is one row of a training corpus
type LabeledEmail struct {
	Text  string
	Label int
}

// PredictionResult represents the result of spam analysis
type PredictionResult struct {
	IsSpam           bool               `json:"isSpam"`
	Score            float64            `json:"spamScore"`
	DetectedPatterns []string           `json:"detectedPatterns"`
	ModelPredictions map[string]float64 `json:"modelPredictions"`
	Explanation      string             `json:"-"`
	ModelUsed        string             `json:"-"`
	AnalyzedAt       time.Time          `json:"-"`
}

// ModelMetrics holds the evaluation of one trained model
type ModelMetrics struct {
	TrainAccuracy   float64 `json:"train_accuracy" yaml:"train_accuracy"`
	TestAccuracy    float64 `json:"test_accuracy" yaml:"test_accuracy"`
	Precision       float64 `json:"precision" yaml:"precision"`
	Recall          float64 `json:"recall" yaml:"recall"`
	F1Score         float64 `json:"f1_score" yaml:"f1_score"`
	ConfusionMatrix [][]int `json:"confusion_matrix" yaml:"confusion_matrix"`
}

// TrainingStatistics describes the last training run. It is replaced as a
// whole on retrain.
type TrainingStatistics struct {
	DatasetSize  int                     `json:"dataset_size" yaml:"dataset_size"`
	TrainSize    int                     `json:"train_size" yaml:"train_size"`
	TestSize     int                     `json:"test_size" yaml:"test_size"`
	SpamCount    int                     `json:"spam_count" yaml:"spam_count"`
	HamCount     int                     `json:"ham_count" yaml:"ham_count"`
	FeatureCount int                     `json:"feature_count" yaml:"feature_count"`
	TrainedAt    time.Time               `json:"trained_at" yaml:"trained_at"`
	Models       map[string]ModelMetrics `json:"models" yaml:"models"`
}

// Artifact formats.
const (
	FormatGob  = "gob"
	FormatJSON = "json"
)

// Artifact names. Model artifacts are named after the models.
const (
	ArtifactVectorizer    = "vectorizer"
	ArtifactTrainingStats = "training_stats"
)

// Artifact is one opaque persisted blob.
type Artifact struct {
	Name   string
	Format string
	Data   []byte
}

// ArtifactSet holds artifacts by name.
type ArtifactSet map[string]Artifact

// Add stores an artifact under its own name.
func (s ArtifactSet) Add(a Artifact) {
	s[a.Name] = a
}
