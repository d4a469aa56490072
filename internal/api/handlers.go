package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/models"
)

// Service is the part of the spam filter service the API drives
type Service interface {
	Ready() bool
	Predict(ctx context.Context, subject, content string) (*core.PredictionResult, error)
	Stats() *core.TrainingStatistics
	Train(ctx context.Context, path string) (*core.TrainingStatistics, error)
}

// responseNames maps model names to their JSON keys in predictions
var responseNames = map[string]string{
	models.NaiveBayesName:         "naiveBayes",
	models.SVMName:                "svm",
	models.RandomForestName:       "randomForest",
	models.LogisticRegressionName: "logisticRegression",
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
}

type predictRequest struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type predictResponse struct {
	IsSpam           bool               `json:"isSpam"`
	SpamScore        float64            `json:"spamScore"`
	DetectedPatterns []string           `json:"detectedPatterns"`
	ModelPredictions map[string]float64 `json:"modelPredictions"`
}

type retrainRequest struct {
	DatasetPath string `json:"dataset_path"`
}

type datasetStats struct {
	TotalEmails int `json:"total_emails"`
	SpamEmails  int `json:"spam_emails"`
	HamEmails   int `json:"ham_emails"`
	TrainSize   int `json:"train_size"`
	TestSize    int `json:"test_size"`
}

type featureStats struct {
	TotalFeatures int    `json:"total_features"`
	Vectorization string `json:"vectorization"`
	NGramRange    string `json:"ngram_range"`
}

type modelSummary struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

type statsResponse struct {
	Dataset  datasetStats            `json:"dataset"`
	Features featureStats            `json:"features"`
	Models   map[string]modelSummary `json:"models"`
}

type retrainResponse struct {
	Message string                       `json:"message"`
	Results map[string]core.ModelMetrics `json:"results"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Handlers serves the REST API
type Handlers struct {
	service        Service
	logger         *zap.Logger
	defaultDataset string
}

// NewHandlers creates the API handlers
func NewHandlers(service Service, logger *zap.Logger, defaultDataset string) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{service: service, logger: logger, defaultDataset: defaultDataset}
}

// Health reports liveness and whether models are loaded
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "running", ModelsLoaded: h.service.Ready()})
}

// Predict classifies the posted subject and content
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.service.Predict(r.Context(), req.Subject, req.Content)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Subject or content is required")
			return
		}
		h.logger.Error("Prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	preds := make(map[string]float64, len(result.ModelPredictions))
	for name, p := range result.ModelPredictions {
		if key, ok := responseNames[name]; ok {
			preds[key] = p
		}
	}
	writeJSON(w, http.StatusOK, predictResponse{
		IsSpam:           result.IsSpam,
		SpamScore:        result.Score,
		DetectedPatterns: result.DetectedPatterns,
		ModelPredictions: preds,
	})
}

// Stats returns the statistics of the loaded models
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.service.Stats()
	if stats == nil {
		writeJSON(w, http.StatusOK, messageResponse{Message: "No training statistics available. Train the models first."})
		return
	}

	resp := statsResponse{
		Dataset: datasetStats{
			TotalEmails: stats.DatasetSize,
			SpamEmails:  stats.SpamCount,
			HamEmails:   stats.HamCount,
			TrainSize:   stats.TrainSize,
			TestSize:    stats.TestSize,
		},
		Features: featureStats{
			TotalFeatures: stats.FeatureCount,
			Vectorization: "TF-IDF",
			NGramRange:    "(1, 3)",
		},
		Models: make(map[string]modelSummary, len(stats.Models)),
	}
	for name, m := range stats.Models {
		resp.Models[name] = modelSummary{
			Accuracy:  m.TestAccuracy,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1Score:   m.F1Score,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Retrain runs a full training pass and reports the new metrics
func (h *Handlers) Retrain(w http.ResponseWriter, r *http.Request) {
	var req retrainRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	path := req.DatasetPath
	if path == "" {
		path = h.defaultDataset
	}

	stats, err := h.service.Train(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDatasetNotFound):
			writeError(w, http.StatusNotFound, fmt.Sprintf("Dataset not found: %s", path))
		default:
			h.logger.Error("Retrain failed", zap.String("dataset", path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, retrainResponse{
		Message: "Models trained successfully",
		Results: stats.Models,
	})
}
