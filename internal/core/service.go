package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/models"
	"github.com/mikey/ml-spam-filter/internal/patterns"
	"github.com/mikey/ml-spam-filter/internal/utils"
	"github.com/mikey/ml-spam-filter/internal/whitelist"
)

// DetectorState is the loaded vectorizer and models with the statistics of
// the run that produced them. A state is never mutated once published.
type DetectorState struct {
	Bank       *models.Bank
	Statistics *TrainingStatistics
	Version    string
}

// ServiceConfig holds the service's tunables
type ServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// MaxTextBytes caps the combined subject and body fed to the models.
	// Zero means no limit.
	MaxTextBytes int
}

// SpamFilterService is the core service for spam detection
type SpamFilterService struct {
	loader        DatasetLoader
	store         ArtifactStore
	cache         PredictionCache
	textProcessor *utils.TextProcessor
	detector      *patterns.Detector
	whitelist     *whitelist.Checker
	trainer       *models.Trainer
	logger        *zap.Logger
	cfg           ServiceConfig

	mu    sync.RWMutex
	state *DetectorState

	// trainMu serialises fit, persist and swap.
	trainMu sync.Mutex
}

// NewSpamFilterService creates a new spam filter service. The service starts
// unready; call LoadArtifacts or Train to make it serve predictions.
func NewSpamFilterService(
	loader DatasetLoader,
	store ArtifactStore,
	cache PredictionCache,
	textProcessor *utils.TextProcessor,
	checker *whitelist.Checker,
	logger *zap.Logger,
	cfg ServiceConfig,
) *SpamFilterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &SpamFilterService{
		loader:        loader,
		store:         store,
		cache:         cache,
		textProcessor: textProcessor,
		detector:      patterns.NewDetector(),
		whitelist:     checker,
		trainer:       models.NewTrainer(logger),
		logger:        logger,
		cfg:           cfg,
	}
}

func (s *SpamFilterService) current() *DetectorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *SpamFilterService) swap(state *DetectorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Ready reports whether models are loaded
func (s *SpamFilterService) Ready() bool {
	return s.current() != nil
}

// Version identifies the loaded vectorizer, or is empty when unready
func (s *SpamFilterService) Version() string {
	if st := s.current(); st != nil {
		return st.Version
	}
	return ""
}

// Stats returns the statistics of the loaded models, or nil if none exist
func (s *SpamFilterService) Stats() *TrainingStatistics {
	if st := s.current(); st != nil {
		return st.Statistics
	}
	return nil
}

// LoadArtifacts replaces the live state with the persisted one. On failure
// the live state is left as it was.
func (s *SpamFilterService) LoadArtifacts(ctx context.Context) error {
	set, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	bank, stats, version, err := decodeState(set)
	if err != nil {
		return err
	}
	if _, ok := set[ArtifactTrainingStats]; ok && stats == nil {
		s.logger.Warn("Ignoring unreadable training statistics")
	}

	s.swap(&DetectorState{Bank: bank, Statistics: stats, Version: version})
	s.logger.Info("Loaded models",
		zap.String("version", version),
		zap.Int("features", bank.Vectorizer.NumFeatures()))
	return nil
}

// Train runs a full training pass on the dataset at path, persists the
// result and only then makes it live. Concurrent calls run one at a time.
// Cancellation and deadlines of ctx are ignored.
//
// If persisting fails a *PersistError carrying the computed statistics is
// returned and the live state is not replaced.
func (s *SpamFilterService) Train(ctx context.Context, path string) (*TrainingStatistics, error) {
	// A run is not cancelable: once started it loads, fits and persists even
	// if the caller goes away. Request values are kept.
	ctx = context.WithoutCancel(ctx)

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	rows, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	raw := make([]string, len(rows))
	labels := make([]int, len(rows))
	var spam int
	for i, row := range rows {
		raw[i] = row.Text
		labels[i] = row.Label
		spam += row.Label
	}
	if spam == 0 || spam == len(rows) {
		return nil, fmt.Errorf("%w: both ham and spam rows are required", ErrEmptyDataset)
	}

	s.logger.Info("Training models", zap.String("dataset", path), zap.Int("rows", len(rows)))
	bank, report, err := s.trainer.Train(s.textProcessor.NormalizeAll(raw), labels)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	stats := statisticsFromReport(report)
	stats.TrainedAt = time.Now().UTC()

	set, version, err := encodeState(bank, stats)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	if err := s.store.Save(ctx, set); err != nil {
		s.logger.Error("Failed to persist trained models", zap.Error(err))
		return stats, &PersistError{Statistics: stats, Err: err}
	}

	s.swap(&DetectorState{Bank: bank, Statistics: stats, Version: version})
	best, m := report.Best()
	s.logger.Info("Training complete",
		zap.String("version", version),
		zap.String("best_model", best),
		zap.Float64("best_test_accuracy", m.TestAccuracy))
	return stats, nil
}

func cacheKey(version, subject, content string) string {
	h := sha256.New()
	h.Write([]byte(subject))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return version + ":" + hex.EncodeToString(h.Sum(nil))
}

// Predict classifies a subject and body. At least one must be non-empty.
func (s *SpamFilterService) Predict(ctx context.Context, subject, content string) (*PredictionResult, error) {
	if subject == "" && content == "" {
		return nil, ErrInvalidInput
	}

	state := s.current()
	if state == nil {
		return nil, ErrNotReady
	}

	key := cacheKey(state.Version, subject, content)
	if s.cfg.CacheEnabled && s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.Debug("Cache hit", zap.String("key", key))
			result := *cached
			result.ModelUsed = "cache"
			result.AnalyzedAt = time.Now()
			return &result, nil
		}
	}

	raw := utils.CombineSubjectBody(subject, content)
	raw = s.textProcessor.SanitizeUTF8(s.textProcessor.TruncateText(raw, s.cfg.MaxTextBytes))
	found := s.detector.Detect(raw)

	probs, err := state.Bank.Predict(s.textProcessor.Normalize(raw))
	if err != nil {
		if errors.Is(err, models.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrFeatureMismatch, err)
		}
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	score, err := models.Score(probs)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	result := &PredictionResult{
		IsSpam:           models.IsSpam(score),
		Score:            score,
		DetectedPatterns: found,
		ModelPredictions: probs,
		Explanation:      explain(score, found),
		ModelUsed:        "ensemble",
		AnalyzedAt:       time.Now(),
	}

	if s.cfg.CacheEnabled && s.cache != nil {
		s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	}
	return result, nil
}

func explain(score float64, found []string) string {
	msg := fmt.Sprintf("Ensemble score %.2f (threshold %.2f)", score, models.SpamThreshold)
	if len(found) > 0 {
		msg += "; patterns: " + strings.Join(found, ", ")
	}
	return msg
}

// AnalyzeEmail checks if an email is spam. Whitelisted senders bypass the
// models.
func (s *SpamFilterService) AnalyzeEmail(ctx context.Context, email *Email) (*PredictionResult, error) {
	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping spam check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &PredictionResult{
			IsSpam:           false,
			Score:            0.0,
			DetectedPatterns: []string{},
			Explanation:      "Sender domain is whitelisted",
			AnalyzedAt:       time.Now(),
			ModelUsed:        "whitelist",
		}, nil
	}

	return s.Predict(ctx, email.Subject, email.Body)
}
