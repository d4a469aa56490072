package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mikey/ml-spam-filter/internal/features"
	"github.com/mikey/ml-spam-filter/internal/models"
)

// RequiredArtifacts lists the artifacts without which no state can be built.
func RequiredArtifacts() []string {
	return append([]string{ArtifactVectorizer}, models.Names...)
}

// modelVersion fingerprints the fitted vocabulary in index order, so equal
// fits get equal versions regardless of how the vectorizer was encoded.
func modelVersion(vec *features.Vectorizer) string {
	h := sha256.New()
	var buf [8]byte
	for i, term := range vec.Terms() {
		h.Write([]byte(term))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(vec.IDF[i]))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func encodeState(bank *models.Bank, stats *TrainingStatistics) (ArtifactSet, string, error) {
	set := ArtifactSet{}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bank.Vectorizer); err != nil {
		return nil, "", fmt.Errorf("encode vectorizer: %w", err)
	}
	set.Add(Artifact{Name: ArtifactVectorizer, Format: FormatGob, Data: buf.Bytes()})

	for _, name := range models.Names {
		data, err := models.Encode(bank.Models[name])
		if err != nil {
			return nil, "", err
		}
		set.Add(Artifact{Name: name, Format: FormatGob, Data: data})
	}

	if stats != nil {
		data, err := json.Marshal(stats)
		if err != nil {
			return nil, "", fmt.Errorf("encode training statistics: %w", err)
		}
		set.Add(Artifact{Name: ArtifactTrainingStats, Format: FormatJSON, Data: data})
	}

	return set, modelVersion(bank.Vectorizer), nil
}

// decodeState rebuilds a bank from set. Statistics are optional: a nil
// result means none were stored or they could not be decoded.
func decodeState(set ArtifactSet) (*models.Bank, *TrainingStatistics, string, error) {
	var missing []string
	for _, name := range RequiredArtifacts() {
		if _, ok := set[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrArtifactsMissing, missing)
	}

	vecBlob := set[ArtifactVectorizer].Data
	vec := &features.Vectorizer{}
	if err := gob.NewDecoder(bytes.NewReader(vecBlob)).Decode(vec); err != nil {
		return nil, nil, "", fmt.Errorf("decode vectorizer: %w", err)
	}

	bank := &models.Bank{Vectorizer: vec, Models: make(map[string]models.Classifier, len(models.Names))}
	for _, name := range models.Names {
		m, err := models.Decode(name, set[name].Data)
		if err != nil {
			return nil, nil, "", err
		}
		bank.Models[name] = m
	}
	if err := bank.Validate(); err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrFeatureMismatch, err)
	}

	var stats *TrainingStatistics
	if a, ok := set[ArtifactTrainingStats]; ok {
		stats = &TrainingStatistics{}
		if err := json.Unmarshal(a.Data, stats); err != nil {
			stats = nil
		}
	}

	return bank, stats, modelVersion(vec), nil
}

func statisticsFromReport(r *models.Report) *TrainingStatistics {
	stats := &TrainingStatistics{
		DatasetSize:  r.DatasetSize,
		TrainSize:    r.TrainSize,
		TestSize:     r.TestSize,
		SpamCount:    r.SpamCount,
		HamCount:     r.HamCount,
		FeatureCount: r.FeatureCount,
		Models:       make(map[string]ModelMetrics, len(r.Metrics)),
	}
	for name, m := range r.Metrics {
		stats.Models[name] = ModelMetrics{
			TrainAccuracy:   m.TrainAccuracy,
			TestAccuracy:    m.TestAccuracy,
			Precision:       m.Precision,
			Recall:          m.Recall,
			F1Score:         m.F1,
			ConfusionMatrix: m.ConfusionMatrix.Rows(),
		}
	}
	return stats
}

// BestModel returns the model with the highest test accuracy. Ties go to
// the model listed first in models.Names.
func (s *TrainingStatistics) BestModel() (string, ModelMetrics) {
	best := ""
	var bestMetrics ModelMetrics
	for _, name := range models.Names {
		m, ok := s.Models[name]
		if !ok {
			continue
		}
		if best == "" || m.TestAccuracy > bestMetrics.TestAccuracy {
			best, bestMetrics = name, m
		}
	}
	return best, bestMetrics
}
