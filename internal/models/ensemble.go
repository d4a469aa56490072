package models

import (
	"fmt"
)

// SpamThreshold is the ensemble score at or above which mail is spam.
const SpamThreshold = 0.5

// Weights are the fixed ensemble weights keyed by model name. They sum to one.
var Weights = map[string]float64{
	NaiveBayesName:         0.20,
	SVMName:                0.25,
	RandomForestName:       0.35,
	LogisticRegressionName: 0.20,
}

// Score combines per-model spam probabilities into the ensemble probability.
// Every model in Names must be present.
func Score(probabilities map[string]float64) (float64, error) {
	var score float64
	for _, name := range Names {
		p, ok := probabilities[name]
		if !ok {
			return 0, fmt.Errorf("missing probability for %s", name)
		}
		if p < 0 || p > 1 {
			return 0, fmt.Errorf("probability %v for %s is outside [0,1]", p, name)
		}
		score += Weights[name] * p
	}
	// Guard against rounding just past the bounds.
	return min(max(score, 0), 1), nil
}

// IsSpam applies SpamThreshold to an ensemble score.
func IsSpam(score float64) bool {
	return score >= SpamThreshold
}
