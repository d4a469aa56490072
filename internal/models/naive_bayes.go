package models

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mikey/ml-spam-filter/internal/features"
)

// NaiveBayes is a multinomial naive Bayes classifier with additive smoothing.
type NaiveBayes struct {
	Alpha          float64
	Dim            int
	ClassLogPrior  []float64
	FeatureLogProb [][]float64
}

// NewNaiveBayes returns an unfitted model with smoothing constant alpha.
func NewNaiveBayes(alpha float64) *NaiveBayes {
	return &NaiveBayes{Alpha: alpha}
}

func (nb *NaiveBayes) Name() string { return NaiveBayesName }

func (nb *NaiveBayes) NumFeatures() int { return nb.Dim }

func (nb *NaiveBayes) fitted() bool { return len(nb.FeatureLogProb) == 2 }

// Fit accumulates per-class feature mass and turns it into smoothed log
// probabilities.
func (nb *NaiveBayes) Fit(X []features.Vector, y []int) error {
	dim, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}

	counts := [2][]float64{make([]float64, dim), make([]float64, dim)}
	var classCount [2]float64
	for i, x := range X {
		x.AddScaledTo(counts[y[i]], 1)
		classCount[y[i]]++
	}

	n := float64(len(X))
	nb.Dim = dim
	nb.ClassLogPrior = make([]float64, 2)
	nb.FeatureLogProb = make([][]float64, 2)
	for c := 0; c < 2; c++ {
		nb.ClassLogPrior[c] = math.Log(classCount[c] / n)

		denom := math.Log(floats.Sum(counts[c]) + nb.Alpha*float64(dim))
		logProb := make([]float64, dim)
		for j, v := range counts[c] {
			logProb[j] = math.Log(v+nb.Alpha) - denom
		}
		nb.FeatureLogProb[c] = logProb
	}
	return nil
}

// PredictProbability returns P(spam | x).
func (nb *NaiveBayes) PredictProbability(x features.Vector) (float64, error) {
	if err := checkInput(x, nb.Dim, nb.fitted()); err != nil {
		return 0, err
	}
	joint := []float64{
		nb.ClassLogPrior[0] + x.Dot(nb.FeatureLogProb[0]),
		nb.ClassLogPrior[1] + x.Dot(nb.FeatureLogProb[1]),
	}
	return math.Exp(joint[1] - floats.LogSumExp(joint)), nil
}
