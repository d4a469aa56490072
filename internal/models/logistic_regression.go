package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/mikey/ml-spam-filter/internal/features"
)

// LogisticRegression is an L2 regularised logistic model fitted with L-BFGS.
// The intercept is not penalised.
type LogisticRegression struct {
	C       float64
	MaxIter int
	Dim     int
	Weights []float64
	Bias    float64
}

// NewLogisticRegression returns an unfitted model with inverse regularisation
// strength c.
func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	return &LogisticRegression{C: c, MaxIter: maxIter}
}

func (lr *LogisticRegression) Name() string { return LogisticRegressionName }

func (lr *LogisticRegression) NumFeatures() int { return lr.Dim }

// Fit minimises C*sum(logloss) + 0.5*||w||^2.
func (lr *LogisticRegression) Fit(X []features.Vector, y []int) error {
	dim, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w, b := params[:dim], params[dim]
			loss := 0.5 * floats.Dot(w, w)
			for i, x := range X {
				loss += lr.C * logLoss(x.Dot(w)+b, y[i])
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			w, b := params[:dim], params[dim]
			copy(grad[:dim], w)
			grad[dim] = 0
			for i, x := range X {
				r := lr.C * (sigmoid(x.Dot(w)+b) - float64(y[i]))
				x.AddScaledTo(grad[:dim], r)
				grad[dim] += r
			}
		},
	}

	params, err := minimize(problem, make([]float64, dim+1), lr.MaxIter)
	if err != nil {
		return fmt.Errorf("fit logistic regression: %w", err)
	}
	lr.Dim = dim
	lr.Weights = params[:dim]
	lr.Bias = params[dim]
	return nil
}

// PredictProbability returns P(spam | x).
func (lr *LogisticRegression) PredictProbability(x features.Vector) (float64, error) {
	if err := checkInput(x, lr.Dim, lr.Weights != nil); err != nil {
		return 0, err
	}
	return sigmoid(x.Dot(lr.Weights) + lr.Bias), nil
}

// softplus returns log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// logLoss is the negative log likelihood of label y in {0,1} for margin m.
func logLoss(m float64, y int) float64 {
	if y == 1 {
		return softplus(-m)
	}
	return softplus(m)
}

// minimize runs L-BFGS from x0. gonum reports line search stalls as errors
// while still returning a usable location, so those are accepted when the
// location is finite.
func minimize(problem optimize.Problem, x0 []float64, maxIter int) ([]float64, error) {
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, err
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if err == nil {
				err = fmt.Errorf("optimizer diverged")
			}
			return nil, err
		}
	}
	return result.X, nil
}
