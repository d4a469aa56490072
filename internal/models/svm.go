package models

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/mikey/ml-spam-filter/internal/features"
)

const (
	svmMaxPasses = 1000
	svmTolerance = 0.1
	plattFolds   = 5
	plattMaxIter = 100
)

// LinearSVM is a hinge-loss linear SVM trained by dual coordinate descent.
// Decision values are mapped to probabilities with Platt scaling fitted on
// out-of-fold decision values.
type LinearSVM struct {
	C       float64
	Seed    uint64
	Dim     int
	Weights []float64
	Bias    float64
	PlattA  float64
	PlattB  float64
}

// NewLinearSVM returns an unfitted SVM with regularisation c.
func NewLinearSVM(c float64, seed uint64) *LinearSVM {
	return &LinearSVM{C: c, Seed: seed}
}

func (s *LinearSVM) Name() string { return SVMName }

func (s *LinearSVM) NumFeatures() int { return s.Dim }

// Fit trains the separating hyperplane on the full set, then calibrates.
func (s *LinearSVM) Fit(X []features.Vector, y []int) error {
	dim, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))

	all := make([]int, len(X))
	for i := range all {
		all[i] = i
	}

	decisions := s.outOfFoldDecisions(X, y, dim, rng)
	a, b, err := fitPlatt(decisions, y)
	if err != nil {
		return fmt.Errorf("fit svm calibration: %w", err)
	}

	w, bias := dualCoordinateDescent(X, y, all, dim, s.C, rng)
	s.Dim = dim
	s.Weights = w
	s.Bias = bias
	s.PlattA = a
	s.PlattB = b
	return nil
}

// Decision returns the signed distance-like score w.x + b.
func (s *LinearSVM) Decision(x features.Vector) (float64, error) {
	if err := checkInput(x, s.Dim, s.Weights != nil); err != nil {
		return 0, err
	}
	return x.Dot(s.Weights) + s.Bias, nil
}

// PredictProbability returns 1/(1+exp(A*f+B)) for decision value f.
func (s *LinearSVM) PredictProbability(x features.Vector) (float64, error) {
	f, err := s.Decision(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(-(s.PlattA*f + s.PlattB)), nil
}

func (s *LinearSVM) outOfFoldDecisions(X []features.Vector, y []int, dim int, rng *rand.Rand) []float64 {
	order := rng.Perm(len(X))
	folds := plattFolds
	if len(X) < folds {
		folds = len(X)
	}

	decisions := make([]float64, len(X))
	for k := 0; k < folds; k++ {
		var train, held []int
		for pos, idx := range order {
			if pos%folds == k {
				held = append(held, idx)
			} else {
				train = append(train, idx)
			}
		}
		if len(train) == 0 {
			continue
		}
		w, b := dualCoordinateDescent(X, y, train, dim, s.C, rng)
		for _, idx := range held {
			decisions[idx] = X[idx].Dot(w) + b
		}
	}
	return decisions
}

// dualCoordinateDescent solves the L1-loss SVM dual over the rows in idx.
// The bias is learned as the weight of a constant feature equal to one.
func dualCoordinateDescent(X []features.Vector, y []int, idx []int, dim int, c float64, rng *rand.Rand) ([]float64, float64) {
	w := make([]float64, dim)
	var bias float64

	alpha := make([]float64, len(idx))
	qii := make([]float64, len(idx))
	for k, i := range idx {
		qii[k] = X[i].SquaredNorm() + 1
	}
	order := make([]int, len(idx))
	for k := range order {
		order[k] = k
	}

	for pass := 0; pass < svmMaxPasses; pass++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		pgMax, pgMin := math.Inf(-1), math.Inf(1)
		for _, k := range order {
			i := idx[k]
			sign := float64(2*y[i] - 1)
			g := sign*(X[i].Dot(w)+bias) - 1

			pg := g
			switch {
			case alpha[k] == 0:
				pg = math.Min(g, 0)
			case alpha[k] == c:
				pg = math.Max(g, 0)
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)

			if pg == 0 {
				continue
			}
			old := alpha[k]
			alpha[k] = math.Min(math.Max(old-g/qii[k], 0), c)
			d := (alpha[k] - old) * sign
			X[i].AddScaledTo(w, d)
			bias += d
		}
		if pgMax-pgMin <= svmTolerance {
			break
		}
	}
	return w, bias
}

// fitPlatt fits A and B of p = 1/(1+exp(A*f+B)) by minimising the log loss
// against Platt's smoothed targets.
func fitPlatt(decisions []float64, y []int) (float64, float64, error) {
	var pos, neg float64
	for _, label := range y {
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	hi := (pos + 1) / (pos + 2)
	lo := 1 / (neg + 2)
	targets := make([]float64, len(y))
	for i, label := range y {
		if label == 1 {
			targets[i] = hi
		} else {
			targets[i] = lo
		}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var loss float64
			for i, f := range decisions {
				z := -(p[0]*f + p[1])
				loss += targets[i]*softplus(-z) + (1-targets[i])*softplus(z)
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			grad[0], grad[1] = 0, 0
			for i, f := range decisions {
				r := sigmoid(-(p[0]*f+p[1])) - targets[i]
				grad[0] -= r * f
				grad[1] -= r
			}
		},
	}

	b0 := math.Log((neg + 1) / (pos + 1))
	params, err := minimize(problem, []float64{0, b0}, plattMaxIter)
	if err != nil {
		return 0, 0, err
	}
	return params[0], params[1], nil
}
