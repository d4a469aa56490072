package models

// DecisionThreshold is the probability at or above which a single model
// votes spam.
const DecisionThreshold = 0.5

// ConfusionMatrix is laid out as [[TN, FP], [FN, TP]].
type ConfusionMatrix [2][2]int

// Metrics summarises one model's fit.
type Metrics struct {
	TrainAccuracy   float64
	TestAccuracy    float64
	Precision       float64
	Recall          float64
	F1              float64
	ConfusionMatrix ConfusionMatrix
}

// Confusion counts predictions against labels.
func Confusion(labels, predicted []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i, actual := range labels {
		cm[actual][predicted[i]]++
	}
	return cm
}

// Accuracy is the share of correct predictions, zero when empty.
func (cm ConfusionMatrix) Accuracy() float64 {
	total := cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
	return ratio(cm[0][0]+cm[1][1], total)
}

// Precision is TP/(TP+FP), zero when undefined.
func (cm ConfusionMatrix) Precision() float64 {
	return ratio(cm[1][1], cm[1][1]+cm[0][1])
}

// Recall is TP/(TP+FN), zero when undefined.
func (cm ConfusionMatrix) Recall() float64 {
	return ratio(cm[1][1], cm[1][1]+cm[1][0])
}

// F1 is the harmonic mean of precision and recall, zero when undefined.
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Rows returns the matrix as nested slices for JSON output.
func (cm ConfusionMatrix) Rows() [][]int {
	return [][]int{{cm[0][0], cm[0][1]}, {cm[1][0], cm[1][1]}}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func threshold(p float64) int {
	if p >= DecisionThreshold {
		return 1
	}
	return 0
}
