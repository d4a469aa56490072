package models

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/mikey/ml-spam-filter/internal/features"
)

// Tree is a CART tree stored as parallel node slices. A node with
// Feature -1 is a leaf whose Value is the spam fraction of its samples.
type Tree struct {
	Feature   []int
	Threshold []float64
	Left      []int
	Right     []int
	Value     []float64
}

func (t *Tree) predict(x features.Vector) float64 {
	node := 0
	for t.Feature[node] >= 0 {
		if x.At(t.Feature[node]) <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}

func (t *Tree) addNode() int {
	t.Feature = append(t.Feature, -1)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, -1)
	t.Right = append(t.Right, -1)
	t.Value = append(t.Value, 0)
	return len(t.Feature) - 1
}

// RandomForest averages the leaf spam fractions of bootstrapped gini trees.
type RandomForest struct {
	NumTrees int
	MaxDepth int
	Seed     uint64
	Dim      int
	Trees    []Tree
}

// NewRandomForest returns an unfitted forest. Tree i is grown from seed+i.
func NewRandomForest(numTrees, maxDepth int, seed uint64) *RandomForest {
	return &RandomForest{NumTrees: numTrees, MaxDepth: maxDepth, Seed: seed}
}

func (rf *RandomForest) Name() string { return RandomForestName }

func (rf *RandomForest) NumFeatures() int { return rf.Dim }

// Fit grows the trees on a bounded number of goroutines. Results do not
// depend on scheduling.
func (rf *RandomForest) Fit(X []features.Vector, y []int) error {
	dim, err := checkTrainingSet(X, y)
	if err != nil {
		return err
	}

	maxFeatures := int(math.Sqrt(float64(dim)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	trees := make([]Tree, rf.NumTrees)
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := runtime.NumCPU()
	if workers > rf.NumTrees {
		workers = rf.NumTrees
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				seed := rf.Seed + uint64(i)
				g := &treeGrower{
					X:           X,
					y:           y,
					maxDepth:    rf.MaxDepth,
					maxFeatures: maxFeatures,
					rng:         rand.New(rand.NewPCG(seed, seed)),
				}
				trees[i] = g.grow()
			}
		}()
	}
	for i := range trees {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	rf.Dim = dim
	rf.Trees = trees
	return nil
}

// PredictProbability returns the mean leaf value over all trees.
func (rf *RandomForest) PredictProbability(x features.Vector) (float64, error) {
	if err := checkInput(x, rf.Dim, len(rf.Trees) > 0); err != nil {
		return 0, err
	}
	var sum float64
	for i := range rf.Trees {
		sum += rf.Trees[i].predict(x)
	}
	return sum / float64(len(rf.Trees)), nil
}

type treeGrower struct {
	X           []features.Vector
	y           []int
	weight      []float64
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
	tree        Tree
}

type splitSample struct {
	value  float64
	weight float64
	label  int
}

func (g *treeGrower) grow() Tree {
	n := len(g.X)
	g.weight = make([]float64, n)
	for i := 0; i < n; i++ {
		g.weight[g.rng.IntN(n)]++
	}
	var samples []int
	for i, w := range g.weight {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	g.build(samples, 0)
	return g.tree
}

func (g *treeGrower) classWeights(samples []int) (float64, float64) {
	var neg, pos float64
	for _, i := range samples {
		if g.y[i] == 1 {
			pos += g.weight[i]
		} else {
			neg += g.weight[i]
		}
	}
	return neg, pos
}

func gini(neg, pos float64) float64 {
	total := neg + pos
	if total == 0 {
		return 0
	}
	pn, pp := neg/total, pos/total
	return 1 - pn*pn - pp*pp
}

func (g *treeGrower) build(samples []int, depth int) int {
	node := g.tree.addNode()
	neg, pos := g.classWeights(samples)
	g.tree.Value[node] = pos / (neg + pos)

	if depth >= g.maxDepth || len(samples) < 2 || neg == 0 || pos == 0 {
		return node
	}

	feature, threshold, ok := g.bestSplit(samples, neg, pos)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range samples {
		if g.X[i].At(feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	g.tree.Feature[node] = feature
	g.tree.Threshold[node] = threshold
	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.tree.Left[node] = l
	g.tree.Right[node] = r
	return node
}

// bestSplit draws candidate features from those with a nonzero value in the
// node and stops after maxFeatures of them proved splittable.
func (g *treeGrower) bestSplit(samples []int, neg, pos float64) (int, float64, bool) {
	seen := make(map[int]struct{})
	var candidates []int
	for _, i := range samples {
		for _, f := range g.X[i].Indices {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				candidates = append(candidates, f)
			}
		}
	}
	sort.Ints(candidates)
	g.rng.Shuffle(len(candidates), func(a, b int) {
		candidates[a], candidates[b] = candidates[b], candidates[a]
	})

	total := neg + pos
	parent := gini(neg, pos)
	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	buf := make([]splitSample, len(samples))
	visited := 0
	for _, f := range candidates {
		if visited >= g.maxFeatures {
			break
		}
		for k, i := range samples {
			buf[k] = splitSample{value: g.X[i].At(f), weight: g.weight[i], label: g.y[i]}
		}
		sort.Slice(buf, func(a, b int) bool { return buf[a].value < buf[b].value })
		if buf[0].value == buf[len(buf)-1].value {
			continue
		}
		visited++

		var leftNeg, leftPos float64
		for k := 0; k < len(buf)-1; k++ {
			if buf[k].label == 1 {
				leftPos += buf[k].weight
			} else {
				leftNeg += buf[k].weight
			}
			if buf[k].value == buf[k+1].value {
				continue
			}
			leftW := leftNeg + leftPos
			rightNeg, rightPos := neg-leftNeg, pos-leftPos
			child := (leftW*gini(leftNeg, leftPos) + (total-leftW)*gini(rightNeg, rightPos)) / total
			if gain := parent - child; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (buf[k].value + buf[k+1].value) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
