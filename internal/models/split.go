package models

import (
	"math"
	"math/rand/v2"
	"sort"
)

// SplitSeed is the seed of the train/test split used for training.
const SplitSeed = 42

// StratifiedSplit partitions sample indices so that round(testRatio*count)
// of every class lands in the test set. The result depends only on labels,
// testRatio and seed. Both index slices are sorted.
func StratifiedSplit(labels []int, testRatio float64, seed uint64) (train, test []int) {
	byClass := map[int][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewPCG(seed, seed))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testRatio * float64(len(idx))))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test
}
