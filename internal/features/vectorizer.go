// Package features turns normalized email text into TF-IDF weighted sparse
// vectors over a vocabulary frozen at fit time.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNotFitted is returned by Transform before Fit has succeeded.
var ErrNotFitted = errors.New("vectorizer is not fitted")

// Config holds the vocabulary selection knobs.
type Config struct {
	MaxFeatures int
	MinDF       int
	MaxDFRatio  float64
	MinN        int
	MaxN        int
}

// DefaultConfig returns the settings the classifiers are trained with.
func DefaultConfig() Config {
	return Config{
		MaxFeatures: 3000,
		MinDF:       2,
		MaxDFRatio:  0.9,
		MinN:        1,
		MaxN:        3,
	}
}

// Vectorizer is a TF-IDF transform. Fields are exported so the fitted state
// can be encoded with encoding/gob.
type Vectorizer struct {
	Config     Config
	Vocabulary map[string]int
	IDF        []float64
}

// NewVectorizer returns an unfitted vectorizer.
func NewVectorizer(cfg Config) *Vectorizer {
	return &Vectorizer{Config: cfg}
}

// Fitted reports whether a vocabulary has been learned.
func (v *Vectorizer) Fitted() bool {
	return v != nil && v.Vocabulary != nil && len(v.IDF) == len(v.Vocabulary)
}

// NumFeatures returns the vocabulary size.
func (v *Vectorizer) NumFeatures() int {
	if !v.Fitted() {
		return 0
	}
	return len(v.IDF)
}

func (v *Vectorizer) tokens(text string) []string {
	return Tokenize(text, v.Config.MinN, v.Config.MaxN, EnglishStopWords)
}

// Fit learns the vocabulary and inverse document frequencies from corpus.
// Fit is deterministic for a given corpus and config.
func (v *Vectorizer) Fit(corpus []string) error {
	n := len(corpus)
	if n == 0 {
		return fmt.Errorf("fit vectorizer: empty corpus")
	}

	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range v.tokens(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	maxDF := v.Config.MaxDFRatio * float64(n)
	type termDF struct {
		term string
		df   int
	}
	kept := make([]termDF, 0, len(df))
	for term, count := range df {
		if count < v.Config.MinDF || float64(count) > maxDF {
			continue
		}
		kept = append(kept, termDF{term, count})
	}
	if len(kept) == 0 {
		return fmt.Errorf("fit vectorizer: no terms survive document frequency bounds")
	}

	if v.Config.MaxFeatures > 0 && len(kept) > v.Config.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].df != kept[j].df {
				return kept[i].df > kept[j].df
			}
			return kept[i].term < kept[j].term
		})
		kept = kept[:v.Config.MaxFeatures]
	}

	// Indices follow lexical order of the retained terms.
	sort.Slice(kept, func(i, j int) bool { return kept[i].term < kept[j].term })

	vocab := make(map[string]int, len(kept))
	idf := make([]float64, len(kept))
	for i, t := range kept {
		vocab[t.term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+t.df)) + 1
	}

	v.Vocabulary = vocab
	v.IDF = idf
	return nil
}

// Transform maps text onto the frozen vocabulary. Unknown terms are dropped.
func (v *Vectorizer) Transform(text string) (Vector, error) {
	if !v.Fitted() {
		return Vector{}, ErrNotFitted
	}

	counts := make(map[int]float64)
	for _, tok := range v.tokens(text) {
		if idx, ok := v.Vocabulary[tok]; ok {
			counts[idx]++
		}
	}

	vec := Vector{
		Dim:     len(v.IDF),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, counts[idx]*v.IDF[idx])
	}
	vec.normalizeL2()
	return vec, nil
}

// TransformAll transforms every text of corpus.
func (v *Vectorizer) TransformAll(corpus []string) ([]Vector, error) {
	out := make([]Vector, len(corpus))
	for i, doc := range corpus {
		vec, err := v.Transform(doc)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// FitTransform fits on corpus and returns its vectors.
func (v *Vectorizer) FitTransform(corpus []string) ([]Vector, error) {
	if err := v.Fit(corpus); err != nil {
		return nil, err
	}
	return v.TransformAll(corpus)
}

// Terms returns the vocabulary ordered by index.
func (v *Vectorizer) Terms() []string {
	terms := make([]string, len(v.IDF))
	for term, idx := range v.Vocabulary {
		terms[idx] = term
	}
	return terms
}
