package features

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize splits normalized text into word tokens of at least two
// characters, drops stop words and expands the remainder into n-grams of
// length minN..maxN joined by a single space.
func Tokenize(text string, minN, maxN int, stopWords map[string]struct{}) []string {
	raw := tokenPattern.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}

	words := raw[:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		words = append(words, tok)
	}

	if maxN <= 1 {
		return words
	}

	out := make([]string, 0, len(words)*(maxN-minN+1))
	for n := minN; n <= maxN; n++ {
		if n == 1 {
			out = append(out, words...)
			continue
		}
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}
