// Package patterns flags well-known spam phrasing with a fixed table of
// regular expressions. It runs alongside the classifiers and never feeds them.
package patterns

import (
	"regexp"
)

// Pattern pairs a human-readable label with the expression that detects it.
type Pattern struct {
	Label string
	Regex *regexp.Regexp
}

// DefaultPatterns is the ordered detection table. Order is the order labels
// are reported in.
var DefaultPatterns = []Pattern{
	{"win money", regexp.MustCompile(`(?i)\b(win|won|winner)\s+(money|\$|₹|prize|cash)`)},
	{"free money", regexp.MustCompile(`(?i)\b(free|claim|collect)\s+(money|cash|reward|prize)`)},
	{"urgent", regexp.MustCompile(`(?i)\b(urgent|immediately|act\s+now)`)},
	{"click here", regexp.MustCompile(`(?i)\b(click|verify|confirm)\s+(here|now|account)`)},
	{"account suspended", regexp.MustCompile(`(?i)\b(account|password)\s+(suspended|blocked|verify)`)},
	{"lottery", regexp.MustCompile(`(?i)\blottery\b`)},
	{"congratulations", regexp.MustCompile(`(?i)\bcongratulations?\b`)},
	{"selected", regexp.MustCompile(`(?i)\bselected\b`)},
	{"contains URL", regexp.MustCompile(`(?i)https?://[^\s]+`)},
}

// Detector matches raw text against a pattern table.
type Detector struct {
	patterns []Pattern
}

// NewDetector returns a Detector over DefaultPatterns.
func NewDetector() *Detector {
	return &Detector{patterns: DefaultPatterns}
}

// NewDetectorWithPatterns returns a Detector over a custom table.
func NewDetectorWithPatterns(patterns []Pattern) *Detector {
	return &Detector{patterns: patterns}
}

// Detect returns the labels of every pattern found at least once in text,
// in table order. The result is never nil.
func (d *Detector) Detect(text string) []string {
	found := make([]string, 0)
	if text == "" {
		return found
	}
	for _, p := range d.patterns {
		if p.Regex.MatchString(text) {
			found = append(found, p.Label)
		}
	}
	return found
}

// Labels returns all labels of the table in order.
func (d *Detector) Labels() []string {
	labels := make([]string, len(d.patterns))
	for i, p := range d.patterns {
		labels[i] = p.Label
	}
	return labels
}
