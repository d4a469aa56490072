package patterns

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSpamScenario(t *testing.T) {
	d := NewDetector()
	text := "URGENT: You Won $1,000,000! Congratulations! You have been selected as our winner. " +
		"Click here to claim your prize now: http://prize.example.com"

	found := d.Detect(text)

	assert.Equal(t, []string{
		"win money",
		"urgent",
		"click here",
		"congratulations",
		"selected",
		"contains URL",
	}, found)
}

func TestDetectHamHasNoPatterns(t *testing.T) {
	d := NewDetector()
	found := d.Detect("Team Meeting Tomorrow Hi all, the weekly sync moves to 3pm in room B. Bring the roadmap notes.")
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

func TestDetectIndividualPatterns(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		text  string
		label string
	}{
		{"collect cash today", "free money"},
		{"Free Money inside", "free money"},
		{"please act  now", "urgent"},
		{"verify account details", "click here"},
		{"your password blocked", "account suspended"},
		{"National LOTTERY results", "lottery"},
		{"congratulation friend", "congratulations"},
		{"see https://example.org/x", "contains URL"},
		{"winner prize awaits", "win money"},
	}

	for _, tt := range tests {
		t.Run(tt.label+"/"+tt.text, func(t *testing.T) {
			assert.Contains(t, d.Detect(tt.text), tt.label)
		})
	}
}

func TestDetectWordBoundaries(t *testing.T) {
	d := NewDetector()
	assert.Empty(t, d.Detect("the lotteryticket was unselected"))
}

func TestDetectIsPure(t *testing.T) {
	d := NewDetector()
	text := "Congratulations, you were selected! Click now http://a.b"
	assert.Equal(t, d.Detect(text), d.Detect(text))
}

func TestLabelsAreCoIndexedWithTable(t *testing.T) {
	d := NewDetector()
	labels := d.Labels()
	assert.Len(t, labels, len(DefaultPatterns))
	for i, p := range DefaultPatterns {
		assert.Equal(t, p.Label, labels[i])
	}
}

func TestCustomTable(t *testing.T) {
	d := NewDetectorWithPatterns([]Pattern{
		{"crypto", regexp.MustCompile(`(?i)\bbitcoin\b`)},
		{"pharmacy", regexp.MustCompile(`(?i)\bpills?\b`)},
	})
	assert.Equal(t, []string{"crypto", "pharmacy"}, d.Detect("cheap PILLS, pay in Bitcoin"))
	assert.Empty(t, d.Detect("lottery winner"))
}
