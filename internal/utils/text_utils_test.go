package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tp := NewTextProcessor(nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "URGENT Offer", "urgent offer"},
		{"collapses whitespace", "  hello\t\tworld \n\n again  ", "hello world again"},
		{"keeps punctuation", "You Won $1,000,000!", "you won $1,000,000!"},
		{"whitespace only", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tp.Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tp := NewTextProcessor(nil)
	once := tp.Normalize("Team   Meeting\nTOMORROW")
	assert.Equal(t, once, tp.Normalize(once))
}

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	out := tp.TruncateText("héllo", 2)
	assert.Equal(t, "h", out)
	assert.Equal(t, "short", tp.TruncateText("short", 0))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "abc", tp.SanitizeUTF8("a\xffbc"))
	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
}

func TestComputeStats(t *testing.T) {
	tp := NewTextProcessor(nil)
	stats := tp.ComputeStats("WIN now! Visit https://x.io")

	assert.Equal(t, 4, stats.WordCount)
	assert.Equal(t, 1, stats.Exclamations)
	assert.Equal(t, 1, stats.URLCount)
	assert.Greater(t, stats.CapsRatio, 0.0)
}

func TestComputeStatsCurrencyAndUnicodeCaps(t *testing.T) {
	tp := NewTextProcessor(nil)
	stats := tp.ComputeStats("ÉTÉ ₹500 or $5 ₹")

	assert.Equal(t, 2, stats.RupeeSigns)
	assert.Equal(t, 1, stats.DollarSigns)
	// É, T and É are upper case out of 16 runes.
	assert.InDelta(t, 3.0/16.0, stats.CapsRatio, 1e-9)
}
