package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextProcessor provides utilities for processing email text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// Normalize lowercases text and collapses every run of whitespace into a
// single space. Leading and trailing whitespace is dropped.
func (tp *TextProcessor) Normalize(text string) string {
	if text == "" {
		return ""
	}
	// A Caser is stateful and must not be shared between goroutines.
	lowered := cases.Lower(language.Und).String(text)
	return strings.Join(strings.Fields(lowered), " ")
}

// NormalizeAll normalizes every entry of texts into a new slice
func (tp *TextProcessor) NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = tp.Normalize(t)
	}
	return out
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 bytes from text
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// CombineSubjectBody joins a subject and body the way the classifier sees them
func CombineSubjectBody(subject, body string) string {
	return subject + " " + body
}

// TextStats holds simple surface statistics of a message
type TextStats struct {
	CharCount     int
	WordCount     int
	AvgWordLength float64
	Exclamations  int
	Questions     int
	DollarSigns   int
	RupeeSigns    int
	CapsRatio     float64
	URLCount      int
}

// ComputeStats returns surface statistics of raw (non-normalized) text
func (tp *TextProcessor) ComputeStats(text string) TextStats {
	words := strings.Fields(text)
	stats := TextStats{
		CharCount:    utf8.RuneCountInString(text),
		WordCount:    len(words),
		Exclamations: strings.Count(text, "!"),
		Questions:    strings.Count(text, "?"),
		DollarSigns:  strings.Count(text, "$"),
		RupeeSigns:   strings.Count(text, "₹"),
	}

	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += utf8.RuneCountInString(w)
		}
		stats.AvgWordLength = float64(total) / float64(len(words))
	}

	if stats.CharCount > 0 {
		upper := 0
		for _, r := range text {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		stats.CapsRatio = float64(upper) / float64(stats.CharCount)
	}

	lower := strings.ToLower(text)
	stats.URLCount = strings.Count(lower, "http://") + strings.Count(lower, "https://")

	return stats
}
