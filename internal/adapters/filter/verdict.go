package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// Analyzer classifies a parsed email
type Analyzer interface {
	AnalyzeEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error)
}

// HeaderNames are the headers stamped on filtered mail
type HeaderNames struct {
	Spam   string
	Score  string
	Reason string
}

// DefaultHeaderNames returns the X-Spam-* header names
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Spam:   "X-Spam-Status",
		Score:  "X-Spam-Score",
		Reason: "X-Spam-Reason",
	}
}

// Options configure how a mail front-end acts on a verdict
type Options struct {
	ListenAddress string
	BlockSpam     bool
	Headers       HeaderNames
	SubjectPrefix string
	ModifySubject bool
	Timeout       time.Duration
}

const analysisErrorHeader = "X-Spam-Analysis-Error"

type header struct {
	name  string
	value string
}

// verdict is the outcome of analysing one message
type verdict struct {
	result *core.PredictionResult
	err    error
}

// analyze runs the analyzer. Failures yield a ham verdict so mail keeps
// flowing while models are unavailable.
func analyze(ctx context.Context, a Analyzer, email *core.Email, timeout time.Duration) verdict {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := a.AnalyzeEmail(ctx, email)
	if err != nil {
		return verdict{
			result: &core.PredictionResult{
				Explanation: fmt.Sprintf("Error during analysis: %v", err),
				ModelUsed:   "error",
				AnalyzedAt:  time.Now(),
			},
			err: err,
		}
	}
	return verdict{result: result}
}

// reject reports whether the message should be refused. Mail is never
// refused on an analysis error.
func (v verdict) reject(opts Options) bool {
	return v.err == nil && v.result.IsSpam && opts.BlockSpam
}

// headers returns the headers to add, in order
func (v verdict) headers(names HeaderNames) []header {
	hs := []header{
		{names.Spam, fmt.Sprintf("%t", v.result.IsSpam)},
		{names.Score, fmt.Sprintf("%.4f", v.result.Score)},
		{names.Reason, sanitizeHeaderValue(v.result.Explanation)},
	}
	if v.err != nil {
		hs = append(hs, header{analysisErrorHeader, sanitizeHeaderValue(v.err.Error())})
	}
	return hs
}

// taggedSubject returns the subject to use and whether it changed
func (v verdict) taggedSubject(subject string, opts Options) (string, bool) {
	if !v.result.IsSpam || !opts.ModifySubject || opts.SubjectPrefix == "" {
		return subject, false
	}
	if strings.HasPrefix(subject, opts.SubjectPrefix) {
		return subject, false
	}
	return opts.SubjectPrefix + subject, true
}

// sanitizeHeaderValue folds a value onto one line
func sanitizeHeaderValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func senderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.ToLower(from[i+1:])
	}
	return "unknown"
}
