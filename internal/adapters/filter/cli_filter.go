package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// CliFilter prints a report for each analysed email
type CliFilter struct {
	analyzer Analyzer
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCliFilter creates a new CLI filter writing to out, or stdout when out
// is nil
func NewCliFilter(analyzer Analyzer, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	return &CliFilter{
		analyzer: analyzer,
		logger:   logger,
		out:      out,
		verbose:  verbose,
	}
}

// ProcessEmail analyses an email and prints the result
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	start := time.Now()
	result, err := f.analyzer.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	duration := time.Since(start)

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Is spam: %t\n", result.IsSpam)
	fmt.Fprintf(f.out, "Spam score: %.4f\n", result.Score)
	if len(result.DetectedPatterns) > 0 {
		fmt.Fprintf(f.out, "Detected patterns: %s\n", strings.Join(result.DetectedPatterns, ", "))
	}
	if len(result.ModelPredictions) > 0 {
		names := make([]string, 0, len(result.ModelPredictions))
		for name := range result.ModelPredictions {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(f.out, "Model predictions:\n")
		for _, name := range names {
			fmt.Fprintf(f.out, "  %-20s %.4f\n", name, result.ModelPredictions[name])
		}
	}
	fmt.Fprintf(f.out, "Explanation: %s\n", result.Explanation)
	fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
