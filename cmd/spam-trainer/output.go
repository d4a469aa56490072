package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/models"
	"github.com/mikey/ml-spam-filter/internal/utils"
)

// printTrainingSummary writes the per-model table and the best model
func printTrainingSummary(w io.Writer, stats *core.TrainingStatistics) {
	if stats == nil {
		return
	}
	fmt.Fprintf(w, "\nDataset: %d emails (%d spam, %d ham), train %d / test %d, %d features\n\n",
		stats.DatasetSize, stats.SpamCount, stats.HamCount, stats.TrainSize, stats.TestSize, stats.FeatureCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tTRAIN ACC\tTEST ACC\tPRECISION\tRECALL\tF1")
	for _, name := range models.Names {
		m, ok := stats.Models[name]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			name, m.TrainAccuracy, m.TestAccuracy, m.Precision, m.Recall, m.F1Score)
	}
	tw.Flush()

	if best, m := stats.BestModel(); best != "" {
		fmt.Fprintf(w, "\nBest model: %s (test accuracy %.4f)\n", best, m.TestAccuracy)
	}
}

// printPrediction writes an ensemble result
func printPrediction(w io.Writer, result *core.PredictionResult) {
	verdict := "HAM"
	if result.IsSpam {
		verdict = "SPAM"
	}
	fmt.Fprintf(w, "Verdict: %s (score %.4f)\n", verdict, result.Score)

	names := make([]string, 0, len(result.ModelPredictions))
	for name := range result.ModelPredictions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %.4f\n", name, result.ModelPredictions[name])
	}

	if len(result.DetectedPatterns) > 0 {
		fmt.Fprintf(w, "Detected patterns: %s\n", strings.Join(result.DetectedPatterns, ", "))
	} else {
		fmt.Fprintln(w, "Detected patterns: none")
	}
}

// printTextStats writes surface statistics of the analysed text
func printTextStats(w io.Writer, s utils.TextStats) {
	fmt.Fprintf(w, "\n=== Text statistics ===\n")
	fmt.Fprintf(w, "Characters: %d\n", s.CharCount)
	fmt.Fprintf(w, "Words: %d (avg length %.2f)\n", s.WordCount, s.AvgWordLength)
	fmt.Fprintf(w, "Caps ratio: %.4f\n", s.CapsRatio)
	fmt.Fprintf(w, "Exclamations: %d, questions: %d, dollar signs: %d, rupee signs: %d\n",
		s.Exclamations, s.Questions, s.DollarSigns, s.RupeeSigns)
	fmt.Fprintf(w, "URLs: %d\n", s.URLCount)
}

// writeStats renders training statistics as text, json or yaml
func writeStats(w io.Writer, stats *core.TrainingStatistics, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "Trained at: %s\n", stats.TrainedAt.Format("2006-01-02 15:04:05 MST"))
		printTrainingSummary(w, stats)
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
