package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/di"
)

// deps is what every subcommand gets from the container
type deps struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.SpamFilterService
	filter  core.EmailFilter
	store   core.ArtifactStore
}

func newRootCmd() *cobra.Command {
	flags := &di.CLIFlags{}

	root := &cobra.Command{
		Use:   "spam-trainer",
		Short: "Train and inspect the ML spam filter models",
		Long: `spam-trainer trains the TF-IDF vectorizer and the four-model ensemble
(naive bayes, SVM, random forest, logistic regression) from a labeled CSV
corpus, and analyses messages with the persisted models.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	root.PersistentFlags().StringVar(&flags.ArtifactsDir, "models-dir", "", "Directory of model artifacts (overrides the configured store)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	root.AddCommand(newTrainCmd(flags))
	root.AddCommand(newAnalyzeCmd(flags))
	root.AddCommand(newStatsCmd(flags))
	return root
}

// withDeps builds the CLI container and runs fn with its dependencies
func withDeps(flags *di.CLIFlags, fn func(d deps) error) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(
		cfg *config.Config,
		logger *zap.Logger,
		service *core.SpamFilterService,
		filter core.EmailFilter,
		store core.ArtifactStore,
	) error {
		defer logger.Sync()
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}
		return fn(deps{cfg: cfg, logger: logger, service: service, filter: filter, store: store})
	})
}

// loadModels makes the service ready from persisted artifacts
func loadModels(ctx context.Context, d deps) error {
	if err := d.service.LoadArtifacts(ctx); err != nil {
		return fmt.Errorf("no trained models available, run 'spam-trainer train' first: %w", err)
	}
	return nil
}
