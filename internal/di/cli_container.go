package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/factory"
	"github.com/mikey/ml-spam-filter/internal/logging"
)

// CLIFlags contains the global flags of the trainer CLI
type CLIFlags struct {
	ConfigFile   string
	ArtifactsDir string
	Verbose      bool
	JSONLog      bool
}

// BuildCLIContainer creates the container for the trainer CLI. Predictions
// are never cached and no mail front-end is started.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration, with flags taking precedence over the file
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.New(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		if flags.ArtifactsDir != "" {
			cfg.Set("artifacts.type", "file")
			cfg.Set("artifacts.dir", flags.ArtifactsDir)
		}
		cfg.Set("server.filter_type", "cli")
		cfg.Set("cli.verbose", flags.Verbose)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// No cache for the CLI
	if err := container.Provide(func() core.PredictionCache { return nil }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() core.ServiceConfig { return core.ServiceConfig{} }); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory, svc *core.SpamFilterService) (core.EmailFilter, error) {
		return f.CreateEmailFilter(svc)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
