package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/adapters/dataset"
	"github.com/mikey/ml-spam-filter/internal/api"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/factory"
	"github.com/mikey/ml-spam-filter/internal/logging"
	"github.com/mikey/ml-spam-filter/internal/utils"
	"github.com/mikey/ml-spam-filter/internal/whitelist"
)

// ConfigFile is an explicit config path; empty searches the default locations
type ConfigFile string

// BuildContainer creates the container for the filter daemon: API server,
// mail front-end and everything they depend on
func BuildContainer(file ConfigFile) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.New(string(file))
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideService(container); err != nil {
		return nil, err
	}

	// Register prediction cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.PredictionCache, error) {
		return f.CreatePredictionCache()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (core.ServiceConfig, error) {
		return f.ServiceConfig()
	}); err != nil {
		return nil, err
	}

	// Register API server
	if err := container.Provide(func(cfg *config.Config, svc *core.SpamFilterService, logger *zap.Logger) (*api.Server, error) {
		apiCfg, err := cfg.GetAPI()
		if err != nil {
			return nil, err
		}
		return api.NewServer(svc, logger, api.Options{
			ListenAddress:  apiCfg.ListenAddress,
			AdminKey:       apiCfg.AdminKey,
			DefaultDataset: cfg.DatasetPath(),
			ReadTimeout:    apiCfg.ReadTimeout,
			WriteTimeout:   apiCfg.WriteTimeout,
		}), nil
	}); err != nil {
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

// provideService registers the factories and the spam filter service. The
// caller provides the config, logger, cache and service config.
func provideService(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register dataset loader
	if err := container.Provide(func(logger *zap.Logger) core.DatasetLoader {
		return dataset.NewCSVLoader(logger)
	}); err != nil {
		return err
	}

	// Register artifact store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ArtifactStore, error) {
		return f.CreateArtifactStore()
	}); err != nil {
		return err
	}

	// Register whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		domains := cfg.WhitelistedDomains()
		if len(domains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
		}
		return whitelist.NewChecker(domains, logger)
	}); err != nil {
		return err
	}

	// Register spam filter service
	return container.Provide(core.NewSpamFilterService)
}
