package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/api"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
	"github.com/mikey/ml-spam-filter/internal/di"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: search standard locations)")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(di.ConfigFile(*configFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.SpamFilterService,
	server *api.Server,
	emailFilter core.EmailFilter,
	store core.ArtifactStore,
	cache core.PredictionCache,
) error {
	defer logger.Sync()

	apiCfg, err := cfg.GetAPI()
	if err != nil {
		return err
	}

	// A missing model set is not fatal: the API reports models_loaded=false
	// until /api/retrain succeeds.
	if err := service.LoadArtifacts(context.Background()); err != nil {
		logger.Warn("Starting without models", zap.Error(err))
	}

	if apiCfg.Enabled {
		if err := server.Start(); err != nil {
			return err
		}
	}

	if emailFilter != nil {
		if err := emailFilter.Start(); err != nil {
			logger.Error("Failed to start filter", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if emailFilter != nil {
		if err := emailFilter.Stop(); err != nil {
			logger.Error("Failed to stop filter", zap.Error(err))
		}
	}

	if apiCfg.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), apiCfg.ShutdownTimeout)
		if err := server.Stop(ctx); err != nil {
			logger.Error("Failed to stop API server", zap.Error(err))
		}
		cancel()
	}

	// Stop the cache if needed
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	// Close the artifact store if it holds a connection
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close artifact store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
