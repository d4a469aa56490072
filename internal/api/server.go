// Package api exposes the spam filter over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options configure the HTTP server
type Options struct {
	ListenAddress  string
	AdminKey       string
	DefaultDataset string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewRouter builds the chi router for the API
func NewRouter(service Service, logger *zap.Logger, opts Options) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := NewHandlers(service, logger, opts.DefaultDataset)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/predict", h.Predict)
		r.Get("/stats", h.Stats)
		r.With(requireKey(opts.AdminKey, logger)).Post("/retrain", h.Retrain)
	})

	return r
}

// Server runs the API until stopped
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates an HTTP server for the API
func NewServer(service Service, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.ListenAddress,
			Handler:           NewRouter(service, logger, opts),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
		},
		logger: logger,
	}
}

// Start serves in the background. Listen errors other than a clean shutdown
// are logged.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop waits for in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
