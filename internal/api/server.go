package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uniscore-io/uniscore/internal/api/middleware"
)

type (
	// Deps holds the server's runtime dependencies, injected separately from
	// the pure configuration in ServerConfig.
	Deps struct {
		Store       Store
		Runner      MappingRunner
		RateLimiter middleware.RateLimiter
		KeyVerifier middleware.KeyVerifier
	}

	// Server is the uniscore HTTP API server.
	Server struct {
		httpServer  *http.Server
		logger      *slog.Logger
		config      *ServerConfig
		startTime   time.Time
		store       Store
		runner      MappingRunner
		rateLimiter middleware.RateLimiter
	}
)

// NewServer builds the HTTP server with its middleware stack and routes. A
// nil Deps.RateLimiter disables rate limiting; a nil Deps.KeyVerifier leaves
// the admin endpoints rejecting every request.
func NewServer(cfg *ServerConfig, deps Deps) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mux := http.NewServeMux()

	server := &Server{
		logger:      logger,
		config:      cfg,
		store:       deps.Store,
		runner:      deps.Runner,
		rateLimiter: deps.RateLimiter,
	}

	server.setupRoutes(mux)

	if deps.KeyVerifier == nil {
		logger.Warn("internal API key not configured, admin endpoints disabled")
	}

	if deps.RateLimiter == nil {
		logger.Warn("rate limiter not configured, rate limiting disabled")
	}

	// Middleware executes top-to-bottom: correlation ids first so every
	// response carries one, recovery next so downstream panics still produce
	// a problem document, auth and rate limiting before any expensive work,
	// logging only for requests that made it through.
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithInternalAuth(deps.KeyVerifier, logger),
		middleware.WithRateLimit(deps.RateLimiter, logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start runs the HTTP server and blocks until shutdown. It handles graceful
// shutdown on SIGINT and SIGTERM.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting uniscore API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))

		return s.shutdown()
	}
}

// shutdown drains in-flight requests, then releases the rate limiter's
// background goroutine.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		if limiter, ok := s.rateLimiter.(io.Closer); ok {
			if err := limiter.Close(); err != nil {
				s.logger.Error("failed to close rate limiter", slog.String("error", err.Error()))
			}
		}
	}

	s.logger.Info("server shutdown completed")

	return nil
}
