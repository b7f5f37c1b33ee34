package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/domain/search/request"
	chiTransport "github.com/huntkil/lexis/internal/transport/chi"
	rebuilduc "github.com/huntkil/lexis/internal/usecase/rebuild"
	"github.com/huntkil/lexis/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		defer func() { _ = a.logger.Sync() }()
		return serve(ctx, a)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting lexis API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("entity_types", a.registry.Types()),
	)

	if cfg.Maintenance.RebuildOnStart {
		// A failed type stays queryable as unavailable; the server still starts.
		if err := a.warmUp(ctx); err != nil {
			logger.Warn("Startup rebuild incomplete", zap.Error(err))
		}
	}

	var scheduler *rebuilduc.Scheduler
	if cfg.Maintenance.RebuildSchedule != "" {
		var err error
		scheduler, err = rebuilduc.NewScheduler(cfg.Maintenance.RebuildSchedule, a.rebuild, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		logger.Info("Rebuild scheduler started", zap.String("schedule", cfg.Maintenance.RebuildSchedule))
	}

	server := chiTransport.NewServer(a.search, a.suggest, a.records, a.rebuild, a.health, a.registry, logger).
		WithLimits(request.Limits{Default: cfg.Search.DefaultLimit, Max: cfg.Search.MaxLimit}).
		WithAdminTokens(cfg.HTTP.AdminTokens)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
