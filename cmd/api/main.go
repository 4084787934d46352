package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-ranker/internal/api"
	"resume-ranker/internal/config"
	"resume-ranker/internal/engine"
	"resume-ranker/internal/postgresdb"
	"resume-ranker/internal/s3"
	"resume-ranker/internal/valkeydb"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred Close calls always happen.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.RequireServices(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := postgresdb.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize postgresdb: %w", err)
	}
	defer postgresDB.Close()

	if err := postgresDB.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	valkeyQueue, err := valkeydb.New(ctx, cfg.ValkeyURL, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("failed to initialize valkey: %w", err)
	}
	defer valkeyQueue.Close()

	s3Store, err := s3.NewFileStore(ctx, s3.S3Config{
		EndpointURL: cfg.S3.EndpointURL,
		Region:      cfg.S3.Region,
		AccessKey:   cfg.S3.AccessKey,
		SecretKey:   cfg.S3.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("could not create S3 filestore: %w", err)
	}
	if err := s3Store.EnsureBucket(ctx, cfg.S3.Bucket); err != nil {
		return fmt.Errorf("could not prepare S3 bucket %s: %w", cfg.S3.Bucket, err)
	}
	logger.Info("S3 FileStore initialized", "bucket", cfg.S3.Bucket)

	rankingPipeline, err := engine.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build ranking pipeline: %w", err)
	}

	apiHandler := api.NewAPIHandler(postgresDB, valkeyQueue, s3Store, cfg.S3.Bucket, rankingPipeline,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithHealthCheck("postgres", postgresDB),
		api.WithHealthCheck("valkey", valkeyQueue),
		api.WithLogger(logger),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, server, logger)
}

// serve runs server until ctx is cancelled, then waits for in-flight
// requests to drain before returning.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		drained <- server.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}

	if err := <-drained; err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("api shutdown complete")
	return nil
}
