package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"resume-ranker/internal/config"
	"resume-ranker/internal/engine"
	"resume-ranker/internal/postgresdb"
	"resume-ranker/internal/processor"
	"resume-ranker/internal/s3"
	"resume-ranker/internal/valkeydb"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", "error", err)
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

	logger := config.NewLogger(cfg.LogLevel).With("worker_id", cfg.WorkerID)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgresDB, err := postgresdb.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize postgresdb: %w", err)
	}
	defer postgresDB.Close()

	valkeyClient, err := valkeydb.New(ctx, cfg.ValkeyURL, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("failed to initialize valkey: %w", err)
	}
	defer valkeyClient.Close()

	// in-flight jobs are tracked per worker, so several workers can share
	// the pending list without recovering each other's jobs
	valkeyQueue := valkeyClient.ForWorker(cfg.WorkerID)

	s3Store, err := s3.NewFileStore(ctx, s3.S3Config{
		EndpointURL: cfg.S3.EndpointURL,
		Region:      cfg.S3.Region,
		AccessKey:   cfg.S3.AccessKey,
		SecretKey:   cfg.S3.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("could not create S3 filestore: %w", err)
	}

	rankingPipeline, err := engine.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build ranking pipeline: %w", err)
	}

	// jobs this worker held when it last stopped go back to the pending list
	requeued, err := valkeyQueue.RequeueInFlight(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue in-flight jobs: %w", err)
	}
	if requeued > 0 {
		logger.Info("requeued in-flight jobs", "count", requeued, "list", valkeyQueue.ProcessingKey())
	}

	workerQueue := processor.NewJobProcessor(
		postgresDB,
		valkeyQueue,
		s3Store,
		cfg.S3.Bucket,
		rankingPipeline,
		processor.WithLogger(logger),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		workerQueue.Run(ctx)
		close(done)
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("shutdown signal received, stopping workers")
	cancel()
	<-done

	logger.Info("worker shutdown complete")
	return nil
}
