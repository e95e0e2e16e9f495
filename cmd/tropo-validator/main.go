package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/opera-adt/tropo-validator/internal/adapter/http"
	kafkaadapter "github.com/opera-adt/tropo-validator/internal/adapter/kafka"
	ncadapter "github.com/opera-adt/tropo-validator/internal/adapter/netcdf"
	"github.com/opera-adt/tropo-validator/internal/compute"
	"github.com/opera-adt/tropo-validator/internal/config"
	"github.com/opera-adt/tropo-validator/internal/domain"
	"github.com/opera-adt/tropo-validator/internal/observability"
	"github.com/opera-adt/tropo-validator/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	pool, err := compute.New(compute.Settings{
		Workers:          cfg.Workers,
		ThreadsPerWorker: cfg.ThreadsPerWorker,
		MemoryLimit:      cfg.WorkerMemory,
		BlockShape:       cfg.BlockShape,
	})
	if err != nil {
		logger.Error("invalid worker settings", "error", err)
		os.Exit(1)
	}
	pool.WithDurationObserver(metrics.StatsDuration)
	logger.Info("compute pool ready",
		"workers", cfg.Workers,
		"threads_per_worker", cfg.ThreadsPerWorker,
		"worker_memory_bytes", cfg.WorkerMemory,
		"block_shape", cfg.BlockShape,
	)

	validator := pipeline.NewValidator(
		ncadapter.NewLoader(logger),
		domain.NewSanitizer(pool, logger),
		pipeline.NewReportCache(cfg.ReportCacheSize),
		logger,
		metrics,
	)
	if cfg.SanitizedSuffix != "" {
		validator.WithSanitizedOutput(cfg.SanitizedSuffix, ncadapter.Write)
		logger.Info("sanitized output enabled", "suffix", cfg.SanitizedSuffix)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, validator, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start validation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
