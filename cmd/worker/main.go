package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-insights/internal/backend"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/gcsuploader"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: FINSIGHT_CONFIG or ./finsight.yaml)")
	runOnStart := flag.Bool("run-on-start", true, "Publish an analysis job immediately instead of waiting one interval")
	flag.Parse()

	bootLog := logger.New()

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Invalid log configuration")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	storage := gcsuploader.NewGCSStorageService()
	be, err := backend.Open(ctx, cfg.Store, storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open storage backend")
	}
	defer be.Close()

	if be.Sink() == nil {
		log.Warn().Str("backend", be.Name).Msg("Backend does not persist runs; results are only exported")
	}
	exporter := backend.NewReportExporter(storage, cfg.GCS.ReportBucket)
	if exporter == nil {
		log.Warn().Msg("No gcs.report_bucket configured - reports will not be exported")
	}

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.Worker.QueueSize,
		Workers:    cfg.Worker.Workers,
		MaxRetries: cfg.Worker.MaxRetries,
	}, jobStore)

	handler := jobs.NewAnalysisHandler(be.NewAnalyzer(cfg.Rules), exporter)
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	scheduler := jobs.NewScheduler(jobQueue, cfg.Worker.Interval, cfg.Worker.LookbackMonths, *runOnStart)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Scheduler stopped with error")
		}
	}()

	log.Info().
		Str("backend", be.Name).
		Dur("interval", cfg.Worker.Interval).
		Int("lookback_months", cfg.Worker.LookbackMonths).
		Int("workers", cfg.Worker.Workers).
		Msg("Worker service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue first so in-flight analyses finish, then cancel the scheduler
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()
	<-schedulerDone

	log.Info().Msg("Worker service exited")
}
