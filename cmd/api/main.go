package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/api"
	"github.com/dvloznov/finance-insights/internal/backend"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/gcsuploader"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config file (default: FINSIGHT_CONFIG or ./finsight.yaml)")
		port       = flag.Int("port", 0, "HTTP server port (overrides server.port)")
		schedule   = flag.Bool("schedule", false, "Also run the periodic analysis scheduler in this process")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log, err := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid log configuration")
	}
	ctx := logger.WithContext(context.Background(), log)

	storage := gcsuploader.NewGCSStorageService()
	be, err := backend.Open(ctx, cfg.Store, storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open storage backend")
	}
	defer func() {
		if err := be.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage backend")
		}
	}()

	analyzer := be.NewAnalyzer(cfg.Rules)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.Worker.QueueSize,
		Workers:    cfg.Worker.Workers,
		MaxRetries: cfg.Worker.MaxRetries,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := jobs.NewAnalysisHandler(analyzer, backend.NewReportExporter(storage, cfg.GCS.ReportBucket))
	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	if *schedule {
		scheduler := jobs.NewScheduler(jobQueue, cfg.Worker.Interval, cfg.Worker.LookbackMonths, true)
		go func() {
			if err := scheduler.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Scheduler stopped with error")
			}
		}()
	}

	deps := api.Deps{
		Analyzer:       analyzer,
		Results:        be.Results,
		Publisher:      jobQueue,
		JobStore:       jobStore,
		Entries:        be.Entries,
		LookbackMonths: cfg.Worker.LookbackMonths,
		ForecastMonths: cfg.Rules.ForecastHorizon,
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      api.NewRouter(deps, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("backend", be.Name).
			Bool("schedule", *schedule).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	shutdown(log, server, jobQueue, cancelWorker)
	log.Info().Msg("Server exited")
}

func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func shutdown(log zerolog.Logger, server *http.Server, queue *inmemory.Queue, cancelWorker context.CancelFunc) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// stop accepting new jobs, let in-flight ones finish, then cancel
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()
	if err := queue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}
}
