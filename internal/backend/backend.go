// Package backend opens the configured storage backend and builds the
// analyzer and exporters the commands share.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/dataset"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/gcs"
	"github.com/dvloznov/finance-insights/internal/gcsuploader"
	bqinfra "github.com/dvloznov/finance-insights/internal/infra/bigquery"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/store/sqlite"
)

// EntryStore persists planner entries. Only the sqlite backend has one.
type EntryStore interface {
	UpsertEntry(ctx context.Context, e domain.Entry) error
	GetEntry(ctx context.Context, id string) (domain.Entry, error)
}

// Backend is an opened storage backend. Results is nil for the file
// backend; Entries and SQLite are set only for sqlite.
type Backend struct {
	Name    string
	Source  analysis.DataSource
	Results analysis.ResultStore
	Entries EntryStore
	SQLite  *sqlite.Store

	closers []func() error
}

// Open connects to the backend selected by cfg.Backend. storage is used to
// fetch gs:// dataset files and may be nil otherwise.
func Open(ctx context.Context, cfg config.StoreConfig, storage gcs.StorageService) (*Backend, error) {
	log := logger.FromContext(ctx)
	b := &Backend{Name: cfg.Backend}

	switch cfg.Backend {
	case config.BackendFile:
		ds, err := dataset.LoadURI(ctx, storage, cfg.DatasetFile)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		b.Source = ds
		log.Info().
			Str("file", cfg.DatasetFile).
			Int("transactions", len(ds.Transactions)).
			Msg("Loaded dataset file")

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		b.Source = store
		b.Results = store
		b.Entries = store
		b.SQLite = store
		b.closers = append(b.closers, store.Close)
		log.Info().Str("path", cfg.SQLitePath).Msg("Opened sqlite store")

	case config.BackendBigQuery:
		repo, err := bqinfra.NewBigQueryRepository(ctx, cfg.ProjectID, cfg.DatasetID)
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		store := bqinfra.NewStore(repo, repo)
		b.Source = store
		b.Results = store
		b.closers = append(b.closers, repo.Close)
		log.Info().
			Str("project_id", cfg.ProjectID).
			Str("dataset_id", cfg.DatasetID).
			Msg("Connected to BigQuery")

	default:
		return nil, fmt.Errorf("Open: unknown store backend %q", cfg.Backend)
	}

	return b, nil
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Sink returns the backend's result store as an InsightSink, or nil for
// backends that do not persist runs.
func (b *Backend) Sink() analysis.InsightSink {
	if b.Results == nil {
		return nil
	}
	return b.Results
}

// NewAnalyzer builds an analyzer over the backend with every built-in rule.
func (b *Backend) NewAnalyzer(rules insights.Config) *analysis.Analyzer {
	return analysis.NewAnalyzer(b.Source, b.Sink(), insights.NewEngine(rules))
}

// NewReportExporter returns an exporter that writes reports to bucket, or
// nil when no bucket is configured.
func NewReportExporter(svc gcs.StorageService, bucket string) jobs.ReportExporter {
	if bucket == "" {
		return nil
	}
	return func(ctx context.Context, report *analysis.Report) (string, error) {
		return gcsuploader.ExportReport(ctx, svc, bucket, report.RunID, report.GeneratedAt, report)
	}
}
