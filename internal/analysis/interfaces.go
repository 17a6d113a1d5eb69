package analysis

import (
	"context"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

// DataSource supplies the records an analysis reads. Implemented by the
// dataset file loader, the sqlite store and the BigQuery store.
type DataSource interface {
	// ListTransactions returns transactions with start <= date < end.
	ListTransactions(ctx context.Context, start, end time.Time) ([]domain.Transaction, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	// ListBudgets returns budgets whose period contains asOf.
	ListBudgets(ctx context.Context, asOf time.Time) ([]domain.Budget, error)
}

// InsightSink records analysis runs and their results.
type InsightSink interface {
	StartAnalysisRun(ctx context.Context, run domain.AnalysisRun) error
	// SaveInsights replaces any results already stored for runID.
	SaveInsights(ctx context.Context, runID string, out insights.Outcome) error
	MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error
	MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error
}

// ResultReader returns the most recent successful run. It returns an error
// wrapping domain.ErrNotFound when no run has succeeded.
type ResultReader interface {
	LatestResult(ctx context.Context) (domain.AnalysisRun, insights.Outcome, error)
}

// ResultStore is a sink that can also serve the latest result.
type ResultStore interface {
	InsightSink
	ResultReader
}
