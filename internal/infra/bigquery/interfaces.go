package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/finance-insights/internal/bigquery"
)

// Re-export shared types so callers need only this package
type (
	LedgerRepository  = bq.LedgerRepository
	InsightRepository = bq.InsightRepository
	TransactionRow    = bq.TransactionRow
	AccountRow        = bq.AccountRow
	BudgetRow         = bq.BudgetRow
	AnalysisRunRow    = bq.AnalysisRunRow
	InsightRow        = bq.InsightRow
	SkipRow           = bq.SkipRow
)

// BigQueryRepository implements LedgerRepository and InsightRepository over a
// single shared BigQuery client.
type BigQueryRepository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewBigQueryRepository creates a repository bound to projectID.datasetID.
func NewBigQueryRepository(ctx context.Context, projectID, datasetID string) (*BigQueryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{
		client: client,
		ds:     Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRepository) QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, r.ds, startDate, endDate)
}

func (r *BigQueryRepository) ListAllAccounts(ctx context.Context) ([]*AccountRow, error) {
	return ListAllAccountsWithClient(ctx, r.client, r.ds)
}

func (r *BigQueryRepository) ListActiveBudgets(ctx context.Context, asOf time.Time) ([]*BudgetRow, error) {
	return ListActiveBudgetsWithClient(ctx, r.client, r.ds, asOf)
}

func (r *BigQueryRepository) StartAnalysisRun(ctx context.Context, row *AnalysisRunRow) error {
	return StartAnalysisRunWithClient(ctx, r.client, r.ds, row)
}

func (r *BigQueryRepository) InsertInsights(ctx context.Context, rows []*InsightRow) error {
	return InsertInsightsWithClient(ctx, r.client, r.ds, rows)
}

func (r *BigQueryRepository) InsertSkips(ctx context.Context, rows []*SkipRow) error {
	return InsertSkipsWithClient(ctx, r.client, r.ds, rows)
}

func (r *BigQueryRepository) MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error {
	return MarkAnalysisRunSucceededWithClient(ctx, r.client, r.ds, runID, insightCount, skipCount)
}

func (r *BigQueryRepository) MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error {
	return MarkAnalysisRunFailedWithClient(ctx, r.client, r.ds, runID, errorMessage)
}

func (r *BigQueryRepository) LatestSucceededRun(ctx context.Context) (*AnalysisRunRow, error) {
	return LatestSucceededRunWithClient(ctx, r.client, r.ds)
}

func (r *BigQueryRepository) QueryInsightsByRun(ctx context.Context, runID string) ([]*InsightRow, error) {
	return QueryInsightsByRunWithClient(ctx, r.client, r.ds, runID)
}

func (r *BigQueryRepository) QuerySkipsByRun(ctx context.Context, runID string) ([]*SkipRow, error) {
	return QuerySkipsByRunWithClient(ctx, r.client, r.ds, runID)
}
