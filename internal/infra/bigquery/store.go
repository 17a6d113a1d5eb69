package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

// ErrNoRuns is returned by LatestResult when no run has succeeded yet.
var ErrNoRuns = fmt.Errorf("no successful analysis runs: %w", domain.ErrNotFound)

// Store adapts the row-level repositories to the domain model used by the
// analysis pipeline.
type Store struct {
	ledger LedgerRepository
	runs   InsightRepository
}

// NewStore wraps the given repositories. The same BigQueryRepository
// usually serves both.
func NewStore(ledger LedgerRepository, runs InsightRepository) *Store {
	return &Store{ledger: ledger, runs: runs}
}

func (s *Store) ListTransactions(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	rows, err := s.ledger.QueryTransactionsByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, TransactionFromRow(r))
	}
	return out, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.ledger.ListAllAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	out := make([]domain.Account, 0, len(rows))
	for _, r := range rows {
		out = append(out, AccountFromRow(r))
	}
	return out, nil
}

func (s *Store) ListBudgets(ctx context.Context, asOf time.Time) ([]domain.Budget, error) {
	rows, err := s.ledger.ListActiveBudgets(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: %w", err)
	}
	out := make([]domain.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, BudgetFromRow(r))
	}
	return out, nil
}

func (s *Store) StartAnalysisRun(ctx context.Context, run domain.AnalysisRun) error {
	if err := s.runs.StartAnalysisRun(ctx, RunRowFromDomain(run)); err != nil {
		return fmt.Errorf("StartAnalysisRun: %w", err)
	}
	return nil
}

func (s *Store) SaveInsights(ctx context.Context, runID string, out insights.Outcome) error {
	insightRows, skipRows, err := RowsFromOutcome(runID, out, time.Now())
	if err != nil {
		return err
	}
	if err := s.runs.InsertInsights(ctx, insightRows); err != nil {
		return fmt.Errorf("SaveInsights: %w", err)
	}
	if err := s.runs.InsertSkips(ctx, skipRows); err != nil {
		return fmt.Errorf("SaveInsights: %w", err)
	}
	return nil
}

func (s *Store) MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error {
	return s.runs.MarkAnalysisRunSucceeded(ctx, runID, insightCount, skipCount)
}

func (s *Store) MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error {
	return s.runs.MarkAnalysisRunFailed(ctx, runID, errorMessage)
}

func (s *Store) LatestResult(ctx context.Context) (domain.AnalysisRun, insights.Outcome, error) {
	row, err := s.runs.LatestSucceededRun(ctx)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, fmt.Errorf("LatestResult: %w", err)
	}
	if row == nil {
		return domain.AnalysisRun{}, insights.Outcome{}, ErrNoRuns
	}

	insightRows, err := s.runs.QueryInsightsByRun(ctx, row.RunID)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, fmt.Errorf("LatestResult: %w", err)
	}
	skipRows, err := s.runs.QuerySkipsByRun(ctx, row.RunID)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, fmt.Errorf("LatestResult: %w", err)
	}
	out, err := OutcomeFromRows(insightRows, skipRows)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, err
	}
	return RunFromRow(row), out, nil
}
