package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// LedgerRepository reads the inputs of an analysis from the warehouse.
type LedgerRepository interface {
	// QueryTransactionsByDateRange returns transactions with start <= transaction_date < end.
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error)

	// ListAllAccounts retrieves all accounts from the database.
	ListAllAccounts(ctx context.Context) ([]*AccountRow, error)

	// ListActiveBudgets retrieves budgets whose period contains asOf.
	ListActiveBudgets(ctx context.Context, asOf time.Time) ([]*BudgetRow, error)
}

// InsightRepository records analysis runs and their results.
type InsightRepository interface {
	// StartAnalysisRun inserts a new run with status=RUNNING.
	StartAnalysisRun(ctx context.Context, row *AnalysisRunRow) error

	// InsertInsights inserts a batch of InsightRow for one run.
	InsertInsights(ctx context.Context, rows []*InsightRow) error

	// InsertSkips inserts a batch of SkipRow for one run.
	InsertSkips(ctx context.Context, rows []*SkipRow) error

	// MarkAnalysisRunSucceeded sets status=SUCCESS, finished_ts and result counts.
	MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error

	// MarkAnalysisRunFailed sets status=FAILED, finished_ts and error_message.
	MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error

	// LatestSucceededRun returns the most recent successful run, or nil if there is none.
	LatestSucceededRun(ctx context.Context) (*AnalysisRunRow, error)

	// QueryInsightsByRun returns a run's insights in stored order.
	QueryInsightsByRun(ctx context.Context, runID string) ([]*InsightRow, error)

	// QuerySkipsByRun returns a run's skips in stored order.
	QuerySkipsByRun(ctx context.Context, runID string) ([]*SkipRow, error)
}

// TransactionRow represents a transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`
	AccountID     string `bigquery:"account_id"`

	TransactionDate civil.Date            `bigquery:"transaction_date"`
	BookingDatetime bigquery.NullDateTime `bigquery:"booking_datetime"`

	Amount   *big.Rat `bigquery:"amount"`
	Currency string   `bigquery:"currency"`

	RawDescription string              `bigquery:"raw_description"`
	Notes          bigquery.NullString `bigquery:"notes"`

	CategoryID   bigquery.NullString `bigquery:"category_id"`
	CategoryName bigquery.NullString `bigquery:"category_name"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// AccountRow represents an account record in BigQuery.
type AccountRow struct {
	AccountID   string   `bigquery:"account_id"`
	AccountName string   `bigquery:"account_name"`
	AccountType string   `bigquery:"account_type"`
	Currency    string   `bigquery:"currency"`
	Balance     *big.Rat `bigquery:"balance"`
	CreditLimit *big.Rat `bigquery:"credit_limit"`

	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// BudgetRow represents a budget record in BigQuery. Periods are [period_start, period_end).
type BudgetRow struct {
	BudgetID   string `bigquery:"budget_id"`
	BudgetName string `bigquery:"budget_name"`
	CategoryID string `bigquery:"category_id"`

	LimitAmount *big.Rat   `bigquery:"limit_amount"`
	PeriodStart civil.Date `bigquery:"period_start"`
	PeriodEnd   civil.Date `bigquery:"period_end"`

	Rollover      bool     `bigquery:"rollover"`
	RolloverCap   *big.Rat `bigquery:"rollover_cap"`
	PreviousSpent *big.Rat `bigquery:"previous_spent"`
}

// AnalysisRunRow represents an analysis run record in BigQuery.
type AnalysisRunRow struct {
	RunID   string `bigquery:"run_id"`
	Trigger string `bigquery:"run_trigger"`

	WindowStart civil.Date `bigquery:"window_start"`
	WindowEnd   civil.Date `bigquery:"window_end"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	InsightCount int64    `bigquery:"insight_count"`
	SkipCount    int64    `bigquery:"skip_count"`
	Rules        []string `bigquery:"rules"`
}

// InsightRow represents one stored insight. Data points are kept as JSON so
// chart payloads can evolve without schema changes.
type InsightRow struct {
	RunID     string `bigquery:"run_id"`
	InsightID string `bigquery:"insight_id"`
	Position  int64  `bigquery:"position"`

	InsightType string `bigquery:"insight_type"`
	Priority    string `bigquery:"priority"`
	Title       string `bigquery:"title"`
	Description string `bigquery:"description"`
	Subject     string `bigquery:"subject"`

	CategoryID bigquery.NullString `bigquery:"category_id"`
	AccountID  bigquery.NullString `bigquery:"account_id"`
	BudgetID   bigquery.NullString `bigquery:"budget_id"`

	TransactionIDs []string          `bigquery:"transaction_ids"`
	DataPoints     bigquery.NullJSON `bigquery:"data_points"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// SkipRow represents a rule skip recorded for a run.
type SkipRow struct {
	RunID    string `bigquery:"run_id"`
	Position int64  `bigquery:"position"`
	Rule     string `bigquery:"rule"`
	Subject  string `bigquery:"subject"`
	Reason   string `bigquery:"reason"`
	Detail   string `bigquery:"detail"`
}
