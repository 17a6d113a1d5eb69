package bigquery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

type mockLedger struct {
	QueryTransactionsFunc func(ctx context.Context, start, end time.Time) ([]*TransactionRow, error)
	ListAccountsFunc      func(ctx context.Context) ([]*AccountRow, error)
	ListBudgetsFunc       func(ctx context.Context, asOf time.Time) ([]*BudgetRow, error)
}

func (m *mockLedger) QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]*TransactionRow, error) {
	return m.QueryTransactionsFunc(ctx, start, end)
}

func (m *mockLedger) ListAllAccounts(ctx context.Context) ([]*AccountRow, error) {
	return m.ListAccountsFunc(ctx)
}

func (m *mockLedger) ListActiveBudgets(ctx context.Context, asOf time.Time) ([]*BudgetRow, error) {
	return m.ListBudgetsFunc(ctx, asOf)
}

// mockRuns records what was written and serves it back.
type mockRuns struct {
	started   []*AnalysisRunRow
	insights  []*InsightRow
	skips     []*SkipRow
	succeeded map[string][2]int
	failed    map[string]string
	latest    *AnalysisRunRow
	insertErr error
}

func newMockRuns() *mockRuns {
	return &mockRuns{succeeded: map[string][2]int{}, failed: map[string]string{}}
}

func (m *mockRuns) StartAnalysisRun(ctx context.Context, row *AnalysisRunRow) error {
	m.started = append(m.started, row)
	return nil
}

func (m *mockRuns) InsertInsights(ctx context.Context, rows []*InsightRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.insights = append(m.insights, rows...)
	return nil
}

func (m *mockRuns) InsertSkips(ctx context.Context, rows []*SkipRow) error {
	m.skips = append(m.skips, rows...)
	return nil
}

func (m *mockRuns) MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error {
	m.succeeded[runID] = [2]int{insightCount, skipCount}
	return nil
}

func (m *mockRuns) MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error {
	m.failed[runID] = errorMessage
	return nil
}

func (m *mockRuns) LatestSucceededRun(ctx context.Context) (*AnalysisRunRow, error) {
	return m.latest, nil
}

func (m *mockRuns) QueryInsightsByRun(ctx context.Context, runID string) ([]*InsightRow, error) {
	var out []*InsightRow
	for _, r := range m.insights {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRuns) QuerySkipsByRun(ctx context.Context, runID string) ([]*SkipRow, error) {
	var out []*SkipRow
	for _, r := range m.skips {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestStoreListTransactions(t *testing.T) {
	ledger := &mockLedger{
		QueryTransactionsFunc: func(ctx context.Context, start, end time.Time) ([]*TransactionRow, error) {
			return []*TransactionRow{
				{TransactionID: "a", TransactionDate: civil.Date{Year: 2024, Month: 1, Day: 2}, Amount: big.NewRat(-10, 1)},
				{TransactionID: "b", TransactionDate: civil.Date{Year: 2024, Month: 1, Day: 3}, Amount: big.NewRat(2500, 1)},
			}, nil
		},
	}
	s := NewStore(ledger, newMockRuns())

	got, err := s.ListTransactions(context.Background(), time.Time{}, time.Now())
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(got) != 2 || !got[0].IsExpense() || !got[1].IsIncome() {
		t.Errorf("ListTransactions() = %+v", got)
	}
}

func TestStoreListAccountsError(t *testing.T) {
	boom := errors.New("boom")
	ledger := &mockLedger{
		ListAccountsFunc: func(ctx context.Context) ([]*AccountRow, error) { return nil, boom },
	}
	s := NewStore(ledger, newMockRuns())
	if _, err := s.ListAccounts(context.Background()); !errors.Is(err, boom) {
		t.Errorf("ListAccounts() error = %v, want wrapped boom", err)
	}
}

func TestStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	runs := newMockRuns()
	s := NewStore(&mockLedger{}, runs)

	run := domain.AnalysisRun{
		RunID:       "run-1",
		Trigger:     "schedule",
		WindowStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		StartedAt:   time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC),
		Rules:       []string{"outlier"},
	}
	if err := s.StartAnalysisRun(ctx, run); err != nil {
		t.Fatalf("StartAnalysisRun() error = %v", err)
	}

	out := insights.Outcome{
		Insights: []insights.Insight{{ID: "i1", Type: insights.TypeAnomaly, Priority: insights.PriorityMedium, Title: "x"}},
		Skipped:  []insights.Skip{{Rule: "budget_alert", Reason: insights.SkipNotApplicable}},
	}
	if err := s.SaveInsights(ctx, run.RunID, out); err != nil {
		t.Fatalf("SaveInsights() error = %v", err)
	}
	if err := s.MarkAnalysisRunSucceeded(ctx, run.RunID, 1, 1); err != nil {
		t.Fatalf("MarkAnalysisRunSucceeded() error = %v", err)
	}
	if runs.succeeded["run-1"] != [2]int{1, 1} {
		t.Errorf("succeeded counts = %v", runs.succeeded["run-1"])
	}

	latest := *runs.started[0]
	latest.Status = string(domain.RunStatusSucceeded)
	runs.latest = &latest

	gotRun, gotOut, err := s.LatestResult(ctx)
	if err != nil {
		t.Fatalf("LatestResult() error = %v", err)
	}
	if gotRun.RunID != "run-1" || gotRun.Status != domain.RunStatusSucceeded {
		t.Errorf("LatestResult() run = %+v", gotRun)
	}
	if len(gotOut.Insights) != 1 || gotOut.Insights[0].ID != "i1" || len(gotOut.Skipped) != 1 {
		t.Errorf("LatestResult() outcome = %+v", gotOut)
	}
}

func TestStoreLatestResultNoRuns(t *testing.T) {
	s := NewStore(&mockLedger{}, newMockRuns())
	_, _, err := s.LatestResult(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("LatestResult() error = %v, want domain.ErrNotFound", err)
	}
}

func TestStoreSaveInsightsError(t *testing.T) {
	runs := newMockRuns()
	runs.insertErr = errors.New("quota exceeded")
	s := NewStore(&mockLedger{}, runs)
	if err := s.SaveInsights(context.Background(), "r", insights.Outcome{}); err == nil {
		t.Fatal("expected error")
	}
}
