package stats

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func txn(date string, amount string, category string) domain.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return domain.Transaction{
		Date:       d,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: category,
		AccountID:  "acc-1",
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Summary
	}{
		{"empty", nil, Summary{}},
		{"single", []float64{4}, Summary{Count: 1, Sum: 4, Mean: 4, StdDev: 0}},
		{"population stddev", []float64{2, 4, 4, 4, 5, 5, 7, 9}, Summary{Count: 8, Sum: 40, Mean: 5, StdDev: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Summarize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGroupByCategoryMonth(t *testing.T) {
	txns := []domain.Transaction{
		txn("2024-01-03", "-10", "food"),
		txn("2024-01-20", "-30", "food"),
		txn("2024-02-01", "-5", "food"),
		txn("2024-01-05", "-100", "rent"),
		txn("2024-01-06", "2000", "salary"),
	}

	got := GroupByCategoryMonth(txns)

	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d: %v", len(got), got)
	}
	jan := got[GroupKey{Key: "food", Month: "2024-01"}]
	if jan.Count != 2 || jan.Sum != 40 || jan.Mean != 20 || jan.StdDev != 10 {
		t.Errorf("unexpected food/2024-01 summary: %+v", jan)
	}
	if _, ok := got[GroupKey{Key: "salary", Month: "2024-01"}]; ok {
		t.Error("income should not be grouped as spend")
	}

	byAccount := GroupByAccountMonth(txns)
	if s := byAccount[GroupKey{Key: "acc-1", Month: "2024-01"}]; s.Count != 3 || s.Sum != 140 {
		t.Errorf("unexpected account summary: %+v", s)
	}
}

func TestMonthlyNetCashFlowFillsGaps(t *testing.T) {
	txns := []domain.Transaction{
		txn("2024-03-15", "-50", "food"),
		txn("2024-01-01", "1000", "salary"),
		txn("2024-01-10", "-400", "rent"),
	}

	got := MonthlyNetCashFlow(txns)
	want := []MonthValue{
		{Month: "2024-01", Value: 600},
		{Month: "2024-02", Value: 0},
		{Month: "2024-03", Value: -50},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MonthlyNetCashFlow() mismatch (-want +got):\n%s", diff)
	}

	expenses := MonthlyExpenseTotals(txns)
	if diff := cmp.Diff([]float64{400, 0, 50}, Values(expenses)); diff != "" {
		t.Errorf("MonthlyExpenseTotals() mismatch (-want +got):\n%s", diff)
	}
}

func TestMonthlyNetCashFlowEmpty(t *testing.T) {
	if got := MonthlyNetCashFlow(nil); got != nil {
		t.Errorf("expected nil series, got %v", got)
	}
}

func TestGroupByCategory(t *testing.T) {
	got := GroupByCategory([]domain.Transaction{
		txn("2024-01-03", "-10.25", "food"),
		txn("2024-01-04", "15", "food"),
	})
	if len(got["food"]) != 1 || math.Abs(got["food"][0]-10.25) > 1e-9 {
		t.Errorf("unexpected grouping: %v", got)
	}
	if diff := cmp.Diff([]string{"food"}, SortedKeys(got)); diff != "" {
		t.Errorf("SortedKeys() mismatch: %s", diff)
	}
}

func TestCompleteMonths(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}
	tests := []struct {
		name       string
		start, end time.Time
		from, to   string
	}{
		{"whole months", day("2024-01-01"), day("2024-04-01"), "2024-01", "2024-04"},
		{"partial last month dropped", day("2024-01-01"), day("2024-04-21"), "2024-01", "2024-04"},
		{"partial first month dropped", day("2024-01-10"), day("2024-04-01"), "2024-02", "2024-04"},
		{"inside one month", day("2024-04-10"), day("2024-04-21"), "2024-05", "2024-04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := CompleteMonths(tt.start, tt.end)
			if domain.MonthKey(from) != tt.from || domain.MonthKey(to) != tt.to {
				t.Errorf("CompleteMonths() = %s..%s, want %s..%s", domain.MonthKey(from), domain.MonthKey(to), tt.from, tt.to)
			}
		})
	}
}

func TestMonthlyExpenseTotalsInZeroFillsWindow(t *testing.T) {
	txns := []domain.Transaction{
		txn("2024-01-05", "-300", "gym"),
		txn("2024-02-05", "-300", "gym"),
		txn("2024-03-05", "-300", "gym"),
		txn("2024-07-02", "-300", "gym"),
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got := MonthlyExpenseTotalsIn(txns, from, to)
	if diff := cmp.Diff([]float64{300, 300, 300, 0, 0, 0}, Values(got)); diff != "" {
		t.Errorf("MonthlyExpenseTotalsIn() mismatch (-want +got):\n%s", diff)
	}
	if got[5].Month != "2024-06" {
		t.Errorf("last month = %s, want 2024-06", got[5].Month)
	}
	if n := ActiveMonths(got); n != 3 {
		t.Errorf("ActiveMonths() = %d, want 3", n)
	}
	if Summarize(Values(got)).Mean != 150 {
		t.Errorf("mean = %v, want 150", Summarize(Values(got)).Mean)
	}

	if got := MonthlyNetCashFlowIn(txns, to, from); got != nil {
		t.Errorf("inverted range should be empty, got %v", got)
	}
}
