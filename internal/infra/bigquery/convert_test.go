package bigquery

import (
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

func TestRatToDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   *big.Rat
		want string
	}{
		{"nil", nil, "0"},
		{"negative", big.NewRat(-1234, 100), "-12.34"},
		{"integer", big.NewRat(500, 1), "500"},
		{"repeating", big.NewRat(1, 3), "0.333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ratToDecimal(tt.in)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ratToDecimal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTransactionFromRow(t *testing.T) {
	row := &TransactionRow{
		TransactionID:   "t1",
		AccountID:       "acc",
		TransactionDate: civil.Date{Year: 2024, Month: 3, Day: 5},
		Amount:          big.NewRat(-450, 100),
		Currency:        "GBP",
		RawDescription:  "Coffee Shop",
		CategoryID:      bigquery.NullString{StringVal: "food", Valid: true},
	}

	got := TransactionFromRow(row)
	if want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", got.Date, want)
	}
	if !got.IsExpense() || got.Amount.String() != "-4.5" {
		t.Errorf("Amount = %s, want -4.5 expense", got.Amount)
	}
	if got.CategoryID != "food" || got.CategoryName != "" {
		t.Errorf("category = %q/%q", got.CategoryID, got.CategoryName)
	}

	row.BookingDatetime = bigquery.NullDateTime{
		DateTime: civil.DateTime{Date: civil.Date{Year: 2024, Month: 3, Day: 6}, Time: civil.Time{Hour: 14, Minute: 30}},
		Valid:    true,
	}
	got = TransactionFromRow(row)
	if want := time.Date(2024, 3, 6, 14, 30, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("booking datetime should win: Date = %v, want %v", got.Date, want)
	}
}

func TestBudgetFromRow(t *testing.T) {
	row := &BudgetRow{
		BudgetID:      "b1",
		BudgetName:    "Groceries",
		CategoryID:    "food",
		LimitAmount:   big.NewRat(400, 1),
		PeriodStart:   civil.Date{Year: 2024, Month: 3, Day: 1},
		PeriodEnd:     civil.Date{Year: 2024, Month: 4, Day: 1},
		Rollover:      true,
		RolloverCap:   big.NewRat(50, 1),
		PreviousSpent: big.NewRat(300, 1),
	}
	got := BudgetFromRow(row)
	if !got.EffectiveLimit().Equal(decimal.NewFromInt(450)) {
		t.Errorf("EffectiveLimit() = %s, want 450", got.EffectiveLimit())
	}
	if !got.Active(time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)) {
		t.Error("budget should be active on the last day of its period")
	}
}

func TestRunRoundTrip(t *testing.T) {
	started := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	run := domain.AnalysisRun{
		RunID:       "run-1",
		Trigger:     "api",
		WindowStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		StartedAt:   started,
	}
	row := RunRowFromDomain(run)
	if row.Status != string(domain.RunStatusRunning) {
		t.Errorf("Status = %q, want RUNNING", row.Status)
	}
	if row.Rules == nil {
		t.Error("Rules should be an empty slice for the ARRAY column")
	}

	got := RunFromRow(row)
	want := run
	want.Status = domain.RunStatusRunning
	want.Rules = []string{}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RunFromRow() mismatch (-want +got):\n%s", diff)
	}
}

func TestOutcomeRowsRoundTrip(t *testing.T) {
	out := insights.Outcome{
		Insights: []insights.Insight{
			{
				ID:             "id-1",
				Type:           insights.TypeAnomaly,
				Priority:       insights.PriorityHigh,
				Title:          "Unusual charge",
				Description:    "desc",
				Subject:        "food/t9",
				CategoryID:     "food",
				TransactionIDs: []string{"t9"},
				DataPoints:     []insights.DataPoint{{Label: "mean", Value: 12.5}},
			},
			{
				ID:       "id-2",
				Type:     insights.TypeBudgetAlert,
				Priority: insights.PriorityCritical,
				Title:    "Budget exceeded",
				Subject:  "b1/exceeded",
				BudgetID: "b1",
			},
		},
		Skipped: []insights.Skip{
			{Rule: "outlier", Subject: "travel", Reason: insights.SkipInsufficientData, Detail: "3 transactions"},
		},
	}

	insightRows, skipRows, err := RowsFromOutcome("run-1", out, time.Now())
	if err != nil {
		t.Fatalf("RowsFromOutcome() error = %v", err)
	}
	if len(insightRows) != 2 || len(skipRows) != 1 {
		t.Fatalf("got %d insight rows and %d skip rows", len(insightRows), len(skipRows))
	}
	if insightRows[1].Position != 1 || insightRows[1].DataPoints.Valid {
		t.Errorf("second row = %+v", insightRows[1])
	}
	if insightRows[1].CategoryID.Valid {
		t.Error("empty category id should be stored as NULL")
	}

	got, err := OutcomeFromRows(insightRows, skipRows)
	if err != nil {
		t.Fatalf("OutcomeFromRows() error = %v", err)
	}
	if diff := cmp.Diff(out, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOutcomeFromRowsBadPriority(t *testing.T) {
	rows := []*InsightRow{{InsightID: "x", Priority: "urgent"}}
	if _, err := OutcomeFromRows(rows, nil); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}
