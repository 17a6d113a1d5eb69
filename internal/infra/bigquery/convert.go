package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

// NUMERIC carries nine fractional digits.
const numericScale = 9

func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// TransactionFromRow maps a warehouse row to the domain model. The booking
// datetime wins over the transaction date when present.
func TransactionFromRow(row *TransactionRow) domain.Transaction {
	date := row.TransactionDate.In(time.UTC)
	if row.BookingDatetime.Valid {
		date = row.BookingDatetime.DateTime.In(time.UTC)
	}
	return domain.Transaction{
		ID:           row.TransactionID,
		Date:         date,
		Title:        row.RawDescription,
		Notes:        row.Notes.StringVal,
		Amount:       ratToDecimal(row.Amount),
		Currency:     row.Currency,
		CategoryID:   row.CategoryID.StringVal,
		CategoryName: row.CategoryName.StringVal,
		AccountID:    row.AccountID,
	}
}

// AccountFromRow maps a warehouse account row to the domain model.
func AccountFromRow(row *AccountRow) domain.Account {
	return domain.Account{
		ID:          row.AccountID,
		Name:        row.AccountName,
		Type:        domain.AccountType(row.AccountType),
		Balance:     ratToDecimal(row.Balance),
		CreditLimit: ratToDecimal(row.CreditLimit),
		Currency:    row.Currency,
	}
}

// BudgetFromRow maps a warehouse budget row to the domain model.
func BudgetFromRow(row *BudgetRow) domain.Budget {
	return domain.Budget{
		ID:            row.BudgetID,
		Name:          row.BudgetName,
		CategoryID:    row.CategoryID,
		Limit:         ratToDecimal(row.LimitAmount),
		PeriodStart:   row.PeriodStart.In(time.UTC),
		PeriodEnd:     row.PeriodEnd.In(time.UTC),
		Rollover:      row.Rollover,
		RolloverCap:   ratToDecimal(row.RolloverCap),
		PreviousSpent: ratToDecimal(row.PreviousSpent),
	}
}

// RunRowFromDomain maps a new run to its warehouse row.
func RunRowFromDomain(run domain.AnalysisRun) *AnalysisRunRow {
	rules := run.Rules
	if rules == nil {
		rules = []string{}
	}
	return &AnalysisRunRow{
		RunID:       run.RunID,
		Trigger:     run.Trigger,
		WindowStart: civil.DateOf(run.WindowStart),
		WindowEnd:   civil.DateOf(run.WindowEnd),
		StartedTS:   run.StartedAt,
		Status:      string(domain.RunStatusRunning),
		Rules:       rules,
	}
}

// RunFromRow maps a stored run back to the domain model.
func RunFromRow(row *AnalysisRunRow) domain.AnalysisRun {
	run := domain.AnalysisRun{
		RunID:        row.RunID,
		Trigger:      row.Trigger,
		WindowStart:  row.WindowStart.In(time.UTC),
		WindowEnd:    row.WindowEnd.In(time.UTC),
		StartedAt:    row.StartedTS,
		Status:       domain.RunStatus(row.Status),
		InsightCount: int(row.InsightCount),
		SkipCount:    int(row.SkipCount),
		ErrorMessage: row.ErrorMessage,
		Rules:        row.Rules,
	}
	if row.FinishedTS.Valid {
		t := row.FinishedTS.Timestamp
		run.FinishedAt = &t
	}
	return run
}

// RowsFromOutcome flattens an outcome into insight and skip rows, keeping order.
func RowsFromOutcome(runID string, out insights.Outcome, createdAt time.Time) ([]*InsightRow, []*SkipRow, error) {
	insightRows := make([]*InsightRow, 0, len(out.Insights))
	for i, ins := range out.Insights {
		points, err := json.Marshal(ins.DataPoints)
		if err != nil {
			return nil, nil, fmt.Errorf("RowsFromOutcome: marshal data points for %s: %w", ins.ID, err)
		}
		txnIDs := ins.TransactionIDs
		if txnIDs == nil {
			txnIDs = []string{}
		}
		insightRows = append(insightRows, &InsightRow{
			RunID:          runID,
			InsightID:      ins.ID,
			Position:       int64(i),
			InsightType:    string(ins.Type),
			Priority:       ins.Priority.String(),
			Title:          ins.Title,
			Description:    ins.Description,
			Subject:        ins.Subject,
			CategoryID:     nullString(ins.CategoryID),
			AccountID:      nullString(ins.AccountID),
			BudgetID:       nullString(ins.BudgetID),
			TransactionIDs: txnIDs,
			DataPoints:     bigquery.NullJSON{JSONVal: string(points), Valid: len(ins.DataPoints) > 0},
			CreatedTS:      createdAt,
		})
	}

	skipRows := make([]*SkipRow, 0, len(out.Skipped))
	for i, sk := range out.Skipped {
		skipRows = append(skipRows, &SkipRow{
			RunID:    runID,
			Position: int64(i),
			Rule:     sk.Rule,
			Subject:  sk.Subject,
			Reason:   string(sk.Reason),
			Detail:   sk.Detail,
		})
	}
	return insightRows, skipRows, nil
}

// OutcomeFromRows rebuilds an outcome from stored rows.
func OutcomeFromRows(insightRows []*InsightRow, skipRows []*SkipRow) (insights.Outcome, error) {
	var out insights.Outcome
	for _, row := range insightRows {
		priority, err := insights.ParsePriority(row.Priority)
		if err != nil {
			return insights.Outcome{}, fmt.Errorf("OutcomeFromRows: insight %s: %w", row.InsightID, err)
		}
		ins := insights.Insight{
			ID:          row.InsightID,
			Type:        insights.Type(row.InsightType),
			Priority:    priority,
			Title:       row.Title,
			Description: row.Description,
			Subject:     row.Subject,
			CategoryID:  row.CategoryID.StringVal,
			AccountID:   row.AccountID.StringVal,
			BudgetID:    row.BudgetID.StringVal,
		}
		if len(row.TransactionIDs) > 0 {
			ins.TransactionIDs = row.TransactionIDs
		}
		if row.DataPoints.Valid {
			if err := json.Unmarshal([]byte(row.DataPoints.JSONVal), &ins.DataPoints); err != nil {
				return insights.Outcome{}, fmt.Errorf("OutcomeFromRows: data points for %s: %w", row.InsightID, err)
			}
		}
		out.Insights = append(out.Insights, ins)
	}
	for _, row := range skipRows {
		out.Skipped = append(out.Skipped, insights.Skip{
			Rule:    row.Rule,
			Subject: row.Subject,
			Reason:  insights.SkipReason(row.Reason),
			Detail:  row.Detail,
		})
	}
	return out, nil
}
