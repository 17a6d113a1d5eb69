package insights

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func expense(id, title, amount string, at time.Time, category string) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		Title:      title,
		Date:       at,
		Amount:     decimal.RequireFromString(amount).Neg(),
		CategoryID: category,
		AccountID:  "checking-1",
	}
}

func income(id, amount string, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		Title:      "Salary",
		Date:       at,
		Amount:     decimal.RequireFromString(amount),
		CategoryID: "salary",
		AccountID:  "checking-1",
	}
}

func findInsight(out Outcome, t Type) (Insight, bool) {
	for _, i := range out.Insights {
		if i.Type == t {
			return i, true
		}
	}
	return Insight{}, false
}

func hasSkip(out Outcome, subject string, reason SkipReason) bool {
	for _, s := range out.Skipped {
		if s.Subject == subject && s.Reason == reason {
			return true
		}
	}
	return false
}
