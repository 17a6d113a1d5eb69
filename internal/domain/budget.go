package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget caps spending in one category over [PeriodStart, PeriodEnd).
type Budget struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CategoryID  string          `json:"category_id"`
	Limit       decimal.Decimal `json:"limit"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`

	// Rollover carries unspent budget from the previous period, up to RolloverCap.
	Rollover      bool            `json:"rollover"`
	RolloverCap   decimal.Decimal `json:"rollover_cap"`
	PreviousSpent decimal.Decimal `json:"previous_spent"`
}

// EffectiveLimit is Limit plus the carried-over remainder of the previous
// period, never more than RolloverCap.
func (b Budget) EffectiveLimit() decimal.Decimal {
	if !b.Rollover {
		return b.Limit
	}
	carry := b.Limit.Sub(b.PreviousSpent)
	if carry.IsNegative() {
		return b.Limit
	}
	if carry.GreaterThan(b.RolloverCap) {
		carry = b.RolloverCap
	}
	return b.Limit.Add(carry)
}

// Active reports whether at falls inside the budget period.
func (b Budget) Active(at time.Time) bool {
	return !at.Before(b.PeriodStart) && at.Before(b.PeriodEnd)
}

// ElapsedRatio is the fraction of the period that has passed at the given
// instant, clamped to [0, 1].
func (b Budget) ElapsedRatio(at time.Time) float64 {
	total := b.PeriodEnd.Sub(b.PeriodStart)
	if total <= 0 {
		return 0
	}
	r := float64(at.Sub(b.PeriodStart)) / float64(total)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// MonthlyBudget builds a budget covering the calendar month that contains at.
func MonthlyBudget(id, categoryID string, limit decimal.Decimal, at time.Time) Budget {
	start := MonthStart(at)
	return Budget{
		ID:          id,
		Name:        categoryID,
		CategoryID:  categoryID,
		Limit:       limit,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	}
}
