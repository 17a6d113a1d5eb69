package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// Frequency names a recurring-charge cadence.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// RecurringRule finds charges that repeat at a regular weekly, monthly or
// yearly cadence.
type RecurringRule struct {
	cfg Config
}

func NewRecurringRule(cfg Config) *RecurringRule {
	return &RecurringRule{cfg: cfg}
}

func (r *RecurringRule) Name() string { return "recurring_expense" }

func (r *RecurringRule) Evaluate(in Input) Outcome {
	var out Outcome

	groups := make(map[string][]domain.Transaction)
	for _, t := range in.Transactions {
		if !t.IsExpense() {
			continue
		}
		name := domain.NormalizeName(t.Title)
		if name == "" {
			continue
		}
		key := name + "|" + t.Amount.Abs().StringFixed(2)
		groups[key] = append(groups[key], t)
	}

	for _, key := range stats.SortedKeys(groups) {
		txns := groups[key]
		if len(txns) < 2 {
			continue
		}
		if len(txns) < r.cfg.RecurringMinOccurrences {
			out.skip(r.Name(), key, SkipInsufficientData, "%d occurrences, need %d", len(txns), r.cfg.RecurringMinOccurrences)
			continue
		}
		sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

		intervals := make([]float64, len(txns)-1)
		for i := 1; i < len(txns); i++ {
			intervals[i-1] = txns[i].Date.Sub(txns[i-1].Date).Hours() / 24
		}
		mean := stats.Summarize(intervals).Mean
		if mean <= 0 || !r.regular(intervals, mean) {
			continue
		}
		freq, ok := r.frequency(mean)
		if !ok {
			continue
		}

		amount := txns[0].Amount.Abs().Round(2).InexactFloat64()
		monthly := monthlyEquivalent(amount, freq)
		ids := make([]string, len(txns))
		for i, t := range txns {
			ids[i] = t.ID
		}

		last := txns[len(txns)-1]
		ins := newInsight(TypeRecurringExpense, PriorityLow, key,
			fmt.Sprintf("Recurring %s charge: %s", freq, last.Title),
			fmt.Sprintf("%s charges %s %s, about %s a month or %s a year.",
				last.Title, money(amount), freq, money(monthly), money(monthly*12)))
		ins.CategoryID = last.CategoryKey()
		ins.AccountID = last.AccountID
		ins.TransactionIDs = ids
		ins.DataPoints = []DataPoint{
			{Label: "amount", Value: amount},
			{Label: "mean_interval_days", Value: math.Round(mean*10) / 10},
			{Label: "monthly_cost", Value: round2(monthly)},
			{Label: "annual_cost", Value: round2(monthly * 12)},
		}
		out.add(ins)
	}
	return out
}

func (r *RecurringRule) regular(intervals []float64, mean float64) bool {
	tol := mean * r.cfg.RecurringTolerance
	for _, iv := range intervals {
		if math.Abs(iv-mean) > tol {
			return false
		}
	}
	return true
}

func (r *RecurringRule) frequency(meanDays float64) (Frequency, bool) {
	switch {
	case r.cfg.RecurringWeekly.contains(meanDays):
		return FrequencyWeekly, true
	case r.cfg.RecurringMonthly.contains(meanDays):
		return FrequencyMonthly, true
	case r.cfg.RecurringYearly.contains(meanDays):
		return FrequencyYearly, true
	}
	return "", false
}

func monthlyEquivalent(amount float64, f Frequency) float64 {
	switch f {
	case FrequencyWeekly:
		return amount * 52 / 12
	case FrequencyYearly:
		return amount / 12
	default:
		return amount
	}
}
