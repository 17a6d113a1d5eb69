package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/forecast"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// SpendingTrendRule fits a line to each category's monthly spend and reports
// sustained increases or decreases.
type SpendingTrendRule struct {
	cfg Config
}

func NewSpendingTrendRule(cfg Config) *SpendingTrendRule {
	return &SpendingTrendRule{cfg: cfg}
}

func (r *SpendingTrendRule) Name() string { return "spending_trend" }

func (r *SpendingTrendRule) Evaluate(in Input) Outcome {
	var out Outcome

	byCategory := expensesByCategory(in.Transactions)
	for _, cat := range stats.SortedKeys(byCategory) {
		txns := byCategory[cat]
		series := in.monthlyExpenses(txns)
		if len(series) < r.cfg.TrendMinMonths {
			out.skip(r.Name(), cat, SkipInsufficientData, "%d months, need %d", len(series), r.cfg.TrendMinMonths)
			continue
		}
		// a single month of spend is a one-off, not a trend
		if active := stats.ActiveMonths(series); active < 2 {
			out.skip(r.Name(), cat, SkipInsufficientData, "%d months with spend, need 2", active)
			continue
		}
		values := stats.Values(series)
		mean := stats.Summarize(values).Mean
		line, ok := forecast.Fit(values)
		if !ok || mean <= 0 {
			continue
		}

		label := txns[0].CategoryLabel()
		change := line.Slope / mean
		var ins Insight
		switch {
		case change > r.cfg.TrendSlopeThreshold:
			ins = newInsight(TypeSpendingPattern, PriorityMedium, cat+"/increasing",
				fmt.Sprintf("%s spending is rising", label),
				fmt.Sprintf("Spending on %s grows by about %s a month (%s of the monthly average of %s).",
					label, money(line.Slope), percent(change), money(mean)))
		case change < -r.cfg.TrendSlopeThreshold:
			ins = newInsight(TypeSpendingPattern, PriorityLow, cat+"/decreasing",
				fmt.Sprintf("%s spending is falling", label),
				fmt.Sprintf("Spending on %s drops by about %s a month (%s of the monthly average of %s).",
					label, money(math.Abs(line.Slope)), percent(math.Abs(change)), money(mean)))
		default:
			continue
		}
		ins.CategoryID = cat
		ins.DataPoints = seriesPoints(series)
		out.add(ins)
	}
	return out
}

// CashFlowForecastRule projects monthly net cash flow forward.
type CashFlowForecastRule struct {
	cfg Config
}

func NewCashFlowForecastRule(cfg Config) *CashFlowForecastRule {
	return &CashFlowForecastRule{cfg: cfg}
}

func (r *CashFlowForecastRule) Name() string { return "cash_flow_forecast" }

func (r *CashFlowForecastRule) Evaluate(in Input) Outcome {
	var out Outcome

	history := in.monthlyNetCashFlow(in.Transactions)
	if len(history) < r.cfg.ForecastMinMonths {
		out.skip(r.Name(), "net_cash_flow", SkipInsufficientData, "%d months, need %d", len(history), r.cfg.ForecastMinMonths)
		return out
	}
	projected := forecast.Project(history, r.cfg.ForecastHorizon)
	if len(projected) == 0 {
		out.skip(r.Name(), "net_cash_flow", SkipInsufficientData, "series could not be fitted")
		return out
	}

	var total float64
	for _, p := range projected {
		total += p.Value
	}

	priority := PriorityLow
	title := "Cash flow looks positive"
	if total < 0 {
		priority = PriorityHigh
		title = "Cash flow is projected to turn negative"
	}
	ins := newInsight(TypeForecast, priority, "net_cash_flow",
		title,
		fmt.Sprintf("Based on %d months of history, net cash flow over the next %d months is projected at %s.",
			len(history), len(projected), money(total)))
	ins.DataPoints = seriesPoints(projected)
	out.add(ins)
	return out
}

// monthRange is the span of months the monthly series are built over. ok is
// false when the input carries no window.
func (in Input) monthRange() (from, to time.Time, ok bool) {
	if in.Start.IsZero() || in.End.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	end := in.End
	if !in.Now.IsZero() && in.Now.Before(end) {
		end = in.Now
	}
	from, to = stats.CompleteMonths(in.Start, end)
	return from, to, true
}

func (in Input) monthlyExpenses(txns []domain.Transaction) []stats.MonthValue {
	if from, to, ok := in.monthRange(); ok {
		return stats.MonthlyExpenseTotalsIn(txns, from, to)
	}
	return stats.MonthlyExpenseTotals(txns)
}

func (in Input) monthlyNetCashFlow(txns []domain.Transaction) []stats.MonthValue {
	if from, to, ok := in.monthRange(); ok {
		return stats.MonthlyNetCashFlowIn(txns, from, to)
	}
	return stats.MonthlyNetCashFlow(txns)
}

func expensesByCategory(txns []domain.Transaction) map[string][]domain.Transaction {
	out := make(map[string][]domain.Transaction)
	for _, t := range txns {
		if t.IsExpense() {
			out[t.CategoryKey()] = append(out[t.CategoryKey()], t)
		}
	}
	return out
}

func seriesPoints(series []stats.MonthValue) []DataPoint {
	out := make([]DataPoint, len(series))
	for i, p := range series {
		out[i] = DataPoint{Label: p.Month, Value: round2(p.Value)}
	}
	return out
}
