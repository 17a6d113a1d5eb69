package insights

import (
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// BudgetRecommendationRule proposes limits for unbudgeted categories and
// flags budgets set well below actual spend.
type BudgetRecommendationRule struct {
	cfg Config
}

func NewBudgetRecommendationRule(cfg Config) *BudgetRecommendationRule {
	return &BudgetRecommendationRule{cfg: cfg}
}

func (r *BudgetRecommendationRule) Name() string { return "budget_recommendation" }

func (r *BudgetRecommendationRule) Evaluate(in Input) Outcome {
	var out Outcome

	current := currentBudgets(in.Budgets, in.Now)

	byCategory := expensesByCategory(in.Transactions)
	for _, cat := range stats.SortedKeys(byCategory) {
		txns := byCategory[cat]
		series := in.monthlyExpenses(txns)
		if active := stats.ActiveMonths(series); active < r.cfg.RecommendationMinMonths {
			out.skip(r.Name(), cat, SkipInsufficientData, "%d months with spend, need %d", active, r.cfg.RecommendationMinMonths)
			continue
		}
		avg := stats.Summarize(stats.Values(series)).Mean
		if avg <= 0 {
			continue
		}
		suggested := roundUp(avg * r.cfg.RecommendationHeadroom)
		label := txns[0].CategoryLabel()

		var ins Insight
		b, budgeted := current[cat]
		// the effective limit, rollover included, is what spend is held to
		limit := b.EffectiveLimit().InexactFloat64()
		switch {
		case !budgeted:
			ins = newInsight(TypeBudgetRecommendation, PriorityLow, cat+"/create",
				fmt.Sprintf("Set a budget for %s", label),
				fmt.Sprintf("You spend about %s a month on %s. A monthly budget of %s would leave some headroom.",
					money(avg), label, money(suggested)))
		case limit < avg*r.cfg.RecommendationLowFactor:
			ins = newInsight(TypeBudgetRecommendation, PriorityLow, cat+"/raise",
				fmt.Sprintf("Budget for %s looks too low", label),
				fmt.Sprintf("Your %s budget is %s but you spend about %s a month. Consider raising it to %s.",
					label, money(limit), money(avg), money(suggested)))
			ins.BudgetID = b.ID
		default:
			continue
		}
		ins.CategoryID = cat
		ins.DataPoints = []DataPoint{
			{Label: "average_monthly_spend", Value: round2(avg)},
			{Label: "suggested_limit", Value: suggested},
		}
		if budgeted {
			ins.DataPoints = append(ins.DataPoints, DataPoint{Label: "current_limit", Value: round2(limit)})
		}
		out.add(ins)
	}
	return out
}

// currentBudgets picks one budget per category: the one active at now, else
// the one with the latest period. Ties go to the lowest ID.
func currentBudgets(budgets []domain.Budget, now time.Time) map[string]domain.Budget {
	out := make(map[string]domain.Budget)
	for _, b := range budgets {
		cur, ok := out[b.CategoryID]
		if !ok || budgetPreferred(b, cur, now) {
			out[b.CategoryID] = b
		}
	}
	return out
}

func budgetPreferred(b, than domain.Budget, now time.Time) bool {
	if ba, ta := b.Active(now), than.Active(now); ba != ta {
		return ba
	}
	if !b.PeriodStart.Equal(than.PeriodStart) {
		return b.PeriodStart.After(than.PeriodStart)
	}
	return b.ID < than.ID
}
