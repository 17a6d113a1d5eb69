package insights

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// BudgetAlertRule compares spend against each budget's effective limit and
// the fraction of the period already elapsed.
type BudgetAlertRule struct {
	cfg Config
}

func NewBudgetAlertRule(cfg Config) *BudgetAlertRule {
	return &BudgetAlertRule{cfg: cfg}
}

func (r *BudgetAlertRule) Name() string { return "budget_alert" }

func (r *BudgetAlertRule) Evaluate(in Input) Outcome {
	var out Outcome

	budgets := append([]domain.Budget(nil), in.Budgets...)
	sort.SliceStable(budgets, func(i, j int) bool { return budgets[i].ID < budgets[j].ID })

	for _, b := range budgets {
		limit := b.EffectiveLimit()
		if !limit.IsPositive() {
			out.skip(r.Name(), b.ID, SkipNotApplicable, "limit %s is not positive", limit.String())
			continue
		}
		if in.Now.Before(b.PeriodStart) {
			out.skip(r.Name(), b.ID, SkipNotApplicable, "period starts %s", b.PeriodStart.Format("2006-01-02"))
			continue
		}

		spent, ids := budgetSpend(b, in)
		ideal := b.ElapsedRatio(in.Now)
		ratio := spent.Div(limit).InexactFloat64()
		limitF := limit.InexactFloat64()
		spentF := spent.InexactFloat64()

		dataPoints := []DataPoint{
			{Label: "spent", Value: round2(spentF)},
			{Label: "limit", Value: round2(limitF)},
			{Label: "elapsed_ratio", Value: ideal},
		}

		var ins Insight
		switch {
		case spent.GreaterThanOrEqual(limit):
			ins = newInsight(TypeBudgetAlert, PriorityCritical, b.ID+"/exceeded",
				fmt.Sprintf("Budget exceeded: %s", b.Name),
				fmt.Sprintf("You have spent %s of your %s budget for %s.", money(spentF), money(limitF), b.Name))
		case ideal > 0 && ratio > ideal*r.cfg.BudgetPaceFactor && ratio > r.cfg.BudgetAtRiskRatio && spentF/ideal > limitF:
			projected := spentF / ideal
			ins = newInsight(TypeBudgetAlert, PriorityHigh, b.ID+"/at_risk",
				fmt.Sprintf("Budget at risk: %s", b.Name),
				fmt.Sprintf("%s of the %s budget is used with %s of the period elapsed; at this pace you will spend %s.",
					percent(ratio), b.Name, percent(ideal), money(projected)))
			dataPoints = append(dataPoints, DataPoint{Label: "projected", Value: round2(projected)})
		case ratio < ideal*r.cfg.BudgetUnderFactor && ideal > r.cfg.BudgetUnderMinElapsed:
			ins = newInsight(TypeBudgetAlert, PriorityLow, b.ID+"/underutilized",
				fmt.Sprintf("Budget underused: %s", b.Name),
				fmt.Sprintf("Only %s of the %s budget is used with %s of the period elapsed.",
					percent(ratio), b.Name, percent(ideal)))
		default:
			continue
		}

		ins.BudgetID = b.ID
		ins.CategoryID = b.CategoryID
		ins.TransactionIDs = ids
		ins.DataPoints = dataPoints
		out.add(ins)
	}
	return out
}

// budgetSpend sums expenses in the budget's category inside its own period,
// up to Now. It reads the history rather than the window so a window that
// starts mid-period still sees the whole period's spend.
func budgetSpend(b domain.Budget, in Input) (decimal.Decimal, []string) {
	spent := decimal.Zero
	var ids []string
	for _, t := range in.history() {
		if !t.IsExpense() || t.CategoryKey() != b.CategoryID {
			continue
		}
		if !b.Active(t.Date) || t.Date.After(in.Now) {
			continue
		}
		spent = spent.Add(t.Amount.Abs())
		ids = append(ids, t.ID)
	}
	return spent, ids
}
