package insights

import (
	"fmt"
	"sort"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// IdleCashRule suggests moving checking balances well above recent spending.
type IdleCashRule struct {
	cfg Config
}

func NewIdleCashRule(cfg Config) *IdleCashRule {
	return &IdleCashRule{cfg: cfg}
}

func (r *IdleCashRule) Name() string { return "idle_cash" }

func (r *IdleCashRule) Evaluate(in Input) Outcome {
	var out Outcome

	avg, ok := r.trailingMonthlyExpense(in)
	for _, a := range sortedAccounts(in.Accounts) {
		if a.Type != domain.AccountTypeChecking {
			continue
		}
		if !ok {
			out.skip(r.Name(), a.ID, SkipInsufficientData, "no expenses in the %d complete months before %s",
				r.cfg.IdleCashLookbackMonths, in.Now.Format("2006-01-02"))
			continue
		}
		balance := a.Balance.InexactFloat64()
		cushion := r.cfg.IdleCashMultiplier * avg
		if balance <= cushion {
			continue
		}
		excess := balance - cushion

		ins := newInsight(TypeCashManagement, PriorityMedium, a.ID,
			fmt.Sprintf("Idle cash in %s", a.Name),
			fmt.Sprintf("%s holds %s, more than %s times your average monthly spend of %s. Consider moving %s to savings or investments.",
				a.Name, money(balance), money(r.cfg.IdleCashMultiplier), money(avg), money(excess)))
		ins.AccountID = a.ID
		ins.DataPoints = []DataPoint{
			{Label: "balance", Value: round2(balance)},
			{Label: "average_monthly_expense", Value: round2(avg)},
			{Label: "excess", Value: round2(excess)},
		}
		out.add(ins)
	}
	return out
}

// trailingMonthlyExpense averages expenses over the complete calendar months
// immediately before Now.
func (r *IdleCashRule) trailingMonthlyExpense(in Input) (float64, bool) {
	end := domain.MonthStart(in.Now)
	start := end.AddDate(0, -r.cfg.IdleCashLookbackMonths, 0)
	var total float64
	for _, t := range in.history() {
		if t.IsExpense() && !t.Date.Before(start) && t.Date.Before(end) {
			total += t.Magnitude()
		}
	}
	if total == 0 {
		return 0, false
	}
	return total / float64(r.cfg.IdleCashLookbackMonths), true
}

// CreditUtilizationRule warns when credit balances approach their limits.
type CreditUtilizationRule struct {
	cfg Config
}

func NewCreditUtilizationRule(cfg Config) *CreditUtilizationRule {
	return &CreditUtilizationRule{cfg: cfg}
}

func (r *CreditUtilizationRule) Name() string { return "credit_utilization" }

func (r *CreditUtilizationRule) Evaluate(in Input) Outcome {
	var out Outcome
	for _, a := range sortedAccounts(in.Accounts) {
		if a.Type != domain.AccountTypeCredit {
			continue
		}
		if !a.CreditLimit.IsPositive() {
			out.skip(r.Name(), a.ID, SkipNotApplicable, "no credit limit")
			continue
		}
		util := a.Balance.Abs().Div(a.CreditLimit).InexactFloat64()

		var priority Priority
		switch {
		case util > r.cfg.CreditCriticalUtilization:
			priority = PriorityCritical
		case util > r.cfg.CreditHighUtilization:
			priority = PriorityHigh
		default:
			continue
		}

		ins := newInsight(TypeCreditUtilization, priority, a.ID,
			fmt.Sprintf("High credit utilization on %s", a.Name),
			fmt.Sprintf("%s is at %s of its %s limit. Keeping utilization under %s helps your credit score.",
				a.Name, percent(util), money(a.CreditLimit.InexactFloat64()), percent(r.cfg.CreditHighUtilization)))
		ins.AccountID = a.ID
		ins.DataPoints = []DataPoint{
			{Label: "balance", Value: round2(a.Balance.Abs().InexactFloat64())},
			{Label: "credit_limit", Value: round2(a.CreditLimit.InexactFloat64())},
			{Label: "utilization", Value: util},
		}
		out.add(ins)
	}
	return out
}

func sortedAccounts(accounts []domain.Account) []domain.Account {
	out := append([]domain.Account(nil), accounts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
