package insights

import (
	"fmt"
	"sort"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// DuplicateRule flags pairs of identical expenses charged close together.
type DuplicateRule struct {
	cfg Config
}

func NewDuplicateRule(cfg Config) *DuplicateRule {
	return &DuplicateRule{cfg: cfg}
}

func (r *DuplicateRule) Name() string { return "duplicate_payment" }

func (r *DuplicateRule) Evaluate(in Input) Outcome {
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
		key := name + "|" + t.Amount.Abs().String()
		groups[key] = append(groups[key], t)
	}

	for _, key := range stats.SortedKeys(groups) {
		txns := groups[key]
		if len(txns) < 2 {
			continue
		}
		sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

		for i := 0; i < len(txns); i++ {
			for j := i + 1; j < len(txns); j++ {
				gap := txns[j].Date.Sub(txns[i].Date)
				if gap > r.cfg.DuplicateWindow {
					break
				}
				a, b := txns[i], txns[j]
				ins := newInsight(TypeDuplicatePayment, PriorityMedium, a.ID+"/"+b.ID,
					fmt.Sprintf("Possible duplicate payment: %s", a.Title),
					fmt.Sprintf("%s was charged %s twice within %s (%s and %s).",
						a.Title, money(a.Magnitude()), gap.String(),
						a.Date.Format("2006-01-02 15:04"), b.Date.Format("2006-01-02 15:04")))
				ins.AccountID = a.AccountID
				ins.CategoryID = a.CategoryKey()
				ins.TransactionIDs = []string{a.ID, b.ID}
				ins.DataPoints = []DataPoint{
					{Label: "amount", Value: round2(a.Magnitude())},
					{Label: "hours_apart", Value: gap.Hours()},
				}
				out.add(ins)
			}
		}
	}
	return out
}
