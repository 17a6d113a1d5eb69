package insights

import (
	"fmt"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// OutlierRule flags the single largest unusual expense per category.
type OutlierRule struct {
	cfg Config
}

func NewOutlierRule(cfg Config) *OutlierRule {
	return &OutlierRule{cfg: cfg}
}

func (r *OutlierRule) Name() string { return "outlier" }

func (r *OutlierRule) Evaluate(in Input) Outcome {
	var out Outcome

	byCategory := make(map[string][]domain.Transaction)
	for _, t := range in.Transactions {
		if t.IsExpense() {
			byCategory[t.CategoryKey()] = append(byCategory[t.CategoryKey()], t)
		}
	}

	for _, cat := range stats.SortedKeys(byCategory) {
		txns := byCategory[cat]
		if len(txns) < r.cfg.OutlierMinPoints {
			out.skip(r.Name(), cat, SkipInsufficientData, "%d expenses, need %d", len(txns), r.cfg.OutlierMinPoints)
			continue
		}

		values := make([]float64, len(txns))
		for i, t := range txns {
			values[i] = t.Magnitude()
		}
		s := stats.Summarize(values)
		threshold := s.Mean + r.cfg.OutlierStdDevs*s.StdDev

		best := -1
		for i, v := range values {
			if v > threshold && (best < 0 || v > values[best]) {
				best = i
			}
		}
		if best < 0 {
			continue
		}

		t := txns[best]
		priority := PriorityMedium
		if values[best] > s.Mean+r.cfg.OutlierHighStdDevs*s.StdDev {
			priority = PriorityHigh
		}

		ins := newInsight(TypeAnomaly, priority, cat+"/"+t.ID,
			fmt.Sprintf("Unusual %s expense", t.CategoryLabel()),
			fmt.Sprintf("%s on %s cost %s, well above the usual %s for %s.",
				t.Title, t.Date.Format("2006-01-02"), money(values[best]), money(s.Mean), t.CategoryLabel()))
		ins.CategoryID = cat
		ins.AccountID = t.AccountID
		ins.TransactionIDs = []string{t.ID}
		ins.DataPoints = []DataPoint{
			{Label: "amount", Value: round2(values[best])},
			{Label: "category_mean", Value: round2(s.Mean)},
			{Label: "threshold", Value: round2(threshold)},
		}
		out.add(ins)
	}
	return out
}
