// Package stats holds the pure aggregation helpers the insight rules build on.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// Summary describes one group of values. StdDev is the population standard deviation.
type Summary struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// GroupKey identifies a (category or account, calendar month) bucket.
type GroupKey struct {
	Key   string `json:"key"`
	Month string `json:"month"`
}

// MonthValue is one point of a monthly series.
type MonthValue struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Summarize computes count, sum, mean and population standard deviation.
// An empty slice yields the zero Summary.
func Summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return Summary{
		Count:  n,
		Sum:    sum,
		Mean:   mean,
		StdDev: math.Sqrt(sq / float64(n)),
	}
}

// GroupByCategory collects expense magnitudes per category key.
func GroupByCategory(txns []domain.Transaction) map[string][]float64 {
	out := make(map[string][]float64)
	for _, t := range txns {
		if !t.IsExpense() {
			continue
		}
		k := t.CategoryKey()
		out[k] = append(out[k], t.Magnitude())
	}
	return out
}

// GroupByCategoryMonth summarizes expense magnitudes per category and month.
func GroupByCategoryMonth(txns []domain.Transaction) map[GroupKey]Summary {
	return groupByMonth(txns, func(t domain.Transaction) string { return t.CategoryKey() })
}

// GroupByAccountMonth summarizes expense magnitudes per account and month.
func GroupByAccountMonth(txns []domain.Transaction) map[GroupKey]Summary {
	return groupByMonth(txns, func(t domain.Transaction) string { return t.AccountID })
}

func groupByMonth(txns []domain.Transaction, key func(domain.Transaction) string) map[GroupKey]Summary {
	values := make(map[GroupKey][]float64)
	for _, t := range txns {
		if !t.IsExpense() {
			continue
		}
		gk := GroupKey{Key: key(t), Month: domain.MonthKey(t.Date)}
		values[gk] = append(values[gk], t.Magnitude())
	}
	out := make(map[GroupKey]Summary, len(values))
	for k, v := range values {
		out[k] = Summarize(v)
	}
	return out
}

// MonthlyNetCashFlow sums signed amounts per month, in chronological order.
// Months with no activity between the first and last month are filled with 0.
func MonthlyNetCashFlow(txns []domain.Transaction) []MonthValue {
	return monthlySeries(txns, func(t domain.Transaction) (float64, bool) {
		return t.Amount.InexactFloat64(), true
	})
}

// MonthlyExpenseTotals sums expense magnitudes per month, in chronological
// order, with gap months filled with 0.
func MonthlyExpenseTotals(txns []domain.Transaction) []MonthValue {
	return monthlySeries(txns, func(t domain.Transaction) (float64, bool) {
		return t.Magnitude(), t.IsExpense()
	})
}

func monthlySeries(txns []domain.Transaction, value func(domain.Transaction) (float64, bool)) []MonthValue {
	if len(txns) == 0 {
		return nil
	}
	sums := make(map[string]float64)
	var first, last time.Time
	for i, t := range txns {
		m := domain.MonthStart(t.Date.UTC())
		if i == 0 || m.Before(first) {
			first = m
		}
		if i == 0 || m.After(last) {
			last = m
		}
		if v, ok := value(t); ok {
			sums[domain.MonthKey(m)] += v
		}
	}
	var out []MonthValue
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		k := domain.MonthKey(m)
		out = append(out, MonthValue{Month: k, Value: sums[k]})
	}
	return out
}

// CompleteMonths returns the calendar months lying entirely inside
// [start, end) as the half-open range of month starts [from, to). When no
// month fits, to is not after from.
func CompleteMonths(start, end time.Time) (from, to time.Time) {
	start, end = start.UTC(), end.UTC()
	from = domain.MonthStart(start)
	if from.Before(start) {
		from = from.AddDate(0, 1, 0)
	}
	return from, domain.MonthStart(end)
}

// MonthlyNetCashFlowIn is MonthlyNetCashFlow over the months [from, to).
// Every month in the range is present; transactions outside it are ignored.
func MonthlyNetCashFlowIn(txns []domain.Transaction, from, to time.Time) []MonthValue {
	return monthlySeriesIn(txns, from, to, func(t domain.Transaction) (float64, bool) {
		return t.Amount.InexactFloat64(), true
	})
}

// MonthlyExpenseTotalsIn is MonthlyExpenseTotals over the months [from, to).
func MonthlyExpenseTotalsIn(txns []domain.Transaction, from, to time.Time) []MonthValue {
	return monthlySeriesIn(txns, from, to, func(t domain.Transaction) (float64, bool) {
		return t.Magnitude(), t.IsExpense()
	})
}

func monthlySeriesIn(txns []domain.Transaction, from, to time.Time, value func(domain.Transaction) (float64, bool)) []MonthValue {
	if !to.After(from) {
		return nil
	}
	sums := make(map[string]float64)
	for _, t := range txns {
		d := t.Date.UTC()
		if d.Before(from) || !d.Before(to) {
			continue
		}
		if v, ok := value(t); ok {
			sums[domain.MonthKey(d)] += v
		}
	}
	var out []MonthValue
	for m := from; m.Before(to); m = m.AddDate(0, 1, 0) {
		k := domain.MonthKey(m)
		out = append(out, MonthValue{Month: k, Value: sums[k]})
	}
	return out
}

// ActiveMonths counts the points of a series with a non-zero value.
func ActiveMonths(series []MonthValue) int {
	n := 0
	for _, p := range series {
		if p.Value != 0 {
			n++
		}
	}
	return n
}

// Values strips the month labels from a series.
func Values(series []MonthValue) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}

// SortedKeys returns map keys in ascending order so callers iterate deterministically.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
