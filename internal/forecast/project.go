package forecast

import (
	"time"

	"github.com/dvloznov/finance-insights/internal/stats"
)

// Project extends a monthly series by steps months, labelling each projected
// point with the month that follows the last observed one.
func Project(series []stats.MonthValue, steps int) []stats.MonthValue {
	values := Extrapolate(stats.Values(series), steps)
	if len(values) == 0 {
		return []stats.MonthValue{}
	}
	last, err := time.Parse("2006-01", series[len(series)-1].Month)
	if err != nil {
		return []stats.MonthValue{}
	}
	out := make([]stats.MonthValue, len(values))
	for i, v := range values {
		out[i] = stats.MonthValue{
			Month: last.AddDate(0, i+1, 0).Format("2006-01"),
			Value: v,
		}
	}
	return out
}
