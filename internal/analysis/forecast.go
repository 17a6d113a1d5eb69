package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/forecast"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// ForecastReport is the monthly net cash-flow series of a window and its
// linear projection.
type ForecastReport struct {
	Window     Window             `json:"window"`
	History    []stats.MonthValue `json:"history"`
	Projection []stats.MonthValue `json:"projection"`
	Slope      float64            `json:"slope"`
	RSquared   float64            `json:"r_squared"`
	Fitted     bool               `json:"fitted"`
}

// Forecast projects monthly net cash flow months steps past the complete
// months of the window. Degenerate series yield an empty projection, not an
// error.
func (a *Analyzer) Forecast(ctx context.Context, start, end time.Time, months int) (*ForecastReport, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("Forecast: %w", ErrInvalidWindow)
	}
	txns, err := a.source.ListTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("Forecast: transactions: %w", err)
	}

	from, to := seriesMonths(start, end, a.clock())
	history := stats.MonthlyNetCashFlowIn(txns, from, to)
	report := &ForecastReport{
		Window:     Window{Start: start, End: end},
		History:    nonNil(history),
		Projection: nonNil(forecast.Project(history, months)),
	}
	if line, ok := forecast.Fit(stats.Values(history)); ok {
		report.Slope = line.Slope
		report.RSquared = line.RSquared
		report.Fitted = true
	}
	return report, nil
}
