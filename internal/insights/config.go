package insights

import (
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/forecast"
)

// Band is an inclusive [Min, Max] interval of days.
type Band struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

func (b Band) contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Config holds every rule threshold.
type Config struct {
	OutlierMinPoints   int     `mapstructure:"outlier_min_points"`
	OutlierStdDevs     float64 `mapstructure:"outlier_std_devs"`
	OutlierHighStdDevs float64 `mapstructure:"outlier_high_std_devs"`

	BudgetPaceFactor      float64 `mapstructure:"budget_pace_factor"`
	BudgetAtRiskRatio     float64 `mapstructure:"budget_at_risk_ratio"`
	BudgetUnderFactor     float64 `mapstructure:"budget_under_factor"`
	BudgetUnderMinElapsed float64 `mapstructure:"budget_under_min_elapsed"`

	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`

	RecurringMinOccurrences int     `mapstructure:"recurring_min_occurrences"`
	RecurringTolerance      float64 `mapstructure:"recurring_tolerance"`
	RecurringWeekly         Band    `mapstructure:"recurring_weekly"`
	RecurringMonthly        Band    `mapstructure:"recurring_monthly"`
	RecurringYearly         Band    `mapstructure:"recurring_yearly"`

	IdleCashMultiplier     float64 `mapstructure:"idle_cash_multiplier"`
	IdleCashLookbackMonths int     `mapstructure:"idle_cash_lookback_months"`

	CreditHighUtilization     float64 `mapstructure:"credit_high_utilization"`
	CreditCriticalUtilization float64 `mapstructure:"credit_critical_utilization"`

	TrendMinMonths      int     `mapstructure:"trend_min_months"`
	TrendSlopeThreshold float64 `mapstructure:"trend_slope_threshold"`

	ForecastMinMonths int `mapstructure:"forecast_min_months"`
	ForecastHorizon   int `mapstructure:"forecast_horizon"`

	RecommendationMinMonths int     `mapstructure:"recommendation_min_months"`
	RecommendationHeadroom  float64 `mapstructure:"recommendation_headroom"`
	RecommendationLowFactor float64 `mapstructure:"recommendation_low_factor"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		OutlierMinPoints:   5,
		OutlierStdDevs:     2,
		OutlierHighStdDevs: 3,

		BudgetPaceFactor:      1.1,
		BudgetAtRiskRatio:     0.7,
		BudgetUnderFactor:     0.5,
		BudgetUnderMinElapsed: 0.5,

		DuplicateWindow: 48 * time.Hour,

		RecurringMinOccurrences: 3,
		RecurringTolerance:      0.2,
		RecurringWeekly:         Band{Min: 5, Max: 9},
		RecurringMonthly:        Band{Min: 26, Max: 35},
		RecurringYearly:         Band{Min: 350, Max: 380},

		IdleCashMultiplier:     2,
		IdleCashLookbackMonths: 3,

		CreditHighUtilization:     0.3,
		CreditCriticalUtilization: 0.7,

		TrendMinMonths:      3,
		TrendSlopeThreshold: 0.1,

		ForecastMinMonths: 2,
		ForecastHorizon:   3,

		RecommendationMinMonths: 3,
		RecommendationHeadroom:  1.1,
		RecommendationLowFactor: 0.8,
	}
}

// Validate rejects thresholds that would make a rule meaningless.
func (c Config) Validate() error {
	var errs []error
	if c.OutlierMinPoints < 2 {
		errs = append(errs, errors.New("outlier_min_points must be at least 2"))
	}
	if c.OutlierHighStdDevs < c.OutlierStdDevs {
		errs = append(errs, errors.New("outlier_high_std_devs must not be below outlier_std_devs"))
	}
	if c.DuplicateWindow <= 0 {
		errs = append(errs, errors.New("duplicate_window must be positive"))
	}
	if c.RecurringMinOccurrences < 3 {
		errs = append(errs, errors.New("recurring_min_occurrences must be at least 3"))
	}
	if c.CreditCriticalUtilization < c.CreditHighUtilization {
		errs = append(errs, errors.New("credit_critical_utilization must not be below credit_high_utilization"))
	}
	if c.IdleCashLookbackMonths < 1 {
		errs = append(errs, errors.New("idle_cash_lookback_months must be at least 1"))
	}
	if c.ForecastMinMonths < 2 {
		errs = append(errs, errors.New("forecast_min_months must be at least 2"))
	}
	if c.ForecastHorizon < 1 || c.ForecastHorizon > forecast.MaxSteps {
		errs = append(errs, fmt.Errorf("forecast_horizon must be between 1 and %d", forecast.MaxSteps))
	}
	return errors.Join(errs...)
}
