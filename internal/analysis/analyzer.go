// Package analysis runs the insight engine as a persisted pipeline: start a
// run, load the window, evaluate every rule, store the outcome and mark the
// run finished.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/forecast"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/stats"
)

// Trigger values recorded on runs.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// ErrInvalidWindow is returned when a request's window is empty or inverted.
var ErrInvalidWindow = errors.New("window end must be after start")

// Request describes one analysis. Window is [Start, End). A zero Now means
// the analyzer's clock; a zero RunID gets a fresh UUID.
type Request struct {
	RunID   string
	Trigger string
	Start   time.Time
	End     time.Time
	Now     time.Time
}

// Window is a half-open date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Report is what one analysis produces.
type Report struct {
	RunID       string             `json:"run_id"`
	Trigger     string             `json:"trigger,omitempty"`
	Window      Window             `json:"window"`
	GeneratedAt time.Time          `json:"generated_at"`
	Rules       []string           `json:"rules,omitempty"`
	Insights    []insights.Insight `json:"insights"`
	Skipped     []insights.Skip    `json:"skipped"`
	CashFlow    []stats.MonthValue `json:"cash_flow,omitempty"`
	Forecast    []stats.MonthValue `json:"forecast,omitempty"`
}

// MaxLookbackMonths bounds the month count accepted for default windows.
const MaxLookbackMonths = 120

// DefaultWindow spans the given number of complete months before now's month
// plus everything up to the end of now's day.
func DefaultWindow(now time.Time, months int) (time.Time, time.Time) {
	start := domain.MonthStart(now).AddDate(0, -months, 0)
	y, m, d := now.Date()
	end := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return start, end
}

// Analyzer wires a data source, an optional sink and an engine together.
type Analyzer struct {
	source DataSource
	sink   InsightSink
	engine *insights.Engine

	clock func() time.Time
	newID func() string
}

// NewAnalyzer creates an analyzer. sink may be nil, in which case results
// are returned but not persisted.
func NewAnalyzer(source DataSource, sink InsightSink, engine *insights.Engine) *Analyzer {
	return &Analyzer{
		source: source,
		sink:   sink,
		engine: engine,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
}

// Engine returns the engine the analyzer evaluates with.
func (a *Analyzer) Engine() *insights.Engine {
	return a.engine
}

// Run executes the pipeline for req and returns its report. Runs replace one
// another: readers always look at the latest successful run.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Now.IsZero() {
		req.Now = a.clock()
	}
	if req.Trigger == "" {
		req.Trigger = TriggerCLI
	}
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("Run: %w", ErrInvalidWindow)
	}
	runID := req.RunID
	if runID == "" {
		runID = a.newID()
	}

	log := logger.FromContext(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &AnalysisState{
		Request: req,
		RunID:   runID,
		Rules:   a.engine.Rules(),
	}
	if err := a.pipeline().Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Analysis run failed")
		return nil, fmt.Errorf("Run: %w", err)
	}

	report := a.report(state)
	log.Info().
		Str("trigger", req.Trigger).
		Int("insights", len(report.Insights)).
		Int("skipped", len(report.Skipped)).
		Msg("Analysis run completed")
	return report, nil
}

func (a *Analyzer) pipeline() *Pipeline {
	load := &LoadDataStep{
		Source:         a.source,
		Sink:           a.sink,
		LookbackMonths: a.engine.Config().IdleCashLookbackMonths,
	}
	eval := &EvaluateStep{Engine: a.engine}
	if a.sink == nil {
		return NewPipeline(load, eval)
	}
	return NewPipeline(
		&StartRunStep{Sink: a.sink},
		load,
		eval,
		&StoreInsightsStep{Sink: a.sink},
		&MarkSuccessStep{Sink: a.sink},
	)
}

func (a *Analyzer) report(state *AnalysisState) *Report {
	from, to := seriesMonths(state.Request.Start, state.Request.End, state.Request.Now)
	cashFlow := stats.MonthlyNetCashFlowIn(state.Transactions, from, to)
	return &Report{
		RunID:       state.RunID,
		Trigger:     state.Request.Trigger,
		Window:      Window{Start: state.Request.Start, End: state.Request.End},
		GeneratedAt: state.Request.Now,
		Rules:       state.Rules,
		Insights:    nonNil(state.Outcome.Insights),
		Skipped:     nonNil(state.Outcome.Skipped),
		CashFlow:    cashFlow,
		Forecast:    forecast.Project(cashFlow, a.engine.Config().ForecastHorizon),
	}
}

// ReportFromResult rebuilds a report from a stored run. Series are not
// stored, so CashFlow and Forecast stay empty.
func ReportFromResult(run domain.AnalysisRun, out insights.Outcome) *Report {
	generated := run.StartedAt
	if run.FinishedAt != nil {
		generated = *run.FinishedAt
	}
	return &Report{
		RunID:       run.RunID,
		Trigger:     run.Trigger,
		Window:      Window{Start: run.WindowStart, End: run.WindowEnd},
		GeneratedAt: generated,
		Rules:       run.Rules,
		Insights:    nonNil(out.Insights),
		Skipped:     nonNil(out.Skipped),
	}
}

// seriesMonths bounds monthly series to the complete months of [start, end)
// that had already ended at now. The running month is left out so a partial
// month never reads as a real drop in spend or income.
func seriesMonths(start, end, now time.Time) (time.Time, time.Time) {
	if !now.IsZero() && now.Before(end) {
		end = now
	}
	return stats.CompleteMonths(start, end)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
