package analysis

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
	"github.com/dvloznov/finance-insights/internal/logger"
)

const maxErrorMessageLen = 2000

// AnalysisStep represents a single step in the analysis pipeline.
type AnalysisStep interface {
	Execute(ctx context.Context, state *AnalysisState) error
}

// AnalysisState holds the shared state across all pipeline steps.
type AnalysisState struct {
	Request Request
	RunID   string
	Rules   []string

	// RunStarted is set once the sink holds a RUNNING row for RunID.
	RunStarted bool

	Transactions []domain.Transaction
	History      []domain.Transaction
	Accounts     []domain.Account
	Budgets      []domain.Budget

	Outcome insights.Outcome
}

// Step 1: StartRunStep records a RUNNING analysis run.
type StartRunStep struct {
	Sink InsightSink
}

func (s *StartRunStep) Execute(ctx context.Context, state *AnalysisState) error {
	run := domain.AnalysisRun{
		RunID:       state.RunID,
		Trigger:     state.Request.Trigger,
		WindowStart: state.Request.Start,
		WindowEnd:   state.Request.End,
		StartedAt:   state.Request.Now,
		Status:      domain.RunStatusRunning,
		Rules:       state.Rules,
	}
	if err := s.Sink.StartAnalysisRun(ctx, run); err != nil {
		return fmt.Errorf("StartRunStep: %w", err)
	}
	state.RunStarted = true
	return nil
}

// Step 2: LoadDataStep reads transactions, accounts and budgets. History
// reaches back lookbackMonths before the current month, and back to the start
// of every active budget's period, so trailing averages and budget spend do
// not depend on where the window happens to start. It also runs up to Now
// when the window ends earlier.
type LoadDataStep struct {
	Source         DataSource
	Sink           InsightSink
	LookbackMonths int
}

func (s *LoadDataStep) Execute(ctx context.Context, state *AnalysisState) error {
	req := state.Request

	budgets, err := s.Source.ListBudgets(ctx, req.Now)
	if err != nil {
		return markFailed(ctx, s.Sink, state, fmt.Errorf("LoadDataStep: budgets: %w", err))
	}

	loadStart, loadEnd := historyRange(req, budgets, s.LookbackMonths)
	txns, err := s.Source.ListTransactions(ctx, loadStart, loadEnd)
	if err != nil {
		return markFailed(ctx, s.Sink, state, fmt.Errorf("LoadDataStep: transactions: %w", err))
	}
	accounts, err := s.Source.ListAccounts(ctx)
	if err != nil {
		return markFailed(ctx, s.Sink, state, fmt.Errorf("LoadDataStep: accounts: %w", err))
	}

	state.History = txns
	state.Transactions = inWindow(txns, req.Start, req.End)
	state.Accounts = accounts
	state.Budgets = budgets

	log := logger.FromContext(ctx)
	log.Debug().
		Str("run_id", state.RunID).
		Int("transactions", len(state.Transactions)).
		Int("history", len(state.History)).
		Int("accounts", len(accounts)).
		Int("budgets", len(budgets)).
		Msg("Loaded analysis input")
	return nil
}

// historyRange widens the request window to cover the idle-cash lookback,
// every budget period and everything up to the end of Now's day.
func historyRange(req Request, budgets []domain.Budget, lookbackMonths int) (time.Time, time.Time) {
	start, end := req.Start, req.End
	if lookback := domain.MonthStart(req.Now).AddDate(0, -lookbackMonths, 0); lookback.Before(start) {
		start = lookback
	}
	for _, b := range budgets {
		if !b.PeriodStart.IsZero() && b.PeriodStart.Before(start) {
			start = b.PeriodStart
		}
	}
	y, m, d := req.Now.Date()
	if dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, req.Now.Location()); dayEnd.After(end) {
		end = dayEnd
	}
	return start, end
}

func inWindow(txns []domain.Transaction, start, end time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.Date.Before(start) && t.Date.Before(end) {
			out = append(out, t)
		}
	}
	return out
}

// Step 3: EvaluateStep runs the insight engine.
type EvaluateStep struct {
	Engine *insights.Engine
}

func (s *EvaluateStep) Execute(ctx context.Context, state *AnalysisState) error {
	state.Outcome = s.Engine.Analyze(ctx, insights.Input{
		Transactions: state.Transactions,
		History:      state.History,
		Accounts:     state.Accounts,
		Budgets:      state.Budgets,
		Now:          state.Request.Now,
		Start:        state.Request.Start,
		End:          state.Request.End,
	})
	return nil
}

// Step 4: StoreInsightsStep persists the outcome.
type StoreInsightsStep struct {
	Sink InsightSink
}

func (s *StoreInsightsStep) Execute(ctx context.Context, state *AnalysisState) error {
	if err := s.Sink.SaveInsights(ctx, state.RunID, state.Outcome); err != nil {
		return markFailed(ctx, s.Sink, state, fmt.Errorf("StoreInsightsStep: %w", err))
	}
	return nil
}

// Step 5: MarkSuccessStep marks the run as SUCCESS.
type MarkSuccessStep struct {
	Sink InsightSink
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *AnalysisState) error {
	err := s.Sink.MarkAnalysisRunSucceeded(ctx, state.RunID, len(state.Outcome.Insights), len(state.Outcome.Skipped))
	if err != nil {
		return fmt.Errorf("MarkSuccessStep: %w", err)
	}
	return nil
}

// markFailed records err on the run, if one was started, and returns err.
// The update runs even when ctx is already cancelled.
func markFailed(ctx context.Context, sink InsightSink, state *AnalysisState, err error) error {
	if sink == nil || !state.RunStarted {
		return err
	}
	msg := truncateUTF8(err.Error(), maxErrorMessageLen)
	if markErr := sink.MarkAnalysisRunFailed(context.WithoutCancel(ctx), state.RunID, msg); markErr != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(markErr).
			Str("run_id", state.RunID).
			Msg("Failed to mark analysis run as failed")
	}
	return err
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []AnalysisStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...AnalysisStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *AnalysisState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("analysis step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
