package insights

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/finance-insights/internal/logger"
)

// Engine runs a fixed set of rules over one Input.
type Engine struct {
	cfg   Config
	rules []Rule
}

// NewEngine builds an engine. With no rules it falls back to DefaultRules(cfg).
func NewEngine(cfg Config, rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules(cfg)
	}
	return &Engine{cfg: cfg, rules: rules}
}

// DefaultRules returns every built-in rule configured with cfg.
func DefaultRules(cfg Config) []Rule {
	return []Rule{
		NewOutlierRule(cfg),
		NewBudgetAlertRule(cfg),
		NewDuplicateRule(cfg),
		NewRecurringRule(cfg),
		NewIdleCashRule(cfg),
		NewCreditUtilizationRule(cfg),
		NewSpendingTrendRule(cfg),
		NewCashFlowForecastRule(cfg),
		NewBudgetRecommendationRule(cfg),
	}
}

// Config returns the thresholds the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Rules lists the rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Analyze evaluates every rule and returns the combined outcome, ordered by
// priority from critical to low. Insights of equal priority keep rule order.
func (e *Engine) Analyze(ctx context.Context, in Input) Outcome {
	log := logger.FromContext(ctx)

	var out Outcome
	for _, r := range e.rules {
		res := e.evaluate(ctx, r, in)
		log.Debug().
			Str("rule", r.Name()).
			Int("insights", len(res.Insights)).
			Int("skipped", len(res.Skipped)).
			Msg("Rule evaluated")
		out.Insights = append(out.Insights, res.Insights...)
		out.Skipped = append(out.Skipped, res.Skipped...)
	}

	sort.SliceStable(out.Insights, func(i, j int) bool {
		return out.Insights[i].Priority > out.Insights[j].Priority
	})
	return out
}

func (e *Engine) evaluate(ctx context.Context, r Rule, in Input) (res Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Str("rule", r.Name()).
				Interface("panic", p).
				Msg("Rule panicked, skipping")
			res = Outcome{Skipped: []Skip{{
				Rule:    r.Name(),
				Subject: "*",
				Reason:  SkipRuleFailed,
				Detail:  fmt.Sprint(p),
			}}}
		}
	}()
	return r.Evaluate(in)
}
