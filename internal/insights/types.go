// Package insights turns transactions, accounts and budgets into advisory
// insight records. Each rule is evaluated independently; rules never fail,
// they report a Skip when a subject has too little data.
package insights

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// Priority is ordered: PriorityLow < PriorityMedium < PriorityHigh < PriorityCritical.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority is the inverse of String.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("ParsePriority: unknown priority %q", s)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Type tags what kind of pattern an insight describes.
type Type string

const (
	TypeSpendingPattern      Type = "spending_pattern"
	TypeAnomaly              Type = "anomaly"
	TypeBudgetAlert          Type = "budget_alert"
	TypeForecast             Type = "forecast"
	TypeOptimization         Type = "optimization"
	TypeDuplicatePayment     Type = "duplicate_payment"
	TypeRecurringExpense     Type = "recurring_expense"
	TypeCashManagement       Type = "cash_management"
	TypeCreditUtilization    Type = "credit_utilization"
	TypeBudgetRecommendation Type = "budget_recommendation"
)

// DataPoint is a chart-ready (label, value) pair.
type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Insight is an immutable advisory record.
type Insight struct {
	ID             string      `json:"id"`
	Type           Type        `json:"type"`
	Priority       Priority    `json:"priority"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Subject        string      `json:"subject"`
	CategoryID     string      `json:"category_id,omitempty"`
	AccountID      string      `json:"account_id,omitempty"`
	BudgetID       string      `json:"budget_id,omitempty"`
	TransactionIDs []string    `json:"transaction_ids,omitempty"`
	DataPoints     []DataPoint `json:"data_points,omitempty"`
}

var insightNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("finance-insights/insight"))

// Fingerprint derives the stable insight ID for a type and subject.
func Fingerprint(t Type, subject string) string {
	return uuid.NewSHA1(insightNamespace, []byte(string(t)+":"+subject)).String()
}

func newInsight(t Type, p Priority, subject, title, description string) Insight {
	return Insight{
		ID:          Fingerprint(t, subject),
		Type:        t,
		Priority:    p,
		Title:       title,
		Description: description,
		Subject:     subject,
	}
}

// SkipReason says why a rule produced nothing for a subject.
type SkipReason string

const (
	SkipInsufficientData SkipReason = "insufficient_data"
	SkipNotApplicable    SkipReason = "not_applicable"
	SkipRuleFailed       SkipReason = "rule_failed"
)

// Skip records a subject a rule could not evaluate.
type Skip struct {
	Rule    string     `json:"rule"`
	Subject string     `json:"subject"`
	Reason  SkipReason `json:"reason"`
	Detail  string     `json:"detail,omitempty"`
}

// Input is everything a rule may look at. Now anchors every time-relative
// computation so results are reproducible.
type Input struct {
	Transactions []domain.Transaction
	// History holds older transactions for trailing averages. Nil means
	// Transactions already covers the lookback.
	History  []domain.Transaction
	Accounts []domain.Account
	Budgets  []domain.Budget
	Now      time.Time

	// Start and End are the analysis window, [Start, End). When set, monthly
	// series cover the complete months of the window that had ended by Now;
	// otherwise they span the transactions themselves.
	Start time.Time
	End   time.Time
}

func (in Input) history() []domain.Transaction {
	if in.History != nil {
		return in.History
	}
	return in.Transactions
}

// Outcome is the result of evaluating one rule or the whole engine.
type Outcome struct {
	Insights []Insight `json:"insights"`
	Skipped  []Skip    `json:"skipped"`
}

func (o *Outcome) add(i Insight) {
	o.Insights = append(o.Insights, i)
}

func (o *Outcome) skip(rule, subject string, reason SkipReason, format string, args ...any) {
	o.Skipped = append(o.Skipped, Skip{
		Rule:    rule,
		Subject: subject,
		Reason:  reason,
		Detail:  fmt.Sprintf(format, args...),
	})
}

// Rule is a single insight heuristic.
type Rule interface {
	Name() string
	Evaluate(in Input) Outcome
}
