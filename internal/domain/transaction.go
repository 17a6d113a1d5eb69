package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry as the analysis layer sees it.
// Amount is signed: money IN is positive, money OUT is negative. The sign is
// the only income/expense signal; there is no separate type tag.
type Transaction struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	Title        string          `json:"title"`
	Notes        string          `json:"notes,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	AccountID    string          `json:"account_id,omitempty"`
}

// IsExpense reports whether money left the account.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether money entered the account.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// Magnitude returns abs(Amount) as a float for statistics.
func (t Transaction) Magnitude() float64 {
	return t.Amount.Abs().InexactFloat64()
}

// CategoryKey returns the category id, falling back to the name and then to
// "uncategorized" so every transaction lands in some group.
func (t Transaction) CategoryKey() string {
	if t.CategoryID != "" {
		return t.CategoryID
	}
	if t.CategoryName != "" {
		return NormalizeName(t.CategoryName)
	}
	return "uncategorized"
}

// CategoryLabel is the human-facing category name.
func (t Transaction) CategoryLabel() string {
	if t.CategoryName != "" {
		return t.CategoryName
	}
	return t.CategoryKey()
}

// NormalizeName lower-cases a payee name, drops everything that is not a
// letter or a space and collapses runs of whitespace. Store numbers and
// reference codes ("COFFEE SHOP #1234") therefore collapse to one name.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// MonthKey formats the calendar month of t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthStart truncates t to the first instant of its calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
