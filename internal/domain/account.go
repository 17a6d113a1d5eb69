package domain

import "github.com/shopspring/decimal"

// AccountType classifies an account for the cash and credit rules.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeInvestment AccountType = "investment"
)

// Account is a balance holder referenced by transactions.
// For credit accounts Balance is the amount owed (sign is ignored) and
// CreditLimit is the line size.
type Account struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit,omitempty"`
	Currency    string          `json:"currency,omitempty"`
}
