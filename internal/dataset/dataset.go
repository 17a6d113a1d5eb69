// Package dataset loads accounts, budgets, transactions and planner entries
// from a YAML (or JSON) document. Amounts are quoted decimal strings so no
// precision is lost on the way in.
package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/gcs"
)

// Dataset is an in-memory snapshot of a user's finances.
type Dataset struct {
	Accounts     []domain.Account
	Budgets      []domain.Budget
	Transactions []domain.Transaction
	Entries      []domain.Entry
}

type fileAccount struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Balance     string `yaml:"balance"`
	CreditLimit string `yaml:"credit_limit"`
	Currency    string `yaml:"currency"`
}

type fileBudget struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	CategoryID    string `yaml:"category_id"`
	Limit         string `yaml:"limit"`
	PeriodStart   string `yaml:"period_start"`
	PeriodEnd     string `yaml:"period_end"`
	Rollover      bool   `yaml:"rollover"`
	RolloverCap   string `yaml:"rollover_cap"`
	PreviousSpent string `yaml:"previous_spent"`
}

type fileTransaction struct {
	ID           string `yaml:"id"`
	Date         string `yaml:"date"`
	Title        string `yaml:"title"`
	Notes        string `yaml:"notes"`
	Amount       string `yaml:"amount"`
	Currency     string `yaml:"currency"`
	CategoryID   string `yaml:"category_id"`
	CategoryName string `yaml:"category_name"`
	AccountID    string `yaml:"account_id"`
}

type fileEntry struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type fileDataset struct {
	Accounts     []fileAccount     `yaml:"accounts"`
	Budgets      []fileBudget      `yaml:"budgets"`
	Transactions []fileTransaction `yaml:"transactions"`
	Entries      []fileEntry       `yaml:"entries"`
}

// Parse decodes a dataset document.
func Parse(data []byte) (*Dataset, error) {
	var raw fileDataset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("Parse: decode yaml: %w", err)
	}
	return convert(raw)
}

// Load decodes a dataset from r.
func Load(r io.Reader) (*Dataset, error) {
	var raw fileDataset
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("Load: decode yaml: %w", err)
	}
	return convert(raw)
}

// LoadFile reads a dataset from a local path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFile: open %q: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// LoadURI reads a dataset from a gs:// URI through storage, or from the local
// filesystem otherwise.
func LoadURI(ctx context.Context, storage gcs.StorageService, uri string) (*Dataset, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return LoadFile(uri)
	}
	if storage == nil {
		return nil, fmt.Errorf("LoadURI: no storage service for %s", uri)
	}
	data, err := storage.FetchFromGCS(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("LoadURI: fetch %s: %w", uri, err)
	}
	return Parse(data)
}

func convert(raw fileDataset) (*Dataset, error) {
	ds := &Dataset{}

	for i, a := range raw.Accounts {
		balance, err := parseAmount(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d] %s: balance: %w", i, a.ID, err)
		}
		limit, err := parseAmount(a.CreditLimit)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d] %s: credit_limit: %w", i, a.ID, err)
		}
		ds.Accounts = append(ds.Accounts, domain.Account{
			ID:          a.ID,
			Name:        a.Name,
			Type:        domain.AccountType(strings.ToLower(a.Type)),
			Balance:     balance,
			CreditLimit: limit,
			Currency:    a.Currency,
		})
	}

	for i, b := range raw.Budgets {
		budget, err := convertBudget(b)
		if err != nil {
			return nil, fmt.Errorf("budgets[%d] %s: %w", i, b.ID, err)
		}
		ds.Budgets = append(ds.Budgets, budget)
	}

	for i, t := range raw.Transactions {
		date, err := parseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d] %s: date: %w", i, t.ID, err)
		}
		amount, err := parseAmount(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("transactions[%d] %s: amount: %w", i, t.ID, err)
		}
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("txn-%d", i+1)
		}
		ds.Transactions = append(ds.Transactions, domain.Transaction{
			ID:           id,
			Date:         date,
			Title:        t.Title,
			Notes:        t.Notes,
			Amount:       amount,
			Currency:     t.Currency,
			CategoryID:   t.CategoryID,
			CategoryName: t.CategoryName,
			AccountID:    t.AccountID,
		})
	}

	for _, e := range raw.Entries {
		kind := domain.EntryKind(strings.ToLower(e.Kind))
		if kind == "" {
			kind = domain.EntryKindJournal
		}
		ds.Entries = append(ds.Entries, domain.Entry{ID: e.ID, Kind: kind, Title: e.Title, Body: e.Body})
	}

	sort.SliceStable(ds.Transactions, func(i, j int) bool {
		return ds.Transactions[i].Date.Before(ds.Transactions[j].Date)
	})
	return ds, nil
}

func convertBudget(b fileBudget) (domain.Budget, error) {
	limit, err := parseAmount(b.Limit)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("limit: %w", err)
	}
	start, err := parseDate(b.PeriodStart)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("period_start: %w", err)
	}
	end := start.AddDate(0, 1, 0)
	if b.PeriodEnd != "" {
		if end, err = parseDate(b.PeriodEnd); err != nil {
			return domain.Budget{}, fmt.Errorf("period_end: %w", err)
		}
	}
	if !end.After(start) {
		return domain.Budget{}, fmt.Errorf("period_end %s is not after period_start %s", b.PeriodEnd, b.PeriodStart)
	}
	rolloverCap, err := parseAmount(b.RolloverCap)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("rollover_cap: %w", err)
	}
	prev, err := parseAmount(b.PreviousSpent)
	if err != nil {
		return domain.Budget{}, fmt.Errorf("previous_spent: %w", err)
	}
	name := b.Name
	if name == "" {
		name = b.CategoryID
	}
	return domain.Budget{
		ID:            b.ID,
		Name:          name,
		CategoryID:    b.CategoryID,
		Limit:         limit,
		PeriodStart:   start,
		PeriodEnd:     end,
		Rollover:      b.Rollover,
		RolloverCap:   rolloverCap,
		PreviousSpent: prev,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ListTransactions returns transactions with start <= date < end.
func (d *Dataset) ListTransactions(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range d.Transactions {
		if !t.Date.Before(start) && t.Date.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListAccounts returns every account.
func (d *Dataset) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return append([]domain.Account(nil), d.Accounts...), nil
}

// ListBudgets returns budgets whose period contains asOf.
func (d *Dataset) ListBudgets(ctx context.Context, asOf time.Time) ([]domain.Budget, error) {
	var out []domain.Budget
	for _, b := range d.Budgets {
		if b.Active(asOf) {
			out = append(out, b)
		}
	}
	return out, nil
}
