package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/dataset"
	"github.com/dvloznov/finance-insights/internal/sentiment"
)

// ImportCounts reports how many rows an import touched.
type ImportCounts struct {
	Accounts     int `json:"accounts"`
	Budgets      int `json:"budgets"`
	Transactions int `json:"transactions"`
	Entries      int `json:"entries"`
}

// ImportDataset upserts everything in ds in a single transaction. Entries
// are scored before they are stored.
func (s *Store) ImportDataset(ctx context.Context, ds *dataset.Dataset) (ImportCounts, error) {
	counts := ImportCounts{
		Accounts:     len(ds.Accounts),
		Budgets:      len(ds.Budgets),
		Transactions: len(ds.Transactions),
		Entries:      len(ds.Entries),
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertAccounts(ctx, tx, ds.Accounts); err != nil {
			return err
		}
		if err := upsertBudgets(ctx, tx, ds.Budgets); err != nil {
			return err
		}
		return upsertTransactions(ctx, tx, ds.Transactions)
	})
	if err != nil {
		return ImportCounts{}, fmt.Errorf("ImportDataset: %w", err)
	}

	now := time.Now().UTC()
	for _, e := range ds.Entries {
		sentiment.Annotate(&e, now)
		if err := s.UpsertEntry(ctx, e); err != nil {
			return ImportCounts{}, fmt.Errorf("ImportDataset: %w", err)
		}
	}
	return counts, nil
}
