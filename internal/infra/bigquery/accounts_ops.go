package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// ListAllAccountsWithClient retrieves all accounts using the provided BigQuery client.
func ListAllAccountsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]*AccountRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			account_id,
			account_name,
			account_type,
			currency,
			balance,
			credit_limit,
			updated_ts
		FROM %s
		ORDER BY account_id
	`, ds.table(accountsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAllAccountsWithClient: reading query: %w", err)
	}

	var accounts []*AccountRow
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAllAccountsWithClient: iterating: %w", err)
		}
		accounts = append(accounts, &row)
	}

	return accounts, nil
}

// ListActiveBudgetsWithClient retrieves budgets whose period contains asOf.
func ListActiveBudgetsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, asOf time.Time) ([]*BudgetRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			budget_id,
			budget_name,
			category_id,
			limit_amount,
			period_start,
			period_end,
			rollover,
			rollover_cap,
			previous_spent
		FROM %s
		WHERE period_start <= @as_of
		  AND period_end > @as_of
		ORDER BY budget_id
	`, ds.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "as_of", Value: civil.DateOf(asOf)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveBudgetsWithClient: reading query: %w", err)
	}

	var budgets []*BudgetRow
	for {
		var row BudgetRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveBudgetsWithClient: iterating: %w", err)
		}
		budgets = append(budgets, &row)
	}

	return budgets, nil
}
