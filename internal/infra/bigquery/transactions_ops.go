package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// QueryTransactionsByDateRangeWithClient queries transactions with
// start <= transaction_date < end using the provided BigQuery client.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, startDate, endDate time.Time) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.account_id,
			t.transaction_date,
			t.booking_datetime,
			t.amount,
			t.currency,
			t.raw_description,
			t.notes,
			t.category_id,
			t.category_name,
			t.created_ts
		FROM %s t
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date < @end_date
		ORDER BY t.transaction_date, t.created_ts
	`, ds.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(startDate)},
		{Name: "end_date", Value: civil.DateOf(endDate)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
