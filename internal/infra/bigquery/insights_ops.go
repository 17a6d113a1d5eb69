package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// InsertInsightsWithClient streams a batch of InsightRow into the insights table.
// Rows are never updated after insert, so the streaming buffer is not a concern.
func InsertInsightsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*InsightRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(insightsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertInsights: inserting rows: %w", err)
	}
	return nil
}

// InsertSkipsWithClient streams a batch of SkipRow into the insight_skips table.
func InsertSkipsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*SkipRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(insightSkipsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertSkips: inserting rows: %w", err)
	}
	return nil
}

// QueryInsightsByRunWithClient returns the insights of one run ordered by position.
func QueryInsightsByRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string) ([]*InsightRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			insight_id,
			position,
			insight_type,
			priority,
			title,
			description,
			subject,
			category_id,
			account_id,
			budget_id,
			transaction_ids,
			data_points,
			created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY position
	`, ds.table(insightsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryInsightsByRun: query read: %w", err)
	}

	var rows []*InsightRow
	for {
		var r InsightRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryInsightsByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// QuerySkipsByRunWithClient returns the skips of one run ordered by position.
func QuerySkipsByRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string) ([]*SkipRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT run_id, position, rule, subject, reason, detail
		FROM %s
		WHERE run_id = @run_id
		ORDER BY position
	`, ds.table(insightSkipsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QuerySkipsByRun: query read: %w", err)
	}

	var rows []*SkipRow
	for {
		var r SkipRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QuerySkipsByRun: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
