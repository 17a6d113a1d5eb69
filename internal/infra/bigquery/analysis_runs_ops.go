package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const maxErrorMessageLen = 2000

// StartAnalysisRunWithClient inserts a new row into analysis_runs with status=RUNNING.
// DML is used instead of streaming so the row can be updated right away.
func StartAnalysisRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *AnalysisRunRow) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			run_trigger,
			window_start,
			window_end,
			started_ts,
			status,
			error_message,
			insight_count,
			skip_count,
			rules
		)
		VALUES (
			@run_id,
			@run_trigger,
			@window_start,
			@window_end,
			@started_ts,
			@status,
			"",
			0,
			0,
			@rules
		)
	`, ds.table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "run_trigger", Value: row.Trigger},
		{Name: "window_start", Value: row.WindowStart},
		{Name: "window_end", Value: row.WindowEnd},
		{Name: "started_ts", Value: row.StartedTS},
		{Name: "status", Value: "RUNNING"},
		{Name: "rules", Value: row.Rules},
	}

	return runDML(ctx, q, "StartAnalysisRun")
}

// MarkAnalysisRunFailedWithClient sets status=FAILED, finished_ts and a truncated error_message.
func MarkAnalysisRunFailedWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID, errorMessage string) error {
	if len(errorMessage) > maxErrorMessageLen {
		errorMessage = errorMessage[:maxErrorMessageLen]
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, ds.table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errorMessage},
		{Name: "run_id", Value: runID},
	}

	return runDML(ctx, q, "MarkAnalysisRunFailed")
}

// MarkAnalysisRunSucceededWithClient sets status=SUCCESS, finished_ts and the
// result counts, and clears error_message.
func MarkAnalysisRunSucceededWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, runID string, insightCount, skipCount int) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    insight_count = @insight_count,
		    skip_count = @skip_count,
		    error_message = ""
		WHERE run_id = @run_id
	`, ds.table(analysisRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "insight_count", Value: insightCount},
		{Name: "skip_count", Value: skipCount},
		{Name: "run_id", Value: runID},
	}

	return runDML(ctx, q, "MarkAnalysisRunSucceeded")
}

// LatestSucceededRunWithClient returns the newest SUCCESS run, or nil when none exists.
func LatestSucceededRunWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) (*AnalysisRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			run_trigger,
			window_start,
			window_end,
			started_ts,
			finished_ts,
			status,
			error_message,
			insight_count,
			skip_count,
			rules
		FROM %s
		WHERE status = 'SUCCESS'
		ORDER BY started_ts DESC
		LIMIT 1
	`, ds.table(analysisRunsTable)))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("LatestSucceededRun: query read: %w", err)
	}

	var row AnalysisRunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestSucceededRun: iter next: %w", err)
	}
	return &row, nil
}

func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
