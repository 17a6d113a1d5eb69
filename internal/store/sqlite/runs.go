package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/insights"
)

// StartAnalysisRun records a run in RUNNING state.
func (s *Store) StartAnalysisRun(ctx context.Context, run domain.AnalysisRun) error {
	rules, err := json.Marshal(run.Rules)
	if err != nil {
		return fmt.Errorf("StartAnalysisRun: marshal rules: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO analysis_runs(run_id, run_trigger, window_start, window_end, started_at, status, rules)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Trigger, formatTime(run.WindowStart), formatTime(run.WindowEnd),
		formatTime(run.StartedAt), string(domain.RunStatusRunning), string(rules))
	if err != nil {
		return fmt.Errorf("StartAnalysisRun: insert run %s: %w", run.RunID, err)
	}
	return nil
}

// SaveInsights stores the outcome of a run, replacing anything stored for it before.
func (s *Store) SaveInsights(ctx context.Context, runID string, out insights.Outcome) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM insights WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("SaveInsights: clear insights: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM insight_skips WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("SaveInsights: clear skips: %w", err)
		}

		for i, ins := range out.Insights {
			txnIDs, err := json.Marshal(ins.TransactionIDs)
			if err != nil {
				return fmt.Errorf("SaveInsights: marshal transaction ids: %w", err)
			}
			points, err := json.Marshal(ins.DataPoints)
			if err != nil {
				return fmt.Errorf("SaveInsights: marshal data points: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
			INSERT INTO insights(run_id, insight_id, position, insight_type, priority, title, description, subject,
			                     category_id, account_id, budget_id, transaction_ids, data_points)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, ins.ID, i, string(ins.Type), ins.Priority.String(), ins.Title, ins.Description, ins.Subject,
				ins.CategoryID, ins.AccountID, ins.BudgetID, string(txnIDs), string(points))
			if err != nil {
				return fmt.Errorf("SaveInsights: insert insight %s: %w", ins.ID, err)
			}
		}

		for i, sk := range out.Skipped {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO insight_skips(run_id, position, rule, subject, reason, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
				runID, i, sk.Rule, sk.Subject, string(sk.Reason), sk.Detail)
			if err != nil {
				return fmt.Errorf("SaveInsights: insert skip: %w", err)
			}
		}
		return nil
	})
}

// MarkAnalysisRunSucceeded closes a run with its result counts.
func (s *Store) MarkAnalysisRunSucceeded(ctx context.Context, runID string, insightCount, skipCount int) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE analysis_runs
	SET status = ?, finished_at = ?, insight_count = ?, skip_count = ?, error_message = ''
	WHERE run_id = ?`,
		string(domain.RunStatusSucceeded), formatTime(time.Now()), insightCount, skipCount, runID)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: update: %w", err)
	}
	return requireRow(res, "MarkAnalysisRunSucceeded", runID)
}

// MarkAnalysisRunFailed closes a run with an error message.
func (s *Store) MarkAnalysisRunFailed(ctx context.Context, runID, errorMessage string) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE analysis_runs
	SET status = ?, finished_at = ?, error_message = ?
	WHERE run_id = ?`,
		string(domain.RunStatusFailed), formatTime(time.Now()), errorMessage, runID)
	if err != nil {
		return fmt.Errorf("MarkAnalysisRunFailed: update: %w", err)
	}
	return requireRow(res, "MarkAnalysisRunFailed", runID)
}

func requireRow(res sql.Result, op, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: run %s: %w", op, runID, ErrNotFound)
	}
	return nil
}

// GetAnalysisRun loads one run.
func (s *Store) GetAnalysisRun(ctx context.Context, runID string) (domain.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("GetAnalysisRun: %w", err)
	}
	return run, nil
}

// LatestResult returns the most recent successful run with its insights and skips.
func (s *Store) LatestResult(ctx context.Context) (domain.AnalysisRun, insights.Outcome, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE status = ? ORDER BY started_at DESC, run_id DESC LIMIT 1`,
		string(domain.RunStatusSucceeded))
	run, err := scanRun(row)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, fmt.Errorf("LatestResult: %w", err)
	}

	out, err := s.loadOutcome(ctx, run.RunID)
	if err != nil {
		return domain.AnalysisRun{}, insights.Outcome{}, fmt.Errorf("LatestResult: %w", err)
	}
	return run, out, nil
}

const runSelect = `
	SELECT run_id, run_trigger, window_start, window_end, started_at, finished_at, status,
	       insight_count, skip_count, error_message, rules
	FROM analysis_runs`

func scanRun(row *sql.Row) (domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	var windowStart, windowEnd, startedAt, status, rules string
	var finishedAt sql.NullString
	err := row.Scan(&run.RunID, &run.Trigger, &windowStart, &windowEnd, &startedAt, &finishedAt, &status,
		&run.InsightCount, &run.SkipCount, &run.ErrorMessage, &rules)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if run.WindowStart, err = parseTime(windowStart); err != nil {
		return run, fmt.Errorf("window_start: %w", err)
	}
	if run.WindowEnd, err = parseTime(windowEnd); err != nil {
		return run, fmt.Errorf("window_end: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return run, fmt.Errorf("started_at: %w", err)
	}
	if finishedAt.Valid {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return run, fmt.Errorf("finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(rules), &run.Rules); err != nil {
		return run, fmt.Errorf("rules: %w", err)
	}
	return run, nil
}

func (s *Store) loadOutcome(ctx context.Context, runID string) (insights.Outcome, error) {
	var out insights.Outcome

	rows, err := s.db.QueryContext(ctx, `
	SELECT insight_id, insight_type, priority, title, description, subject,
	       category_id, account_id, budget_id, transaction_ids, data_points
	FROM insights WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return out, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ins insights.Insight
		var insType, priority, txnIDs, points string
		if err := rows.Scan(&ins.ID, &insType, &priority, &ins.Title, &ins.Description, &ins.Subject,
			&ins.CategoryID, &ins.AccountID, &ins.BudgetID, &txnIDs, &points); err != nil {
			return out, fmt.Errorf("scan insight: %w", err)
		}
		ins.Type = insights.Type(insType)
		if ins.Priority, err = insights.ParsePriority(priority); err != nil {
			return out, err
		}
		if err := json.Unmarshal([]byte(txnIDs), &ins.TransactionIDs); err != nil {
			return out, fmt.Errorf("transaction_ids: %w", err)
		}
		if err := json.Unmarshal([]byte(points), &ins.DataPoints); err != nil {
			return out, fmt.Errorf("data_points: %w", err)
		}
		out.Insights = append(out.Insights, ins)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	skipRows, err := s.db.QueryContext(ctx, `
	SELECT rule, subject, reason, detail FROM insight_skips WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return out, fmt.Errorf("query skips: %w", err)
	}
	defer skipRows.Close()

	for skipRows.Next() {
		var sk insights.Skip
		var reason string
		if err := skipRows.Scan(&sk.Rule, &sk.Subject, &reason, &sk.Detail); err != nil {
			return out, fmt.Errorf("scan skip: %w", err)
		}
		sk.Reason = insights.SkipReason(reason)
		out.Skipped = append(out.Skipped, sk)
	}
	return out, skipRows.Err()
}
