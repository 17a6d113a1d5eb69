package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// UpsertEntry stores a planner entry, overwriting any previous sentiment.
func (s *Store) UpsertEntry(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO entries(id, kind, title, body, sentiment_label, sentiment_score, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 kind=excluded.kind,
	 title=excluded.title,
	 body=excluded.body,
	 sentiment_label=excluded.sentiment_label,
	 sentiment_score=excluded.sentiment_score,
	 updated_at=excluded.updated_at;
	`, e.ID, string(e.Kind), e.Title, e.Body, e.SentimentLabel, e.SentimentScore, formatTime(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("UpsertEntry: entry %s: %w", e.ID, err)
	}
	return nil
}

// GetEntry loads a planner entry by id.
func (s *Store) GetEntry(ctx context.Context, id string) (domain.Entry, error) {
	var e domain.Entry
	var kind, updated string
	err := s.db.QueryRowContext(ctx, `
	SELECT id, kind, title, body, sentiment_label, sentiment_score, updated_at
	FROM entries WHERE id = ?`, id).
		Scan(&e.ID, &kind, &e.Title, &e.Body, &e.SentimentLabel, &e.SentimentScore, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("GetEntry: entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return e, fmt.Errorf("GetEntry: %w", err)
	}
	e.Kind = domain.EntryKind(kind)
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return e, fmt.Errorf("GetEntry: updated_at: %w", err)
	}
	return e, nil
}
