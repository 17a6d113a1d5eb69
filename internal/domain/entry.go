package domain

import "time"

// EntryKind distinguishes planner tasks from journal entries.
type EntryKind string

const (
	EntryKindTask    EntryKind = "task"
	EntryKindJournal EntryKind = "journal"
)

// Entry is a planner task or journal entry. SentimentLabel and
// SentimentScore are derived from Title and Body and are overwritten on
// every edit; no history is kept.
type Entry struct {
	ID             string    `json:"id"`
	Kind           EntryKind `json:"kind"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	SentimentLabel string    `json:"sentiment_label"`
	SentimentScore float64   `json:"sentiment_score"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Text is the content the sentiment scorer reads.
func (e Entry) Text() string {
	if e.Body == "" {
		return e.Title
	}
	if e.Title == "" {
		return e.Body
	}
	return e.Title + "\n" + e.Body
}
