package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/sentiment"
)

// EntryStore persists planner entries.
type EntryStore interface {
	UpsertEntry(ctx context.Context, e domain.Entry) error
	GetEntry(ctx context.Context, id string) (domain.Entry, error)
}

// SentimentHandler handles sentiment scoring and planner entries.
type SentimentHandler struct {
	entries EntryStore
	log     zerolog.Logger

	clock func() time.Time
}

// NewSentimentHandler creates a new sentiment handler. entries may be nil,
// in which case the entry endpoints answer 501.
func NewSentimentHandler(entries EntryStore, log zerolog.Logger) *SentimentHandler {
	return &SentimentHandler{entries: entries, log: log, clock: time.Now}
}

// Score handles POST /api/sentiment
func (h *SentimentHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sentiment.Analyze(req.Text))
}

// PutEntry handles PUT /api/entries/{id}
func (h *SentimentHandler) PutEntry(w http.ResponseWriter, r *http.Request) {
	if h.entries == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Entries require the sqlite backend")
		return
	}

	var req struct {
		Kind  domain.EntryKind `json:"kind"`
		Title string           `json:"title"`
		Body  string           `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Kind == "" {
		req.Kind = domain.EntryKindJournal
	}
	if req.Kind != domain.EntryKindTask && req.Kind != domain.EntryKindJournal {
		middleware.WriteError(w, http.StatusBadRequest, "kind must be task or journal")
		return
	}

	entry := domain.Entry{
		ID:    chi.URLParam(r, "id"),
		Kind:  req.Kind,
		Title: req.Title,
		Body:  req.Body,
	}
	sentiment.Annotate(&entry, h.clock())

	if err := h.entries.UpsertEntry(r.Context(), entry); err != nil {
		h.log.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to save entry")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save entry")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, entry)
}

// GetEntry handles GET /api/entries/{id}
func (h *SentimentHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	if h.entries == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Entries require the sqlite backend")
		return
	}

	id := chi.URLParam(r, "id")
	entry, err := h.entries.GetEntry(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("entry_id", id).Msg("Failed to load entry")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load entry")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, entry)
}
