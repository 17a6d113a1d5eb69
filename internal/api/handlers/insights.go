package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/forecast"
	"github.com/dvloznov/finance-insights/internal/jobs"
)

// Analyzer runs analyses and forecasts.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Report, error)
	Forecast(ctx context.Context, start, end time.Time, months int) (*analysis.ForecastReport, error)
}

// InsightsHandler handles insight, analysis and forecast endpoints.
type InsightsHandler struct {
	analyzer       Analyzer
	results        analysis.ResultReader
	publisher      jobs.Publisher
	lookbackMonths int
	forecastMonths int
	log            zerolog.Logger

	clock func() time.Time
}

// NewInsightsHandler creates a new insights handler. results may be nil when
// the backend does not persist runs.
func NewInsightsHandler(analyzer Analyzer, results analysis.ResultReader, publisher jobs.Publisher, lookbackMonths, forecastMonths int, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		analyzer:       analyzer,
		results:        results,
		publisher:      publisher,
		lookbackMonths: lookbackMonths,
		forecastMonths: forecastMonths,
		log:            log,
		clock:          time.Now,
	}
}

// GetInsights handles GET /api/insights
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r.URL.Query(), h.clock(), h.lookbackMonths)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.analyzer.Run(r.Context(), analysis.Request{
		Trigger: analysis.TriggerAPI,
		Start:   start,
		End:     end,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to run analysis")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run analysis")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// GetLatest handles GET /api/insights/latest
func (h *InsightsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "The configured backend does not store analysis runs")
		return
	}

	run, out, err := h.results.LatestResult(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "No analysis has completed yet")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load latest insights")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load latest insights")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, analysis.ReportFromResult(run, out))
}

// EnqueueAnalysis handles POST /api/analysis
func (h *InsightsHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := url.Values{}
	query.Set("start_date", req.StartDate)
	query.Set("end_date", req.EndDate)
	start, end, err := parseWindow(query, h.clock(), h.lookbackMonths)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.AnalysisJob{
		Trigger:     jobs.TriggerAPI,
		WindowStart: start,
		WindowEnd:   end,
	}
	if err := h.publisher.PublishAnalysis(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	jobID, status := job.JobID, job.Status
	h.log.Info().Str("job_id", jobID).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(status),
	})
}

// GetForecast handles GET /api/forecast
func (h *InsightsHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	months, err := parseMonths(query, "months", h.forecastMonths, forecast.MaxSteps)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, end, err := parseWindow(query, h.clock(), h.lookbackMonths)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.analyzer.Forecast(r.Context(), start, end, months)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build forecast")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}
