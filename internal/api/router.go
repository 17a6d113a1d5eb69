// Package api assembles the HTTP surface: routes, handlers and middleware.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/api/handlers"
	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/jobs"
)

// Deps are the services the router serves. Results and Entries may be nil.
type Deps struct {
	Analyzer       handlers.Analyzer
	Results        analysis.ResultReader
	Entries        handlers.EntryStore
	Publisher      jobs.Publisher
	JobStore       jobs.JobStore
	LookbackMonths int
	ForecastMonths int
}

// NewRouter builds the API router with the standard middleware chain.
func NewRouter(deps Deps, log zerolog.Logger) http.Handler {
	insightsHandler := handlers.NewInsightsHandler(deps.Analyzer, deps.Results, deps.Publisher,
		deps.LookbackMonths, deps.ForecastMonths, log)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore, log)
	sentimentHandler := handlers.NewSentimentHandler(deps.Entries, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/insights", insightsHandler.GetInsights)
		r.Get("/insights/latest", insightsHandler.GetLatest)
		r.Post("/analysis", insightsHandler.EnqueueAnalysis)
		r.Get("/forecast", insightsHandler.GetForecast)

		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)

		r.Post("/sentiment", sentimentHandler.Score)
		r.Get("/entries/{id}", sentimentHandler.GetEntry)
		r.Put("/entries/{id}", sentimentHandler.PutEntry)
	})

	return r
}
