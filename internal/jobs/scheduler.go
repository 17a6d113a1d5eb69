package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// Scheduler publishes an analysis job over a trailing window at a fixed
// interval.
type Scheduler struct {
	publisher      Publisher
	interval       time.Duration
	lookbackMonths int
	runOnStart     bool

	clock func() time.Time
}

// NewScheduler creates a scheduler. With runOnStart the first job is
// published immediately instead of after one interval.
func NewScheduler(publisher Publisher, interval time.Duration, lookbackMonths int, runOnStart bool) *Scheduler {
	return &Scheduler{
		publisher:      publisher,
		interval:       interval,
		lookbackMonths: lookbackMonths,
		runOnStart:     runOnStart,
		clock:          time.Now,
	}
}

// Run publishes jobs until ctx is cancelled. Publish errors are logged and
// the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("Scheduler.Run: interval must be positive, got %s", s.interval)
	}
	log := logger.FromContext(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tickAndLog(ctx)
	}
	log.Info().Dur("interval", s.interval).Int("lookback_months", s.lookbackMonths).Msg("Scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.tickAndLog(ctx)
		}
	}
}

func (s *Scheduler) tickAndLog(ctx context.Context) {
	log := logger.FromContext(ctx)
	job, err := s.Tick(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to publish scheduled analysis")
		return
	}
	log.Info().Str("job_id", job.JobID).Msg("Scheduled analysis published")
}

// Tick publishes one scheduled analysis job for the current window.
func (s *Scheduler) Tick(ctx context.Context) (*AnalysisJob, error) {
	start, end := analysis.DefaultWindow(s.clock(), s.lookbackMonths)
	job := &AnalysisJob{
		Trigger:     TriggerSchedule,
		WindowStart: start,
		WindowEnd:   end,
	}
	if err := s.publisher.PublishAnalysis(ctx, job); err != nil {
		return nil, fmt.Errorf("Tick: %w", err)
	}
	return job, nil
}
