package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

// ReportExporter ships a finished report somewhere and returns its location.
type ReportExporter func(ctx context.Context, report *analysis.Report) (string, error)

// NewAnalysisHandler returns a JobHandler that runs analysis jobs with
// runner and, when export is non-nil, exports each report. Every attempt
// gets its own run; the job keeps the last one.
func NewAnalysisHandler(runner Runner, export ReportExporter) JobHandler {
	return func(ctx context.Context, job Job) error {
		aj, ok := job.(*AnalysisJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx).With().Str("job_id", aj.JobID).Logger()
		ctx = logger.WithContext(ctx, log)
		log.Info().
			Str("trigger", string(aj.Trigger)).
			Time("window_start", aj.WindowStart).
			Time("window_end", aj.WindowEnd).
			Msg("Processing analysis job")

		report, err := runner.Run(ctx, analysis.Request{
			Trigger: string(aj.Trigger),
			Start:   aj.WindowStart,
			End:     aj.WindowEnd,
		})
		if err != nil {
			return fmt.Errorf("analysis job %s: %w", aj.JobID, err)
		}
		aj.RunID = report.RunID
		aj.InsightCount = len(report.Insights)

		if export != nil {
			uri, err := export(ctx, report)
			if err != nil {
				return fmt.Errorf("analysis job %s: export: %w", aj.JobID, err)
			}
			aj.ReportURI = uri
		}

		log.Info().
			Str("run_id", aj.RunID).
			Int("insights", aj.InsightCount).
			Str("report_uri", aj.ReportURI).
			Msg("Analysis job completed")
		return nil
	}
}
