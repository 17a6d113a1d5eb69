package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/insights"
)

type mockRunner struct {
	got    analysis.Request
	report *analysis.Report
	err    error
}

func (m *mockRunner) Run(ctx context.Context, req analysis.Request) (*analysis.Report, error) {
	m.got = req
	return m.report, m.err
}

type otherJob struct{}

func (otherJob) GetID() string        { return "x" }
func (otherJob) GetType() JobType     { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestAnalysisHandler(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	runner := &mockRunner{report: &analysis.Report{
		RunID:    "run-9",
		Insights: []insights.Insight{{ID: "a"}, {ID: "b"}},
	}}
	var exported *analysis.Report
	export := func(ctx context.Context, r *analysis.Report) (string, error) {
		exported = r
		return "gs://bucket/reports/run-9.json", nil
	}

	job := &AnalysisJob{JobID: "j1", Trigger: TriggerAPI, WindowStart: start, WindowEnd: end}
	if err := NewAnalysisHandler(runner, export)(context.Background(), job); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if runner.got.Trigger != "api" || !runner.got.Start.Equal(start) || !runner.got.End.Equal(end) {
		t.Errorf("request = %+v", runner.got)
	}
	if job.RunID != "run-9" || job.InsightCount != 2 || job.ReportURI != "gs://bucket/reports/run-9.json" {
		t.Errorf("job = %+v", job)
	}
	if exported == nil || exported.RunID != "run-9" {
		t.Error("report should be exported")
	}
}

func TestAnalysisHandlerErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		job    Job
		runner *mockRunner
		export ReportExporter
	}{
		{"wrong job type", otherJob{}, &mockRunner{}, nil},
		{"run fails", &AnalysisJob{JobID: "j"}, &mockRunner{err: boom}, nil},
		{
			"export fails",
			&AnalysisJob{JobID: "j"},
			&mockRunner{report: &analysis.Report{RunID: "r"}},
			func(context.Context, *analysis.Report) (string, error) { return "", boom },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewAnalysisHandler(tt.runner, tt.export)(context.Background(), tt.job); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
