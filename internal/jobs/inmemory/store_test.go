package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/finance-insights/internal/jobs"
)

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.AnalysisJob{JobID: "j1", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	// the store keeps a copy
	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob(missing) error = %v, want ErrJobNotFound", err)
	}
	if err := s.SaveJob(ctx, &jobs.AnalysisJob{}); err == nil {
		t.Error("SaveJob() without ID should fail")
	}
}

func TestStoreListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.AnalysisJob{
		{JobID: "a", Trigger: jobs.TriggerAPI, Status: jobs.JobStatusCompleted},
		{JobID: "b", Trigger: jobs.TriggerSchedule, Status: jobs.JobStatusCompleted},
		{JobID: "c", Trigger: jobs.TriggerSchedule, Status: jobs.JobStatusFailed},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"c", "b", "a"}},
		{"by trigger", jobs.JobFilter{Trigger: jobs.TriggerSchedule}, []string{"c", "b"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"b", "a"}},
		{"limit", jobs.JobFilter{Limit: 1}, []string{"c"}},
		{"offset", jobs.JobFilter{Offset: 2}, []string{"a"}},
		{"offset past end", jobs.JobFilter{Offset: 5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobs() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("job[%d] = %s, want %s", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStoreUpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.SaveJob(ctx, &jobs.AnalysisJob{JobID: "j1", Status: jobs.JobStatusRunning})

	if err := s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	got, _ := s.GetJob(ctx, "j1")
	if got.Status != jobs.JobStatusFailed || got.Error != "boom" {
		t.Errorf("job = %+v", got)
	}
	if err := s.UpdateJobStatus(ctx, "nope", jobs.JobStatusFailed, ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("UpdateJobStatus(nope) error = %v", err)
	}
}
