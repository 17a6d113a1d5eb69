package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*AnalysisJob
	err  error
}

func (p *recordingPublisher) PublishAnalysis(ctx context.Context, job *AnalysisJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func TestSchedulerTick(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(pub, 24*time.Hour, 6, false)
	s.clock = func() time.Time { return time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC) }

	job, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if job.Trigger != TriggerSchedule {
		t.Errorf("Trigger = %q, want schedule", job.Trigger)
	}
	if want := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC); !job.WindowStart.Equal(want) {
		t.Errorf("WindowStart = %v, want %v", job.WindowStart, want)
	}
	if want := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC); !job.WindowEnd.Equal(want) {
		t.Errorf("WindowEnd = %v, want %v", job.WindowEnd, want)
	}
}

func TestSchedulerTickError(t *testing.T) {
	pub := &recordingPublisher{err: ErrQueueClosed}
	s := NewScheduler(pub, time.Hour, 3, false)
	if _, err := s.Tick(context.Background()); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Tick() error = %v, want ErrQueueClosed", err)
	}
}

func TestSchedulerRun(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewScheduler(pub, 10*time.Millisecond, 3, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if pub.count() < 3 {
		t.Errorf("published %d jobs, want at least 3", pub.count())
	}
}

func TestSchedulerRunRejectsZeroInterval(t *testing.T) {
	s := NewScheduler(&recordingPublisher{}, 0, 3, false)
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}
