package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// QueueConfig tunes an in-memory queue. Zero values fall back to defaults.
type QueueConfig struct {
	// BufferSize is how many jobs can wait before PublishAnalysis blocks.
	BufferSize int
	// Workers is the number of concurrent job handlers.
	Workers int
	// MaxRetries applies to jobs published without their own limit.
	MaxRetries int
	// Backoff is multiplied by the retry count before a job is re-enqueued.
	Backoff time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	return c
}

// Queue hands analysis jobs to a fixed pool of workers over a buffered
// channel. Jobs live only in process memory.
type Queue struct {
	cfg       QueueConfig
	jobChan   chan *jobs.AnalysisJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
}

// NewQueue creates a new in-memory job queue. store may be nil.
func NewQueue(cfg QueueConfig, store jobs.JobStore) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.AnalysisJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

// PublishAnalysis fills in defaults on job, records it in the store and
// enqueues a copy. job is not touched once PublishAnalysis returns. It blocks
// while the buffer is full.
func (q *Queue) PublishAnalysis(ctx context.Context, job *jobs.AnalysisJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishAnalysis: save job: %w", err)
		}
	}

	// workers mutate the queued copy; job stays the caller's
	queued := *job
	select {
	case q.jobChan <- &queued:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// Start implements the Consumer interface. It starts cfg.Workers goroutines
// that call handler for each job.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs one attempt of job. Failed attempts are re-published
// after RetryCount*Backoff until MaxRetries is spent.
func (q *Queue) processJob(ctx context.Context, job *jobs.AnalysisJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Int("attempt", job.RetryCount+1).
		Logger()
	ctx = logger.WithContext(ctx, log)

	started := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	q.save(ctx, job)

	err := runHandler(ctx, handler, job)
	finished := time.Now()
	job.CompletedAt = &finished

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		backoff := time.Duration(job.RetryCount) * q.cfg.Backoff
		log.Warn().Err(err).Dur("backoff", backoff).Msg("Job failed, retrying")
		q.save(ctx, job)
		time.AfterFunc(backoff, func() { q.requeue(ctx, job) })
		return
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		log.Error().Err(err).Int("retries", job.RetryCount).Msg("Job failed permanently")
	}
	q.save(ctx, job)
}

func (q *Queue) requeue(ctx context.Context, job *jobs.AnalysisJob) {
	job.Status = jobs.JobStatusPending
	job.StartedAt = nil
	job.CompletedAt = nil
	err := q.PublishAnalysis(ctx, job)
	if err == nil {
		return
	}
	log := logger.FromContext(ctx)
	log.Error().Err(err).Msg("Failed to re-enqueue job")
	if q.store == nil {
		return
	}
	msg := fmt.Sprintf("%s (re-enqueue: %v)", job.Error, err)
	if err := q.store.UpdateJobStatus(context.WithoutCancel(ctx), job.JobID, jobs.JobStatusFailed, msg); err != nil {
		log.Error().Err(err).Msg("Failed to mark job failed")
	}
}

// runHandler converts a handler panic into an error so the job is retried
// instead of killing the worker.
func runHandler(ctx context.Context, handler jobs.JobHandler, job *jobs.AnalysisJob) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job handler panicked: %v", p)
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.AnalysisJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to save job state")
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for all in-flight jobs to complete.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
