package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds a single job run.
const DefaultTimeout = 5 * time.Minute

// Job represents a background job.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Runs of the same job never overlap.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	mu      sync.RWMutex
	logger  *slog.Logger
	timeout time.Duration
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:    make(map[string]Job),
		logger:  logger,
		timeout: DefaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob schedules job with a cron spec such as "@every 1h" or "0 3 * * *".
// An empty spec registers the job for RunOnce only.
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job already registered: %s", job.Name())
	}

	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.executeJob(job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
	}

	s.jobs[job.Name()] = job
	s.logger.Info("job registered", "name", job.Name(), "schedule", spec)
	return nil
}

// Start starts all scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes a registered job immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, jobName string) error {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", jobName)
	}

	return s.run(ctx, job)
}

// executeJob runs a scheduled job and logs the outcome.
func (s *Scheduler) executeJob(job Job) {
	s.logger.Debug("executing job", "name", job.Name())

	start := time.Now()
	if err := s.run(s.ctx, job); err != nil {
		s.logger.Error("job execution failed", "name", job.Name(), "error", err, "duration", time.Since(start))
	} else {
		s.logger.Debug("job completed", "name", job.Name(), "duration", time.Since(start))
	}
}

// run executes job under the per-run timeout. Panics become errors.
func (s *Scheduler) run(parent context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panic", "name", job.Name(), "panic", r)
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	return job.Execute(ctx)
}
