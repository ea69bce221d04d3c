// Package scheduler runs recurring jobs, gating singleton jobs on leadership.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/leader"
	"etterlatte-utbetaling/internal/observability/metrics"
)

// Job is a recurring unit of work.
type Job struct {
	Name string
	// Spec is a standard five field cron expression or a descriptor such as "@every 30s".
	Spec string
	Run  func(ctx context.Context) error
	// Singleton jobs run only on the leader replica.
	Singleton bool
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	elector leader.Elector
	logger  *zap.Logger

	mu     sync.Mutex
	jobs   map[string]Job
	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a scheduler. Runs of the same job never overlap.
func New(elector leader.Elector, logger *zap.Logger) (*Scheduler, error) {
	if elector == nil {
		return nil, errors.New("scheduler: nil elector")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := zapLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		elector: elector,
		logger:  logger,
		jobs:    make(map[string]Job),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Register adds a job. The schedule is parsed immediately.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return errors.New("scheduler: job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("scheduler: job %s has no run function", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("scheduler: job %s already registered", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.Tick(s.ctx, job.Name) }); err != nil {
		return fmt.Errorf("scheduler: job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
	}
	s.jobs[job.Name] = job
	return nil
}

// Tick runs one occurrence of the named job. A singleton job on a non-leader replica does nothing.
// It reports whether the job ran.
func (s *Scheduler) Tick(ctx context.Context, name string) bool {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("unknown job", zap.String("job", name))
		return false
	}
	log := s.logger.With(zap.String("job", job.Name))
	if job.Singleton && !s.elector.IsLeader(ctx) {
		log.Debug("not leader, skipping run")
		metrics.IncJob(job.Name, metrics.ResultSkipped)
		return false
	}
	if err := job.Run(ctx); err != nil {
		log.Warn("job failed", zap.Error(err))
		metrics.IncJob(job.Name, metrics.ResultError)
		return true
	}
	metrics.IncJob(job.Name, metrics.ResultSuccess)
	return true
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

type zapLogger struct {
	logger *zap.Logger
}

func (l zapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, zap.Any("cron", keysAndValues))
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, zap.Error(err), zap.Any("cron", keysAndValues))
}
