// Package scheduler runs reminder delivery on a fixed period with at most one
// run in flight.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dias221467/Sales_CRM/internal/services"
	"github.com/Dias221467/Sales_CRM/pkg/logger"
	"github.com/robfig/cron/v3"
)

const DefaultInterval = time.Minute

// Runner is one unit of periodic work.
type Runner interface {
	RunOnce(ctx context.Context) (services.RunResult, error)
}

// Status is a snapshot for diagnostics.
type Status struct {
	Running    bool               `json:"running"`
	Busy       bool               `json:"busy"`
	Interval   string             `json:"interval"`
	Skipped    int64              `json:"skipped_ticks"`
	LastRunAt  *time.Time         `json:"last_run_at,omitempty"`
	LastResult services.RunResult `json:"last_result"`
	LastError  string             `json:"last_error,omitempty"`
}

// Scheduler is stopped until Start is called. Ticks that fire while a run is
// still in progress are dropped, not queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	timeout  time.Duration

	mu   sync.Mutex
	cron *cron.Cron

	busy    atomic.Bool
	skipped atomic.Int64

	lmu        sync.Mutex
	lastRunAt  time.Time
	lastResult services.RunResult
	lastErr    error
}

// New creates a stopped scheduler. timeout bounds a single run; zero means
// no bound.
func New(runner Runner, interval, timeout time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
	}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	c := cron.New(cron.WithLogger(cron.PrintfLogger(logger.Log)))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() { s.tick() }))
	c.Start()
	s.cron = c

	logger.Log.WithField("interval", s.interval.String()).Info("Reminder scheduler started")
}

// Stop prevents further ticks. A run already in progress is not interrupted;
// the returned context is done once it has finished. Stop is idempotent.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	ctx := s.cron.Stop()
	s.cron = nil
	logger.Log.Info("Reminder scheduler stopped")
	return ctx
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// RunNow performs a guarded run on the calling goroutine. It reports false if
// another run was in flight and this one was skipped.
func (s *Scheduler) RunNow() bool {
	return s.tick()
}

func (s *Scheduler) tick() (ran bool) {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		logger.Log.Debug("Reminder run still in progress, skipping tick")
		return false
	}
	defer s.busy.Store(false)

	started := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			ran = true
			logger.Log.WithField("panic", r).Error("Reminder run panicked")
			s.record(started, services.RunResult{}, fmt.Errorf("panic: %v", r))
		}
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.runner.RunOnce(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Reminder run failed")
	}
	s.record(started, result, err)
	return true
}

func (s *Scheduler) record(at time.Time, result services.RunResult, err error) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.lastRunAt = at
	s.lastResult = result
	s.lastErr = err
}

// Status returns the scheduler state and the outcome of the last run.
func (s *Scheduler) Status() Status {
	st := Status{
		Running:  s.IsRunning(),
		Busy:     s.busy.Load(),
		Interval: s.interval.String(),
		Skipped:  s.skipped.Load(),
	}

	s.lmu.Lock()
	defer s.lmu.Unlock()
	if !s.lastRunAt.IsZero() {
		at := s.lastRunAt
		st.LastRunAt = &at
	}
	st.LastResult = s.lastResult
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
