// Package scheduler owns the periodic tick that drives schedule
// notifications and calendar autosync.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"schedule-sync-bot/internal/lib/logger/sl"
)

const (
	jobName      = "tick"
	retryJobName = "tick-retry"
)

// Ticker is one pass of a periodic component.
type Ticker interface {
	Tick(ctx context.Context) error
}

type Config struct {
	Every   time.Duration
	Backoff time.Duration
	// Locker is optional; set it when several replicas share the database.
	Locker gocron.Locker
	Clock  clockwork.Clock
}

type Scheduler struct {
	log     *slog.Logger
	cron    gocron.Scheduler
	clock   clockwork.Clock
	tickers []Ticker
	backoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	running sync.Mutex

	mu          sync.Mutex
	pausedUntil time.Time
	retryID     uuid.UUID

	stopOnce sync.Once
	stopErr  error
}

// New registers a single job running all tickers in order. Overlapping runs
// are rescheduled instead of stacking up.
func New(log *slog.Logger, cfg Config, tickers ...Ticker) (*Scheduler, error) {
	const op = "scheduler.New"

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	opts := []gocron.SchedulerOption{gocron.WithClock(cfg.Clock)}
	if cfg.Locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(cfg.Locker))
	}
	cron, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:     log,
		cron:    cron,
		clock:   cfg.Clock,
		tickers: tickers,
		backoff: cfg.Backoff,
		ctx:     ctx,
		cancel:  cancel,
	}

	_, err = cron.NewJob(
		gocron.DurationJob(cfg.Every),
		gocron.NewTask(func() error { return s.Tick(s.ctx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(jobID uuid.UUID, name string, err error) {
				log.Error("tick failed", slog.String("job", name), slog.String("job_id", jobID.String()), sl.Err(err))
			}),
			gocron.AfterLockError(func(jobID uuid.UUID, name string, err error) {
				log.Debug("tick skipped, lock held elsewhere", slog.String("job_id", jobID.String()), sl.Err(err))
			}),
		),
	)
	if err != nil {
		cancel()
		_ = cron.Shutdown()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("tickers", len(s.tickers)))
}

// Stop cancels a running tick and waits for the job to return.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.cron.Shutdown(); err != nil {
			s.stopErr = fmt.Errorf("scheduler.Stop: %w", err)
		}
	})
	return s.stopErr
}

// Tick runs every ticker once. A failed tick pauses the regular ticks and
// schedules a single retry when the backoff window ends, so a short backoff
// retries sooner than the next regular tick would. A tick that finds another
// one in progress returns at once.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.running.TryLock() {
		return nil
	}
	defer s.running.Unlock()

	now := s.clock.Now()

	s.mu.Lock()
	paused := now.Before(s.pausedUntil)
	s.mu.Unlock()
	if paused {
		return nil
	}

	var errs []error
	for _, t := range s.tickers {
		if err := t.Tick(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	s.mu.Lock()
	s.pausedUntil = now.Add(s.backoff)
	s.mu.Unlock()
	s.scheduleRetry(now.Add(s.backoff))
	return errors.Join(errs...)
}

func (s *Scheduler) scheduleRetry(at time.Time) {
	if s.backoff <= 0 {
		return
	}

	s.mu.Lock()
	prev := s.retryID
	s.mu.Unlock()
	if prev != uuid.Nil {
		// keep at most one retry queued
		_ = s.cron.RemoveJob(prev)
	}

	j, err := s.cron.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() error { return s.Tick(s.ctx) }),
		gocron.WithName(retryJobName),
	)
	if err != nil {
		s.log.Warn("failed to schedule tick retry", sl.Err(err))
		return
	}

	s.mu.Lock()
	s.retryID = j.ID()
	s.mu.Unlock()
	s.log.Debug("tick retry scheduled", slog.Time("at", at))
}
