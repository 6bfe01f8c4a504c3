// Package scheduler drives the pipeline one row per interval inside the
// configured active hours.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

const (
	defaultDelay  = 10 * time.Minute
	defaultIdle   = 5 * time.Minute
	defaultJitter = 0.2
)

// ErrPanic wraps a panic recovered from a cycle. It stops the loop.
var ErrPanic = eris.New("scheduler: panic in cycle")

// Processor processes the next unprocessed row.
type Processor interface {
	ProcessNext(ctx context.Context) (*model.Outcome, error)
}

// CycleResult classifies one pass of the loop.
type CycleResult string

const (
	IdleOutsideHours CycleResult = "idle_outside_hours"
	IdleNoRows       CycleResult = "idle_no_rows"
	Processed        CycleResult = "processed"
)

// Scheduler runs cycles until the context ends or a fatal error occurs.
type Scheduler struct {
	proc   Processor
	window Window
	delay  time.Duration
	jitter float64
	idle   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleeper replaces the context-aware sleep between cycles.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// WithRand replaces the uniform [0,1) source used for jitter.
func WithRand(r func() float64) Option {
	return func(s *Scheduler) { s.rand = r }
}

// New creates a Scheduler from the schedule configuration.
func New(proc Processor, window Window, cfg config.ScheduleConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		proc:   proc,
		window: window,
		delay:  time.Duration(cfg.DelaySecs) * time.Second,
		jitter: cfg.Jitter,
		idle:   time.Duration(cfg.IdleSecs) * time.Second,
		now:    time.Now,
		sleep:  sleepCtx,
		rand:   rand.Float64,
	}
	if s.delay <= 0 {
		s.delay = defaultDelay
	}
	if s.idle <= 0 {
		s.idle = defaultIdle
	}
	if s.jitter < 0 || s.jitter >= 1 {
		s.jitter = defaultJitter
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run loops until ctx is cancelled (returns nil) or a cycle fails fatally
// (returns the error).
func (s *Scheduler) Run(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "scheduler"))
	log.Info("scheduler: started",
		zap.Duration("delay", s.delay),
		zap.Float64("jitter", s.jitter),
		zap.Duration("idle", s.idle),
		zap.Int("start_hour", s.window.StartHour),
		zap.Int("end_hour", s.window.EndHour),
	)

	for {
		res, wait, err := s.Cycle(ctx)
		if ctx.Err() != nil {
			log.Info("scheduler: stopped")
			return nil
		}
		if err != nil {
			log.Error("scheduler: fatal", zap.Error(err))
			return err
		}
		log.Info("scheduler: sleeping", zap.String("cycle", string(res)), zap.Duration("wait", wait))
		if err := s.sleep(ctx, wait); err != nil {
			log.Info("scheduler: stopped")
			return nil
		}
	}
}

// Cycle performs one pass and returns how long to wait before the next.
// Row-scoped errors are logged and absorbed; the returned error is fatal.
func (s *Scheduler) Cycle(ctx context.Context) (CycleResult, time.Duration, error) {
	if !s.window.Active(s.now()) {
		return IdleOutsideHours, s.idle, nil
	}

	out, err := s.processNext(ctx)
	switch {
	case errors.Is(err, pipeline.ErrNoRows):
		return IdleNoRows, s.Delay(), nil
	case err == nil:
	case errors.Is(err, ErrPanic), pipeline.IsFatal(err):
		return Processed, 0, err
	case ctx.Err() != nil:
		return Processed, 0, ctx.Err()
	default:
		fields := []zap.Field{zap.Error(err)}
		if out != nil {
			fields = append(fields, zap.String("row_id", out.RowID), zap.String("state", string(out.State)))
		}
		zap.L().Warn("scheduler: row failed", fields...)
	}
	return Processed, s.Delay(), nil
}

func (s *Scheduler) processNext(ctx context.Context) (out *model.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Wrap(ErrPanic, fmt.Sprint(r))
		}
	}()
	return s.proc.ProcessNext(ctx)
}

// Delay returns the base delay spread uniformly by ±jitter.
func (s *Scheduler) Delay() time.Duration {
	return Jitter(s.delay, s.jitter, s.rand())
}

// Jitter scales base by a factor in [1-frac, 1+frac) chosen by r in [0,1).
func Jitter(base time.Duration, frac, r float64) time.Duration {
	return base + time.Duration(frac*(2*r-1)*float64(base))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
