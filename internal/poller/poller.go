package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/hellio/hr-mailroom/internal/hellio"
	"go.uber.org/zap"
)

// Engine processes at most one unhandled message per call and reports
// whether one was dispatched.
type Engine interface {
	ProcessNext(ctx context.Context) (bool, error)
}

// Resetter lets the scheduler discard long-lived session state on its cycle
// watermark.
type Resetter interface {
	Reset()
}

// Notifier is the best-effort error reporting surface for faults the engine
// never saw (panics inside a cycle).
type Notifier interface {
	CreateNotification(ctx context.Context, n *hellio.Notification) error
}

// Scheduler drives the poll loop: dispatch one message, re-poll immediately
// after a successful dispatch, sleep the configured interval otherwise. A
// cycle never crashes the loop.
type Scheduler struct {
	engine             Engine
	resetter           Resetter // may be nil
	notifier           Notifier // may be nil
	interval           time.Duration
	sessionResetCycles int
	logger             *zap.Logger
}

// New builds a scheduler. resetter and notifier may be nil.
func New(engine Engine, resetter Resetter, notifier Notifier, interval time.Duration, sessionResetCycles int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine:             engine,
		resetter:           resetter,
		notifier:           notifier,
		interval:           interval,
		sessionResetCycles: sessionResetCycles,
		logger:             logger,
	}
}

// Run polls until the context is cancelled. Cancellation is honored between
// cycles only: an in-flight message always runs to completion or abort first.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("poll loop started",
		zap.Duration("interval", s.interval),
		zap.Int("session_reset_cycles", s.sessionResetCycles),
	)

	cycle := 0
	for {
		if ctx.Err() != nil {
			s.logger.Info("shutdown requested, poll loop stopping", zap.Int("cycles", cycle))
			return nil
		}

		cycle++
		s.logger.Debug("polling cycle", zap.Int("cycle", cycle))

		if dispatched := s.runCycle(ctx, cycle); dispatched {
			// Work was found; check for more right away.
			continue
		}

		if !s.sleep(ctx) {
			s.logger.Info("shutdown requested, poll loop stopping", zap.Int("cycles", cycle))
			return nil
		}
	}
}

// runCycle executes one cycle and swallows every failure: workflow errors are
// already audited by the engine, and panics are logged and reported so the
// loop always reaches the next cycle.
func (s *Scheduler) runCycle(ctx context.Context, cycle int) (dispatched bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in polling cycle", zap.Int("cycle", cycle), zap.Any("panic", r))
			s.reportError(ctx, fmt.Errorf("panic in polling cycle %d: %v", cycle, r))
			dispatched = false
		}
	}()

	if s.resetter != nil && s.sessionResetCycles > 0 && cycle%s.sessionResetCycles == 0 {
		s.logger.Debug("session reset watermark reached", zap.Int("cycle", cycle))
		s.resetter.Reset()
	}

	// Shutdown is honored between cycles only: the in-flight message runs on
	// a detached context so a signal never aborts it halfway through its side
	// effects.
	dispatched, err := s.engine.ProcessNext(context.WithoutCancel(ctx))
	if err != nil {
		// Sleep before retrying a failing message instead of hammering it.
		s.logger.Warn("cycle finished with error", zap.Int("cycle", cycle), zap.Error(err))
		return false
	}

	return dispatched
}

func (s *Scheduler) reportError(ctx context.Context, cause error) {
	if s.notifier == nil {
		return
	}

	n := &hellio.Notification{
		Type:    hellio.NotificationError,
		Summary: cause.Error(),
	}
	if err := s.notifier.CreateNotification(ctx, n); err != nil {
		s.logger.Error("could not report cycle error", zap.Error(err))
	}
}

// sleep waits the poll interval in one-second increments so a shutdown
// request is noticed promptly. Returns false when the context was cancelled.
func (s *Scheduler) sleep(ctx context.Context) bool {
	remaining := s.interval
	for remaining > 0 {
		step := time.Second
		if remaining < step {
			step = remaining
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}

		remaining -= step
	}

	return true
}
