package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hellio/hr-mailroom/internal/hellio"
	"go.uber.org/zap"
)

type fakeEngine struct {
	results []bool
	errs    []error
	calls   int
	cancel  context.CancelFunc
	panicAt int
}

func (f *fakeEngine) ProcessNext(_ context.Context) (bool, error) {
	f.calls++
	if f.panicAt > 0 && f.calls == f.panicAt {
		panic("unexpected state")
	}
	if f.calls > len(f.results) {
		if f.cancel != nil {
			f.cancel()
		}
		return false, nil
	}
	return f.results[f.calls-1], f.errs[f.calls-1]
}

type fakeResetter struct {
	resets int
}

func (f *fakeResetter) Reset() { f.resets++ }

type fakeNotifier struct {
	notifications []*hellio.Notification
}

func (f *fakeNotifier) CreateNotification(_ context.Context, n *hellio.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func TestRunDispatchesUntilEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{
		results: []bool{true, true},
		errs:    []error{nil, nil},
		cancel:  cancel,
	}

	s := New(engine, nil, nil, time.Hour, 0, zap.NewNop())
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two dispatches re-poll immediately; the empty third call cancels, and
	// with an hour-long interval the loop can only have exited via the
	// cancellation check, never the timer.
	if engine.calls != 3 {
		t.Fatalf("expected 3 cycles, got %d", engine.calls)
	}
}

func TestRunSleepsAfterCycleError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{
		results: []bool{true},
		errs:    []error{errors.New("ingestion unavailable")},
		cancel:  cancel,
	}

	s := New(engine, nil, nil, 10*time.Millisecond, 0, zap.NewNop())

	start := time.Now()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if engine.calls != 2 {
		t.Fatalf("expected the loop to survive the error, got %d cycles", engine.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("a failed cycle must wait the poll interval before retrying")
	}
}

func TestRunResetsSessionOnWatermark(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{
		results: []bool{true, true, true, true},
		errs:    []error{nil, nil, nil, nil},
		cancel:  cancel,
	}
	resetter := &fakeResetter{}

	s := New(engine, resetter, nil, time.Hour, 2, zap.NewNop())
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Cycles 2 and 4 hit the watermark.
	if resetter.resets != 2 {
		t.Fatalf("expected 2 session resets, got %d", resetter.resets)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{
		results: []bool{true},
		errs:    []error{nil},
		cancel:  cancel,
		panicAt: 2,
	}
	notifier := &fakeNotifier{}

	s := New(engine, nil, notifier, time.Millisecond, 0, zap.NewNop())
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if engine.calls < 3 {
		t.Fatalf("the loop must continue past a panic, got %d cycles", engine.calls)
	}
	if len(notifier.notifications) != 1 {
		t.Fatalf("expected 1 error notification, got %d", len(notifier.notifications))
	}
	if notifier.notifications[0].Type != hellio.NotificationError {
		t.Fatalf("unexpected notification type %q", notifier.notifications[0].Type)
	}
}

type shutdownEngine struct {
	cancel  context.CancelFunc
	ctxErrs []error
}

func (f *shutdownEngine) ProcessNext(ctx context.Context) (bool, error) {
	// A shutdown signal arrives while this message is in flight.
	f.cancel()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return true, nil
}

func TestRunShutdownDrainsInFlightMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &shutdownEngine{cancel: cancel}

	s := New(engine, nil, nil, time.Hour, 0, zap.NewNop())
	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(engine.ctxErrs) != 1 {
		t.Fatalf("expected exactly 1 cycle before shutdown, got %d", len(engine.ctxErrs))
	}
	// The loop stops at the next cycle boundary, but the context the engine
	// saw must stay live so the in-flight side effects run to completion.
	if engine.ctxErrs[0] != nil {
		t.Fatalf("in-flight message context was cancelled: %v", engine.ctxErrs[0])
	}
}

func TestRunStopsWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{}
	s := New(engine, nil, nil, time.Hour, 0, zap.NewNop())

	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.calls != 0 {
		t.Fatalf("no cycle may run after cancellation, got %d", engine.calls)
	}
}
