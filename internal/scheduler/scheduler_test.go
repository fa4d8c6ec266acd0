package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type countingTicker struct {
	calls int
	err   error
}

func (c *countingTicker) Tick(context.Context) error {
	c.calls++
	return c.err
}

func newTest(t *testing.T, clock clockwork.Clock, tickers ...Ticker) *Scheduler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(log, Config{Every: time.Hour, Backoff: 5 * time.Second, Clock: clock}, tickers...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestTickRunsAllTickers(t *testing.T) {
	a, b := &countingTicker{}, &countingTicker{}
	s := newTest(t, clockwork.NewFakeClock(), a, b)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("calls = %d, %d", a.calls, b.calls)
	}
}

func TestFailedTickBacksOff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	failing := &countingTicker{err: errors.New("sheets: 503")}
	other := &countingTicker{}
	s := newTest(t, clock, failing, other)
	ctx := context.Background()

	if err := s.Tick(ctx); err == nil {
		t.Fatal("want error")
	}
	if other.calls != 1 {
		t.Fatal("a failing ticker stopped the next one")
	}

	clock.Advance(4 * time.Second)
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("tick inside backoff: %v", err)
	}
	if failing.calls != 1 {
		t.Fatal("tick ran inside backoff window")
	}

	failing.err = nil
	clock.Advance(time.Second)
	if err := s.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if failing.calls != 2 || other.calls != 2 {
		t.Fatalf("calls after backoff = %d, %d", failing.calls, other.calls)
	}
}

func TestFailedTickSchedulesOneRetry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	failing := &countingTicker{err: errors.New("sheets: 503")}
	s := newTest(t, clock, failing)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Tick(ctx); err == nil {
			t.Fatal("want error")
		}
		clock.Advance(5 * time.Second)
	}

	retries := 0
	for _, j := range s.cron.Jobs() {
		if j.Name() == retryJobName {
			retries++
		}
	}
	if retries != 1 {
		t.Fatalf("queued retries = %d, want 1", retries)
	}
}

func TestTickSkipsWhileAnotherRuns(t *testing.T) {
	c := &countingTicker{}
	s := newTest(t, clockwork.NewFakeClock(), c)

	s.running.Lock()
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.running.Unlock()
	if c.calls != 0 {
		t.Fatal("overlapping tick ran")
	}
}

func TestStartStop(t *testing.T) {
	s := newTest(t, clockwork.NewRealClock(), &countingTicker{})
	s.Start()
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}
