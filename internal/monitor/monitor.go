// Package monitor waits for a run to finish by polling its timeline with a
// growing interval.
package monitor

import (
	"context"
	"time"

	"github.com/waabox/azdeck/internal/domain"
	"github.com/waabox/azdeck/internal/timeline"
)

const (
	initialInterval = 5 * time.Second
	intervalStep    = 5 * time.Second
	maxInterval     = 30 * time.Second
)

// Backoff yields the poll intervals 5s, 10s, ... capped at 30s. It never resets.
type Backoff struct {
	next time.Duration
}

// Current returns the interval to sleep before the next poll.
func (b *Backoff) Current() time.Duration {
	if b.next == 0 {
		b.next = initialInterval
	}
	return b.next
}

// Advance moves to the next, longer interval.
func (b *Backoff) Advance() {
	b.next = min(b.Current()+intervalStep, maxInterval)
}

// FetchFunc returns the full, fresh record set of the run being watched.
type FetchFunc func(ctx context.Context) ([]domain.TimelineRecord, error)

// Progress is reported to the observer after every poll that did not complete the run.
type Progress struct {
	Poll         int
	Timeline     timeline.RunTimeline
	NextInterval time.Duration
}

// Completion is the outcome of Wait.
type Completion struct {
	Timeline timeline.RunTimeline
	Result   domain.Result
	Polls    int
	Canceled bool
}

// Failed reports whether the run ended Failed or Canceled.
func (c Completion) Failed() bool {
	return !c.Canceled && timeline.IsFailure(c.Result)
}

// Label returns the overall run label of the final timeline.
func (c Completion) Label() string {
	return timeline.OverallLabel(c.Timeline)
}

// Monitor polls a run until every stage has completed.
type Monitor struct {
	fetch   FetchFunc
	observe func(Progress)
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithObserver registers a callback invoked after each incomplete poll.
func WithObserver(fn func(Progress)) Option {
	return func(m *Monitor) { m.observe = fn }
}

// WithSleep replaces the cancelable sleep between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = fn }
}

// New creates a Monitor for the run behind fetch.
func New(fetch FetchFunc, opts ...Option) *Monitor {
	m := &Monitor{
		fetch:   fetch,
		observe: func(Progress) {},
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wait polls until the run completes. A run is complete once its timeline has
// stages and all of them are Completed; an empty timeline means the run has
// not been scheduled yet and keeps polling.
// Cancellation of ctx, during a fetch or a sleep, ends the wait silently: the
// returned Completion has Canceled set and the error is nil.
func (m *Monitor) Wait(ctx context.Context) (Completion, error) {
	var interval Backoff
	for poll := 1; ; poll++ {
		records, err := m.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Completion{Canceled: true, Polls: poll}, nil
			}
			return Completion{Polls: poll}, err
		}

		tl := timeline.Build(records)
		if timeline.AllCompleted(tl) {
			return Completion{
				Timeline: tl,
				Result:   timeline.WorstResult(tl),
				Polls:    poll,
			}, nil
		}

		wait := interval.Current()
		interval.Advance()
		m.observe(Progress{Poll: poll, Timeline: tl, NextInterval: interval.Current()})

		if err := m.sleep(ctx, wait); err != nil {
			return Completion{Canceled: true, Polls: poll}, nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
