// Package schedule computes the spacing between retry attempts.
//
// The orchestrator owns one Scheduler per call. Each retry signal is recorded
// with Next, which either returns the delay before the next attempt or
// reports that the retry budget is exhausted.
package schedule

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/playson-dev/node-promise-retry/policy"
)

// Scheduler decides whether another attempt may run and when.
type Scheduler interface {
	// Next records cause as a failed attempt. It returns the delay before the
	// next attempt, or ok=false once no attempts remain.
	Next(cause error) (delay time.Duration, ok bool)
}

// Factory builds a fresh Scheduler for one call.
type Factory func(cfg policy.Config) Scheduler

// Clock is the time source used for MaxRetryTime accounting.
type Clock = backoff.Clock

// Exponential is the default Scheduler: exponential growth from MinDelay by
// Factor, capped at MaxDelay, limited to Retries additional attempts.
type Exponential struct {
	b        backoff.BackOff
	maxDelay time.Duration
	retries  int
	causes   []error
}

// ExponentialOption configures an Exponential scheduler.
type ExponentialOption func(*backoff.ExponentialBackOff)

// WithClock sets the clock used to measure elapsed retry time.
func WithClock(c Clock) ExponentialOption {
	return func(b *backoff.ExponentialBackOff) {
		if c != nil {
			b.Clock = c
		}
	}
}

// WithRandomizationFactor overrides the spread applied when cfg.Randomize is set.
func WithRandomizationFactor(f float64) ExponentialOption {
	return func(b *backoff.ExponentialBackOff) {
		b.RandomizationFactor = f
	}
}

// DefaultRandomizationFactor spreads each delay over [0.5x, 1.5x].
const DefaultRandomizationFactor = 0.5

// NewExponential builds an Exponential scheduler from cfg. cfg is expected to
// be normalized.
func NewExponential(cfg policy.Config, opts ...ExponentialOption) *Exponential {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.MinDelay
	eb.Multiplier = cfg.Factor
	eb.RandomizationFactor = 0
	if cfg.Randomize {
		eb.RandomizationFactor = DefaultRandomizationFactor
	}
	eb.MaxInterval = cfg.MaxDelay
	if eb.MaxInterval <= 0 {
		eb.MaxInterval = time.Duration(math.MaxInt64)
	}
	eb.MaxElapsedTime = cfg.MaxRetryTime
	for _, opt := range opts {
		opt(eb)
	}
	if !cfg.Randomize {
		eb.RandomizationFactor = 0
	}
	eb.Reset()

	s := &Exponential{
		b:        eb,
		maxDelay: cfg.MaxDelay,
		retries:  -1,
	}
	if !cfg.Forever {
		s.retries = max(cfg.Retries, 0)
		s.b = backoff.WithMaxRetries(eb, uint64(max(cfg.Retries, 0)))
	}
	return s
}

// New is the default Factory.
func New(cfg policy.Config) Scheduler {
	return NewExponential(cfg)
}

func (s *Exponential) Next(cause error) (time.Duration, bool) {
	s.causes = append(s.causes, cause)
	if s.retries >= 0 && len(s.causes) > s.retries {
		return 0, false
	}
	d := s.b.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	if d < 0 {
		d = 0
	}
	if s.maxDelay > 0 && d > s.maxDelay {
		d = s.maxDelay
	}
	return d, true
}

// Errors returns every cause recorded so far, oldest first. Absent causes
// are kept as nil entries.
func (s *Exponential) Errors() []error {
	return append([]error(nil), s.causes...)
}

// Retries returns the configured retry budget, or -1 when unbounded.
func (s *Exponential) Retries() int {
	return s.retries
}
