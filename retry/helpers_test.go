package retry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
)

// sleepRecorder replaces the executor's wait and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExecutor(t *testing.T, opts ...ExecutorOption) (*Executor, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	base := []ExecutorOption{
		WithSleep(rec.sleep),
		WithLogger(discardLogger()),
	}
	return NewExecutor(append(base, opts...)...), rec
}

func fastConfig(retries int) policy.Config {
	return policy.New(policy.Retries(retries), policy.Factor(1), policy.MinDelay(time.Millisecond))
}

// countingScheduler counts Next calls and allows a fixed number of retries.
type countingScheduler struct {
	mu      sync.Mutex
	allowed int
	calls   int
	causes  []error
}

func (s *countingScheduler) Next(cause error) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.causes = append(s.causes, cause)
	return 0, s.calls <= s.allowed
}

type recordingObserver struct {
	mu        sync.Mutex
	starts    int
	attempts  []observe.AttemptRecord
	successes []observe.Timeline
	failures  []observe.Timeline
}

func (o *recordingObserver) OnStart(context.Context, policy.Key, policy.Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordingObserver) OnAttempt(_ context.Context, _ policy.Key, rec observe.AttemptRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, rec)
}

func (o *recordingObserver) OnSuccess(_ context.Context, _ policy.Key, tl observe.Timeline) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes = append(o.successes, tl)
}

func (o *recordingObserver) OnFailure(_ context.Context, _ policy.Key, tl observe.Timeline) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, tl)
}
