package promiseretry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
	"github.com/playson-dev/node-promise-retry/promiseretry"
	"github.com/playson-dev/node-promise-retry/retry"
)

func TestMain(m *testing.M) {
	promiseretry.Init(newTestExecutor())
	os.Exit(m.Run())
}

func newTestExecutor() *retry.Executor {
	return retry.NewExecutor(
		retry.WithPolicy("promiseretry.success", policy.Retries(2), policy.Immediate()),
		retry.WithPolicy("promiseretry.retry", policy.Retries(2), policy.Immediate()),
		retry.WithPolicy("promiseretry.timeline", policy.Retries(2), policy.Immediate()),
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
		retry.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestRetry_BothArgumentOrders(t *testing.T) {
	cfg := promiseretry.Config(promiseretry.Retries(2), promiseretry.Factor(1))

	run := func(call func(retry.Work[string]) (string, error)) (string, int, error) {
		var calls int
		v, err := call(func(_ context.Context, retry promiseretry.RetryFunc, attempt int) (string, error) {
			calls++
			if attempt < 3 {
				return "", retry(errors.New("not yet"))
			}
			return "done", nil
		})
		return v, calls, err
	}

	v1, calls1, err1 := run(func(w retry.Work[string]) (string, error) {
		return promiseretry.Retry(context.Background(), w, cfg)
	})
	v2, calls2, err2 := run(func(w retry.Work[string]) (string, error) {
		return promiseretry.RetryWith(context.Background(), cfg, w)
	})

	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if v1 != "done" || v2 != "done" {
		t.Fatalf("got %q and %q, want done", v1, v2)
	}
	if calls1 != 3 || calls2 != 3 {
		t.Fatalf("calls=%d/%d, want 3", calls1, calls2)
	}
}

func TestRetry_RejectsWithLastCause(t *testing.T) {
	x := errors.New("x")
	cfg := promiseretry.Config(promiseretry.Retries(1), promiseretry.Factor(1))

	var calls int
	_, err := promiseretry.Retry(context.Background(), func(_ context.Context, retry promiseretry.RetryFunc, _ int) (int, error) {
		calls++
		return 0, retry(x)
	}, cfg)

	if err != x {
		t.Fatalf("err=%v, want %v", err, x)
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want 2", calls)
	}
}

func TestRetry_NoCause(t *testing.T) {
	_, err := promiseretry.Retry(context.Background(), func(_ context.Context, retry promiseretry.RetryFunc, _ int) (int, error) {
		return 0, retry(nil)
	}, promiseretry.Config(promiseretry.Retries(0)))

	if !errors.Is(err, promiseretry.ErrNoCause) {
		t.Fatalf("err=%v, want ErrNoCause", err)
	}
}

func TestRetry_InvalidFactorRejected(t *testing.T) {
	cfg := promiseretry.Config(promiseretry.Retries(1), promiseretry.Factor(math.NaN()), promiseretry.MinDelay(0))

	var calls int
	_, err := promiseretry.Retry(context.Background(), func(_ context.Context, retry promiseretry.RetryFunc, _ int) (int, error) {
		calls++
		return 0, retry(errors.New("again"))
	}, cfg)

	var nerr *policy.NormalizeError
	if !errors.As(err, &nerr) {
		t.Fatalf("err=%v, want *policy.NormalizeError", err)
	}
	if calls != 0 {
		t.Fatalf("calls=%d, want 0", calls)
	}
}

func TestDoValue_SimpleSuccess(t *testing.T) {
	got, err := promiseretry.DoValue(context.Background(), "promiseretry.success", func(context.Context, promiseretry.RetryFunc, int) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestDo_RetriesOnSignal(t *testing.T) {
	var attempts int32
	err := promiseretry.Do(context.Background(), "promiseretry.retry", func(_ context.Context, retry promiseretry.RetryFunc, _ int) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return retry(errors.New("retry me"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoValue_WithTimeline(t *testing.T) {
	ctx, capture := observe.RecordTimeline(context.Background())
	var attempts int32
	_, err := promiseretry.DoValue(ctx, "promiseretry.timeline", func(_ context.Context, retry promiseretry.RetryFunc, _ int) (int, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return 0, retry(errors.New("retry once"))
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tl := capture.Timeline()
	if tl == nil {
		t.Fatal("expected timeline to be captured")
	}
	if tl.Key != promiseretry.ParseKey("promiseretry.timeline") {
		t.Fatalf("expected timeline key %v, got %v", promiseretry.ParseKey("promiseretry.timeline"), tl.Key)
	}
	if len(tl.Attempts) != 2 {
		t.Fatalf("expected 2 attempts in timeline, got %d", len(tl.Attempts))
	}
}

type repo struct {
	calls int
}

func (r *repo) Load(_ context.Context, id int) (string, error) {
	r.calls++
	if r.calls < 3 {
		return "", errors.New("fail")
	}
	return "row", nil
}

func TestDecorator(t *testing.T) {
	load := retry.WrapMethod(promiseretry.Decorator(promiseretry.Options{Name: "Load", Retries: 3}), (*repo).Load)

	r := &repo{}
	got, err := load(r, context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "row" || r.calls != 3 {
		t.Fatalf("got %q after %d calls", got, r.calls)
	}
}

func TestParseKey_VariousFormats(t *testing.T) {
	cases := []struct {
		input string
		want  promiseretry.Key
	}{
		{input: "svc.method", want: promiseretry.Key{Namespace: "svc", Name: "method"}},
		{input: "method", want: promiseretry.Key{Name: "method"}},
		{input: "svc.method.extra", want: promiseretry.Key{Namespace: "svc", Name: "method.extra"}},
		{input: "", want: promiseretry.Key{}},
	}

	for _, tc := range cases {
		if got := promiseretry.ParseKey(tc.input); got != tc.want {
			t.Fatalf("ParseKey(%q)=%v, want %v", tc.input, got, tc.want)
		}
	}
}
