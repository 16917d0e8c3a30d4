package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/playson-dev/node-promise-retry/classify"
	"github.com/playson-dev/node-promise-retry/internal"
	"github.com/playson-dev/node-promise-retry/policy"
)

// Warner receives retry warnings. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

// LoggerCarrier is implemented by receivers that carry their own logger.
// Methods wrapped with WrapMethod warn through it.
type LoggerCarrier interface {
	Logger() *slog.Logger
}

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// Name appears in warnings, usually the wrapped method's name.
	Name string
	// Retries is the number of additional attempts for matching failures.
	Retries int
	// MinDelay defaults to 100ms; a negative value means no delay.
	MinDelay time.Duration
	// MaxDelay defaults to 500ms.
	MaxDelay time.Duration
	// Errors selects the failures to retry. Empty means any failure except
	// context.Canceled, which is returned unchanged without a retry. Pass
	// classify.Func returning OutcomeRetryable to retry it as well.
	Errors []classify.Classifier
	// Logger receives warnings when the receiver carries no logger.
	Logger Warner
}

// Adapter turns classified failures of plain functions into retry signals.
type Adapter struct {
	exec        *Executor
	name        string
	cfg         policy.Config
	classifiers []classify.Classifier
	logger      Warner
	// err is the config's normalization error; every call returns it.
	err error
}

// NewAdapter builds an Adapter running on exec (nil means DefaultExecutor).
func NewAdapter(exec *Executor, opts AdapterOptions) *Adapter {
	minDelay, maxDelay := opts.MinDelay, opts.MaxDelay
	if minDelay == 0 {
		minDelay = policy.MethodMinDelay
	}
	if maxDelay == 0 {
		maxDelay = policy.MethodMaxDelay
	}
	cfg := policy.New(policy.Retries(opts.Retries), policy.MinDelay(minDelay), policy.MaxDelay(maxDelay))

	a := NewPolicyAdapter(exec, opts.Name, cfg, opts.Errors...)
	a.logger = opts.Logger
	return a
}

// NewPolicyAdapter builds an Adapter running cfg on exec. Without
// classifiers any failure except context.Canceled is retried. An invalid cfg
// makes every call fail with its *policy.NormalizeError.
func NewPolicyAdapter(exec *Executor, name string, cfg policy.Config, classifiers ...classify.Classifier) *Adapter {
	if exec == nil {
		exec = DefaultExecutor()
	}
	if len(classifiers) == 0 {
		classifiers = []classify.Classifier{classify.AlwaysRetryOnError{}}
	}
	normalized, err := cfg.Normalize()
	if err == nil {
		cfg = normalized
	}
	return &Adapter{
		exec:        exec,
		name:        name,
		cfg:         cfg,
		classifiers: classifiers,
		err:         err,
	}
}

// NewAdapterFor builds an Adapter from the config exec's provider returns for
// key. The config's Errors names are looked up in exec's classifier registry.
func NewAdapterFor(ctx context.Context, exec *Executor, key policy.Key) (*Adapter, error) {
	if exec == nil {
		exec = DefaultExecutor()
	}
	exec = ensureExecutor(exec)
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := exec.resolveConfig(ctx, key)
	if err != nil {
		return nil, err
	}
	classifiers, err := exec.classifiersFor(cfg.Errors)
	if err != nil {
		return nil, err
	}
	return NewPolicyAdapter(exec, key.String(), cfg, classifiers...), nil
}

// Config returns the retry config the adapter runs with.
func (a *Adapter) Config() policy.Config {
	return a.cfg
}

// Call runs fn through the adapter.
func Call[T any](ctx context.Context, a *Adapter, fn func(context.Context) (T, error)) (T, error) {
	return adapterCall(ctx, a, a.logger, fn)
}

// Wrap returns fn with retries applied.
func Wrap[T any](a *Adapter, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return adapterCall(ctx, a, a.logger, fn)
	}
}

// Wrap1 is Wrap for a function taking one argument.
func Wrap1[A, T any](a *Adapter, fn func(context.Context, A) (T, error)) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		return adapterCall(ctx, a, a.logger, func(ctx context.Context) (T, error) {
			return fn(ctx, arg)
		})
	}
}

// Wrap2 is Wrap for a function taking two arguments.
func Wrap2[A, B, T any](a *Adapter, fn func(context.Context, A, B) (T, error)) func(context.Context, A, B) (T, error) {
	return func(ctx context.Context, arg1 A, arg2 B) (T, error) {
		return adapterCall(ctx, a, a.logger, func(ctx context.Context) (T, error) {
			return fn(ctx, arg1, arg2)
		})
	}
}

// WrapMethod wraps a method expression such as (*Client).Fetch. The receiver
// is supplied on every call; when it implements LoggerCarrier its logger
// receives the warnings.
func WrapMethod[R, A, T any](a *Adapter, fn func(R, context.Context, A) (T, error)) func(R, context.Context, A) (T, error) {
	return func(recv R, ctx context.Context, arg A) (T, error) {
		w := a.logger
		if carrier, ok := any(recv).(LoggerCarrier); ok && !internal.IsTypedNil(carrier) {
			if l := carrier.Logger(); l != nil {
				w = l
			}
		}
		return adapterCall(ctx, a, w, func(ctx context.Context) (T, error) {
			return fn(recv, ctx, arg)
		})
	}
}

func adapterCall[T any](ctx context.Context, a *Adapter, w Warner, fn func(context.Context) (T, error)) (T, error) {
	if a.err != nil {
		var zero T
		return zero, a.err
	}
	work := Work[T](func(ctx context.Context, retry RetryFunc, _ int) (T, error) {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if _, ok := classify.Match(a.classifiers, err); !ok {
			return v, err
		}
		return v, retry(err)
	})
	// Warn only once the scheduler has granted another attempt.
	onRetry := func(attempt int, cause error) {
		a.warn(w, attempt, cause)
	}
	res, _ := run(ctx, a.exec, policy.Key{}, a.cfg, nil, decideWork(work), false, onRetry)
	return res.Unpack()
}

func (a *Adapter) warn(w Warner, attempt int, err error) {
	if internal.IsTypedNil(w) {
		return
	}
	defer func() {
		_ = recover()
	}()
	w.Warn("retrying method "+a.name,
		"name", a.name,
		"attempt", attempt,
		"error", err,
	)
}
