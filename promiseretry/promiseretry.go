// Package promiseretry is the entry point for retrying units of work.
//
// A unit of work receives a retry function and the 1-based attempt number.
// Returning the error built by retry asks for another attempt; any other
// error ends the call:
//
//	v, err := promiseretry.Retry(ctx, func(ctx context.Context, retry promiseretry.RetryFunc, attempt int) (string, error) {
//		body, err := fetch(ctx)
//		if errors.Is(err, errTemporary) {
//			return "", retry(err)
//		}
//		return body, err
//	}, promiseretry.Config(promiseretry.Retries(3)))
package promiseretry

import (
	"context"

	"github.com/playson-dev/node-promise-retry/policy"
	"github.com/playson-dev/node-promise-retry/retry"
)

type (
	// Key is the structured form of a policy key.
	Key = policy.Key
	// RetryFunc builds the retry signal a unit of work returns.
	RetryFunc = retry.RetryFunc
	// Options configures a Decorator.
	Options = retry.AdapterOptions
)

// Config options, re-exported for callers that only import this package.
var (
	Retries      = policy.Retries
	Factor       = policy.Factor
	MinDelay     = policy.MinDelay
	MaxDelay     = policy.MaxDelay
	Randomize    = policy.Randomize
	MaxRetryTime = policy.MaxRetryTime
	Forever      = policy.Forever
)

// ErrNoCause is returned when the last retry signal carried no cause.
var ErrNoCause = retry.ErrNoCause

// ParseKey parses "namespace.name" into a Key.
func ParseKey(s string) Key { return policy.ParseKey(s) }

// Config returns the default config with opts applied.
func Config(opts ...policy.Option) policy.Config { return policy.New(opts...) }

// Init sets the global default executor.
// It must be called before the other functions are used.
func Init(exec *retry.Executor) {
	retry.SetGlobal(exec)
}

// Retry runs work under cfg on the default executor.
func Retry[T any](ctx context.Context, work retry.Work[T], cfg policy.Config) (T, error) {
	return retry.DoValue(ctx, retry.DefaultExecutor(), cfg, work)
}

// RetryWith is Retry with the config first.
func RetryWith[T any](ctx context.Context, cfg policy.Config, work retry.Work[T]) (T, error) {
	return Retry(ctx, work, cfg)
}

// Do runs op under the config the default executor resolves for key.
func Do(ctx context.Context, key string, op retry.Operation) error {
	return retry.DefaultExecutor().DoFor(ctx, policy.ParseKey(key), op)
}

// DoValue runs work under the config the default executor resolves for key.
func DoValue[T any](ctx context.Context, key string, work retry.Work[T]) (T, error) {
	return retry.DoValueFor(ctx, retry.DefaultExecutor(), policy.ParseKey(key), work)
}

// Decorator returns an adapter on the default executor. Wrap functions with
// retry.Wrap, retry.Wrap1, retry.Wrap2 or retry.WrapMethod.
func Decorator(opts Options) *retry.Adapter {
	return retry.NewAdapter(retry.DefaultExecutor(), opts)
}
