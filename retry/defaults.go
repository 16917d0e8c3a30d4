package retry

import (
	"github.com/playson-dev/node-promise-retry/classify"
	"github.com/playson-dev/node-promise-retry/observe"
)

// DefaultOption allows customizing the default executor.
// It is an alias for ExecutorOption for ergonomics.
type DefaultOption = ExecutorOption

// NewDefaultExecutor creates an Executor with the defaults used by the
// package-level entry points.
//
// Defaults:
// - Provider: StaticProvider (empty), so keyed calls fall back to policy.Default().
// - Classifiers: builtins ("always", "http", "auto") registered.
// - Scheduler: schedule.New.
// - Observer: NoopObserver.
func NewDefaultExecutor(opts ...DefaultOption) *Executor {
	classifierReg := classify.NewRegistry()
	classify.RegisterBuiltins(classifierReg)

	defaultOpts := []ExecutorOption{
		WithObserver(observe.NoopObserver{}),
		WithClassifiers(classifierReg),
		WithMissingPolicyMode(FailureFallback),
	}
	defaultOpts = append(defaultOpts, opts...)

	return NewExecutor(defaultOpts...)
}
