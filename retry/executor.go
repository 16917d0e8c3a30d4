package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/playson-dev/node-promise-retry/classify"
	"github.com/playson-dev/node-promise-retry/controlplane"
	"github.com/playson-dev/node-promise-retry/internal"
	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
	"github.com/playson-dev/node-promise-retry/schedule"
)

// ErrNoPolicy is returned when no config is found and missing policy mode is FailureDeny.
var ErrNoPolicy = errors.New("promiseretry: no retry config found")

// FailureMode controls behavior when a dependency is missing.
type FailureMode int

const (
	FailureModeUnknown FailureMode = iota
	// FailureDeny rejects the call.
	FailureDeny
	// FailureAllow runs a single attempt without retries.
	FailureAllow
	// FailureFallback uses the defaults.
	FailureFallback
)

func (m FailureMode) String() string {
	switch m {
	case FailureDeny:
		return "deny"
	case FailureAllow:
		return "allow"
	case FailureFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Work is a unit of work. attempt starts at 1. To ask for another attempt,
// return the error produced by retry; any other non-nil error is terminal.
type Work[T any] func(ctx context.Context, retry RetryFunc, attempt int) (T, error)

// Operation is a Work without a value.
type Operation func(ctx context.Context, retry RetryFunc, attempt int) error

// OutcomeWork reports its decision as an Outcome instead of a (T, error) pair.
type OutcomeWork[T any] func(ctx context.Context, attempt int) Outcome[T]

// Executor runs units of work under retry configs. It is immutable after
// construction and safe for concurrent use.
type Executor struct {
	provider              controlplane.Provider
	observer              observe.Observer
	clock                 func() time.Time
	sleep                 func(context.Context, time.Duration) error
	scheduler             schedule.Factory
	classifiers           *classify.Registry
	missingPolicyMode     FailureMode
	missingClassifierMode FailureMode
	recoverPanics         bool
	logger                *slog.Logger
}

type executorConfig struct {
	opts           ExecutorOptions
	staticPolicies map[policy.Key]policy.Config
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Provider              controlplane.Provider
	Observer              observe.Observer
	Clock                 func() time.Time
	Sleep                 func(context.Context, time.Duration) error
	Scheduler             schedule.Factory
	Classifiers           *classify.Registry
	MissingPolicyMode     FailureMode
	MissingClassifierMode FailureMode
	RecoverPanics         bool
	Logger                *slog.Logger
}

// NewExecutor creates an Executor with default options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	cfg := &executorConfig{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.opts.Provider == nil && len(cfg.staticPolicies) > 0 {
		cfg.opts.Provider = &controlplane.StaticProvider{
			Policies: cfg.staticPolicies,
		}
	}

	return NewExecutorFromOptions(cfg.opts)
}

// NewExecutorFromOptions creates an Executor from a config struct.
func NewExecutorFromOptions(opts ExecutorOptions) *Executor {
	e := &Executor{
		provider:              opts.Provider,
		observer:              opts.Observer,
		clock:                 opts.Clock,
		sleep:                 opts.Sleep,
		scheduler:             opts.Scheduler,
		classifiers:           opts.Classifiers,
		missingPolicyMode:     normalizeFailureMode(opts.MissingPolicyMode, FailureFallback),
		missingClassifierMode: normalizeFailureMode(opts.MissingClassifierMode, FailureFallback),
		recoverPanics:         opts.RecoverPanics,
		logger:                opts.Logger,
	}

	if internal.IsTypedNil(e.provider) {
		e.provider = &controlplane.StaticProvider{}
	}
	if internal.IsTypedNil(e.observer) {
		e.observer = observe.NoopObserver{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepWithContext
	}
	if e.scheduler == nil {
		e.scheduler = schedule.New
	}
	if e.classifiers == nil {
		e.classifiers = classify.NewRegistry()
		classify.RegisterBuiltins(e.classifiers)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// PanicError reports a panic recovered from user code.
type PanicError struct {
	Component string
	Key       policy.Key
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("promiseretry: panic in %s for %s: %v", e.Component, e.Key, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

type NoPolicyError struct {
	Key policy.Key
	Err error
}

func (e *NoPolicyError) Error() string {
	return fmt.Sprintf("promiseretry: retry config not found for %s: %v", e.Key, e.Err)
}

func (e *NoPolicyError) Unwrap() error {
	return e.Err
}

func (e *NoPolicyError) Is(target error) bool {
	return target == ErrNoPolicy
}

type NoClassifierError struct {
	Name string
}

func (e *NoClassifierError) Error() string {
	return fmt.Sprintf("promiseretry: classifier not found: %s", e.Name)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorConfig)

// WithProvider sets the config provider used by keyed calls.
func WithProvider(p controlplane.Provider) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Provider = p
	}
}

// WithObserver sets the observer.
func WithObserver(o observe.Observer) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Observer = o
	}
}

// WithClock sets the clock function.
func WithClock(f func() time.Time) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Clock = f
	}
}

// WithSleep replaces the context-aware wait between attempts.
func WithSleep(f func(context.Context, time.Duration) error) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Sleep = f
	}
}

// WithScheduler sets the factory that builds one Scheduler per call.
func WithScheduler(f schedule.Factory) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Scheduler = f
	}
}

// WithClassifiers sets the classifier registry.
func WithClassifiers(r *classify.Registry) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Classifiers = r
	}
}

// WithMissingPolicyMode sets the mode for handling missing configs.
func WithMissingPolicyMode(mode FailureMode) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.MissingPolicyMode = mode
	}
}

// WithMissingClassifierMode sets the mode for unknown classifier names.
func WithMissingClassifierMode(mode FailureMode) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.MissingClassifierMode = mode
	}
}

// WithRecoverPanics sets whether to capture and report panics in user code.
func WithRecoverPanics(enabled bool) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.RecoverPanics = enabled
	}
}

// WithLogger sets the logger for executor diagnostics.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.opts.Logger = l
	}
}

// WithPolicy adds a static config for a string key (e.g. "svc.Method").
func WithPolicy(key string, opts ...policy.Option) ExecutorOption {
	return func(c *executorConfig) {
		if c.staticPolicies == nil {
			c.staticPolicies = make(map[policy.Key]policy.Config)
		}
		c.staticPolicies[policy.ParseKey(key)] = policy.New(opts...)
	}
}

func normalizeFailureMode(mode FailureMode, defaultMode FailureMode) FailureMode {
	switch mode {
	case FailureFallback, FailureAllow, FailureDeny:
		return mode
	default:
		return defaultMode
	}
}

// Do runs op under cfg and returns its final error.
func (e *Executor) Do(ctx context.Context, cfg policy.Config, op Operation) error {
	_, err := DoValue(ctx, e, cfg, func(ctx context.Context, retry RetryFunc, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, retry, attempt)
	})
	return err
}

// DoFor runs op under the config the provider returns for key.
func (e *Executor) DoFor(ctx context.Context, key policy.Key, op Operation) error {
	_, err := DoValueFor(ctx, e, key, func(ctx context.Context, retry RetryFunc, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, retry, attempt)
	})
	return err
}

// Execute runs work under cfg until it resolves, fails or runs out of retries.
func Execute[T any](ctx context.Context, exec *Executor, cfg policy.Config, work Work[T]) Result[T] {
	res, _ := run(ctx, exec, policy.Key{}, cfg, nil, decideWork(work), false, nil)
	return res
}

// DoValue is Execute unpacked into a (value, error) pair.
func DoValue[T any](ctx context.Context, exec *Executor, cfg policy.Config, work Work[T]) (T, error) {
	return Execute(ctx, exec, cfg, work).Unpack()
}

// DoOutcome runs an outcome-style unit of work under cfg.
func DoOutcome[T any](ctx context.Context, exec *Executor, cfg policy.Config, work OutcomeWork[T]) (T, error) {
	res, _ := run(ctx, exec, policy.Key{}, cfg, nil, work, false, nil)
	return res.Unpack()
}

// DoValueFor runs work under the config the executor's provider returns for key.
func DoValueFor[T any](ctx context.Context, exec *Executor, key policy.Key, work Work[T]) (T, error) {
	res, _ := ExecuteFor(ctx, exec, key, work)
	return res.Unpack()
}

// ExecuteFor is Execute with the config resolved for key. The error is
// non-nil only when the config could not be resolved.
func ExecuteFor[T any](ctx context.Context, exec *Executor, key policy.Key, work Work[T]) (Result[T], error) {
	exec = ensureExecutor(exec)
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, attrs, err := exec.resolveConfig(ctx, key)
	if err != nil {
		exec.reportResolveFailure(ctx, key, attrs, err)
		return Rejected[T](err), err
	}
	res, _ := run(ctx, exec, key, cfg, attrs, decideWork(work), false, nil)
	return res, nil
}

// DoValueWithTimeline is DoValue that also returns the call's timeline.
func DoValueWithTimeline[T any](ctx context.Context, exec *Executor, cfg policy.Config, work Work[T]) (T, observe.Timeline, error) {
	res, tl := run(ctx, exec, policy.Key{}, cfg, nil, decideWork(work), true, nil)
	v, err := res.Unpack()
	return v, tl, err
}

func decideWork[T any](work Work[T]) OutcomeWork[T] {
	retry := RetryFunc(NewSignal)
	return func(ctx context.Context, attempt int) Outcome[T] {
		v, err := work(ctx, retry, attempt)
		return Decide(v, err)
	}
}

func ensureExecutor(exec *Executor) *Executor {
	if exec == nil {
		return NewExecutor()
	}
	if exec.provider == nil || exec.observer == nil || exec.clock == nil || exec.sleep == nil ||
		exec.scheduler == nil || exec.classifiers == nil || exec.logger == nil {
		return NewExecutorFromOptions(ExecutorOptions{
			Provider:              exec.provider,
			Observer:              exec.observer,
			Clock:                 exec.clock,
			Sleep:                 exec.sleep,
			Scheduler:             exec.scheduler,
			Classifiers:           exec.classifiers,
			MissingPolicyMode:     exec.missingPolicyMode,
			MissingClassifierMode: exec.missingClassifierMode,
			RecoverPanics:         exec.recoverPanics,
			Logger:                exec.logger,
		})
	}
	return exec
}

// call tracks one orchestration. The timeline is only built when someone
// will read it.
type call struct {
	exec    *Executor
	key     policy.Key
	tracing bool
	capture *observe.TimelineCapture
	tl      observe.Timeline
}

// run drives one call. onRetry, when set, is invoked for every attempt that
// the scheduler grants a retry, before the wait.
func run[T any](ctx context.Context, exec *Executor, key policy.Key, cfg policy.Config, attrs map[string]string, work OutcomeWork[T], wantTimeline bool, onRetry func(attempt int, cause error)) (Result[T], observe.Timeline) {
	if ctx == nil {
		ctx = context.Background()
	}
	exec = ensureExecutor(exec)

	capture, hasCapture := observe.CaptureFromContext(ctx)
	c := &call{
		exec:    exec,
		key:     key,
		tracing: wantTimeline || hasCapture || !observe.IsNoop(exec.observer),
		capture: capture,
	}

	normalized, err := cfg.Normalize()
	if err != nil {
		c.begin(ctx, cfg, attrs)
		return settle(ctx, c, Rejected[T](err))
	}
	c.begin(ctx, normalized, attrs)

	sched := exec.scheduler(normalized)
	callID := c.tl.ID
	if callID == "" {
		callID = observe.NewCallID()
	}
	workCtx := observe.WithoutTimelineCapture(ctx)

	for attempt := 1; ; attempt++ {
		attemptCtx := observe.WithAttemptInfo(workCtx, observe.AttemptInfo{
			Attempt: attempt,
			CallID:  callID,
			Key:     key,
		})

		start := exec.clock()
		out := runAttempt(attemptCtx, exec, key, work, attempt)
		rec := observe.AttemptRecord{
			Attempt:   attempt,
			StartTime: start,
			EndTime:   exec.clock(),
			Err:       out.Err,
		}

		switch out.Kind {
		case OutcomeSuccess:
			rec.Result = observe.ResultSuccess
			c.record(ctx, rec)
			return settle(ctx, c, Resolved(out.Value))
		case OutcomeRetry:
			rec.Result = observe.ResultRetry
		default:
			rec.Result = observe.ResultFailure
			c.record(ctx, rec)
			return settle(ctx, c, Rejected[T](out.Err))
		}

		delay, ok := sched.Next(out.Err)
		if !ok {
			rec.Exhausted = true
			c.record(ctx, rec)
			return settle(ctx, c, Rejected[T](out.Err))
		}
		rec.Backoff = delay
		c.record(ctx, rec)
		if onRetry != nil {
			onRetry(attempt, out.Err)
		}

		exec.logger.DebugContext(ctx, "retry scheduled",
			"key", key.String(),
			"attempt", attempt,
			"delay", delay,
			"error", out.Err,
		)
		if err := exec.sleep(ctx, delay); err != nil {
			return settle(ctx, c, Rejected[T](err))
		}
		// The wait may finish just as ctx is cancelled.
		if err := ctx.Err(); err != nil {
			return settle(ctx, c, Rejected[T](err))
		}
	}
}

func runAttempt[T any](ctx context.Context, exec *Executor, key policy.Key, work OutcomeWork[T], attempt int) (out Outcome[T]) {
	if exec.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					if cause, isSignal := SignalCause(err); isSignal {
						out = RetryRequested[T](cause)
						return
					}
				}
				out = Failure[T](&PanicError{
					Component: "work",
					Key:       key,
					Value:     r,
					Stack:     debug.Stack(),
				})
			}
		}()
	}
	out = work(ctx, attempt)
	if out.Kind == OutcomeUnknown {
		out.Kind = OutcomeFailure
	}
	return out
}

func (c *call) begin(ctx context.Context, cfg policy.Config, attrs map[string]string) {
	if !c.tracing {
		return
	}
	if attrs == nil {
		attrs = make(map[string]string, 2)
	}
	attrs["config_source"] = string(cfg.Meta.Source)
	if cfg.Meta.Normalization.Changed {
		attrs["config_normalized"] = "true"
	}
	c.tl = observe.Timeline{
		ID:         observe.NewCallID(),
		Key:        c.key,
		Config:     cfg,
		Start:      c.exec.clock(),
		Attributes: attrs,
	}
	c.exec.observer.OnStart(ctx, c.key, cfg)
}

func (c *call) record(ctx context.Context, rec observe.AttemptRecord) {
	if !c.tracing {
		return
	}
	c.tl.Attempts = append(c.tl.Attempts, rec)
	c.exec.observer.OnAttempt(ctx, c.key, rec)
}

func settle[T any](ctx context.Context, c *call, res Result[T]) (Result[T], observe.Timeline) {
	if !c.tracing {
		return res, observe.Timeline{}
	}
	c.tl.End = c.exec.clock()
	c.tl.Resolved = res.IsResolved()
	c.tl.FinalErr = res.Err()
	if c.tl.Resolved {
		c.exec.observer.OnSuccess(ctx, c.key, c.tl)
	} else {
		c.exec.observer.OnFailure(ctx, c.key, c.tl)
	}
	if c.capture != nil {
		c.capture.Store(c.tl)
	}
	return res, c.tl
}

// resolveConfig asks the provider for key's config, applying the missing
// policy mode when it has none.
func (e *Executor) resolveConfig(ctx context.Context, key policy.Key) (policy.Config, map[string]string, error) {
	attrs := make(map[string]string)

	var cfg policy.Config
	var err error

	func() {
		if e.recoverPanics {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{
						Component: "config_provider",
						Key:       key,
						Value:     r,
						Stack:     debug.Stack(),
					}
				}
			}()
		}
		cfg, err = e.provider.GetConfig(ctx, key)
	}()

	if err == nil {
		return cfg, attrs, nil
	}

	attrs["policy_error"] = policyErrorKind(err)
	// An invalid config is never replaced by a fallback.
	var nerr *policy.NormalizeError
	if errors.As(err, &nerr) {
		return policy.Config{}, attrs, err
	}
	switch e.missingPolicyMode {
	case FailureDeny:
		return policy.Config{}, attrs, &NoPolicyError{Key: key, Err: err}
	case FailureAllow:
		cfg = policy.Config{Factor: 1}
	default:
		cfg = policy.Default()
	}
	e.logger.DebugContext(ctx, "retry config unavailable",
		"key", key.String(),
		"mode", e.missingPolicyMode.String(),
		"error", err,
	)
	return cfg, attrs, nil
}

// ConfigFor returns the config keyed calls would use for key, after the
// missing policy mode has been applied.
func (e *Executor) ConfigFor(ctx context.Context, key policy.Key) (policy.Config, error) {
	e = ensureExecutor(e)
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := e.resolveConfig(ctx, key)
	return cfg, err
}

func (e *Executor) reportResolveFailure(ctx context.Context, key policy.Key, attrs map[string]string, err error) {
	if observe.IsNoop(e.observer) {
		if capture, ok := observe.CaptureFromContext(ctx); ok {
			now := e.clock()
			capture.Store(observe.Timeline{Key: key, Start: now, End: now, Attributes: attrs, FinalErr: err})
		}
		return
	}
	now := e.clock()
	tl := observe.Timeline{
		ID:         observe.NewCallID(),
		Key:        key,
		Start:      now,
		End:        now,
		Attributes: attrs,
		FinalErr:   err,
	}
	e.observer.OnStart(ctx, key, policy.Config{})
	e.observer.OnFailure(ctx, key, tl)
	if capture, ok := observe.CaptureFromContext(ctx); ok {
		capture.Store(tl)
	}
}

// classifiersFor resolves registry names, applying the missing classifier mode
// to unknown ones.
func (e *Executor) classifiersFor(names []string) ([]classify.Classifier, error) {
	out := make([]classify.Classifier, 0, len(names))
	for _, name := range names {
		c, ok := e.classifiers.Get(name)
		if ok {
			out = append(out, c)
			continue
		}
		if e.missingClassifierMode == FailureDeny {
			return nil, &NoClassifierError{Name: name}
		}
		e.logger.Warn("unknown classifier ignored", "name", name)
	}
	return out, nil
}

func policyErrorKind(err error) string {
	switch {
	case errors.Is(err, controlplane.ErrPolicyNotFound):
		return "policy_not_found"
	case errors.Is(err, controlplane.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, controlplane.ErrPolicyFetchFailed):
		return "policy_fetch_failed"
	case errors.As(err, new(*policy.NormalizeError)):
		return "invalid_config"
	default:
		return "unknown_error"
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
