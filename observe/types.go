package observe

import (
	"context"
	"time"

	"github.com/playson-dev/node-promise-retry/policy"
)

// AttemptResult is how the orchestrator read one attempt.
type AttemptResult string

const (
	// ResultSuccess means the attempt resolved with a value.
	ResultSuccess AttemptResult = "success"
	// ResultRetry means the attempt returned a retry signal.
	ResultRetry AttemptResult = "retry"
	// ResultFailure means the attempt failed with a plain, terminal error.
	ResultFailure AttemptResult = "failure"
)

// AttemptRecord describes a single attempt.
type AttemptRecord struct {
	// Attempt is 1-based.
	Attempt   int
	StartTime time.Time
	EndTime   time.Time

	Result AttemptResult
	// Err is the plain failure, or the retry signal's underlying cause.
	Err error

	// Backoff is the delay scheduled after this attempt. Zero when no further
	// attempt follows.
	Backoff time.Duration
	// Exhausted is set on a retry attempt that found no budget left.
	Exhausted bool
}

// Timeline is the structured record of a single call and all of its attempts.
type Timeline struct {
	// ID is unique per call.
	ID     string
	Key    policy.Key
	Config policy.Config
	Start  time.Time
	End    time.Time

	// Attributes holds call-level metadata (config source, normalization notes).
	Attributes map[string]string

	Attempts []AttemptRecord

	// Resolved is true when the call produced a value.
	Resolved bool
	// FinalErr is the error returned to the caller for a rejected call.
	FinalErr error
}

// Retries returns how many attempts were retries of an earlier one.
func (tl Timeline) Retries() int {
	if len(tl.Attempts) == 0 {
		return 0
	}
	return len(tl.Attempts) - 1
}

// Observer receives lifecycle callbacks for a single call. Implementations
// must be safe for concurrent use across calls.
type Observer interface {
	OnStart(ctx context.Context, key policy.Key, cfg policy.Config)
	OnAttempt(ctx context.Context, key policy.Key, rec AttemptRecord)
	OnSuccess(ctx context.Context, key policy.Key, tl Timeline)
	OnFailure(ctx context.Context, key policy.Key, tl Timeline)
}
