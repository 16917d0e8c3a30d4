package retry

// OutcomeKind tells the orchestrator what to do after an attempt.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	// OutcomeSuccess resolves the call with the attempt's value.
	OutcomeSuccess
	// OutcomeRetry asks for another attempt.
	OutcomeRetry
	// OutcomeFailure rejects the call with the attempt's error.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	// Err is the plain failure, or the retry cause for OutcomeRetry.
	Err error
}

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSuccess, Value: v}
}

func RetryRequested[T any](cause error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeRetry, Err: cause}
}

func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFailure, Err: err}
}

// Decide reads a (value, error) pair returned by a unit of work. A nil error
// is a success, a retry signal anywhere in the chain is a retry request and
// anything else is a failure carrying err unchanged.
func Decide[T any](v T, err error) Outcome[T] {
	if err == nil {
		return Success(v)
	}
	if cause, ok := SignalCause(err); ok {
		return RetryRequested[T](cause)
	}
	return Failure[T](err)
}

// Result is the settled outcome of a call: exactly one of resolved with a
// value or rejected with a cause.
type Result[T any] struct {
	value    T
	cause    error
	resolved bool
}

// Resolved returns a Result holding v.
func Resolved[T any](v T) Result[T] {
	return Result[T]{value: v, resolved: true}
}

// Rejected returns a Result rejected with cause, which may be nil.
func Rejected[T any](cause error) Result[T] {
	return Result[T]{cause: cause}
}

func (r Result[T]) IsResolved() bool { return r.resolved }

// Value returns the resolved value, or the zero value for a rejection.
func (r Result[T]) Value() T { return r.value }

// Cause returns the rejection cause as given. It is nil for a resolved
// Result and for a rejection without a cause.
func (r Result[T]) Cause() error { return r.cause }

// Err returns nil for a resolved Result. A rejection without a cause
// returns ErrNoCause.
func (r Result[T]) Err() error {
	if r.resolved {
		return nil
	}
	if r.cause == nil {
		return ErrNoCause
	}
	return r.cause
}

// Unpack returns the value and Err().
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.Err()
}
