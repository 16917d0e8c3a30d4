package retry

import "errors"

// ErrNoCause is returned for a call rejected after a retry signal that
// carried no cause.
var ErrNoCause = errors.New("promiseretry: retries exhausted without a cause")

// RetryFunc builds a retry signal carrying cause. Calling it has no side
// effect: the unit of work must return the value it produces.
type RetryFunc func(cause error) error

// Signal is the error value a unit of work returns to request another attempt.
//
// Callers should not match on *Signal directly. Any error in a chain that
// implements RetryCause() error is treated as a signal; use IsSignal and
// SignalCause to decode one.
type Signal struct {
	cause error
}

func (s *Signal) Error() string {
	if s.cause == nil {
		return "promiseretry: retry requested"
	}
	return "promiseretry: retry requested: " + s.cause.Error()
}

// RetryCause returns the failure that prompted the signal. It may be nil.
func (s *Signal) RetryCause() error { return s.cause }

func (s *Signal) Unwrap() error { return s.cause }

type retrySignal interface {
	error
	RetryCause() error
}

// NewSignal wraps cause in a retry signal. If cause is itself a signal its
// underlying cause is wrapped instead, so signals never nest. A cause that
// merely wraps a signal is kept whole.
func NewSignal(cause error) error {
	if sig, ok := cause.(retrySignal); ok {
		cause = sig.RetryCause()
	}
	return &Signal{cause: cause}
}

// IsSignal reports whether any error in err's chain is a retry signal.
func IsSignal(err error) bool {
	_, ok := SignalCause(err)
	return ok
}

// SignalCause returns the cause carried by the first retry signal in err's
// chain. ok is false when err holds no signal.
func SignalCause(err error) (cause error, ok bool) {
	if err == nil {
		return nil, false
	}
	var sig retrySignal
	if errors.As(err, &sig) {
		return sig.RetryCause(), true
	}
	return nil, false
}
