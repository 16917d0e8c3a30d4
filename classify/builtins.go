package classify

import (
	"context"
	"errors"
)

// Built-in classifier registry names.
const (
	ClassifierAlwaysRetryOnError = "always"
	ClassifierHTTP               = "http"
	ClassifierAuto               = "auto"
)

// RegisterBuiltins registers core classifiers into reg.
func RegisterBuiltins(reg *Registry) {
	if reg == nil {
		return
	}
	reg.Register(ClassifierAlwaysRetryOnError, AlwaysRetryOnError{})
	reg.Register(ClassifierHTTP, HTTPClassifier{})
	reg.Register(ClassifierAuto, AutoClassifier{})
}

// AlwaysRetryOnError treats every failure as retryable, except context
// cancellation which aborts immediately. It is the adapter's default.
type AlwaysRetryOnError struct{}

func (AlwaysRetryOnError) Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-call deadlines of the wrapped function are usually transient.
		return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded"}
	}
	return Outcome{Kind: OutcomeRetryable, Reason: "retryable_error"}
}

// Is matches failures for which errors.Is reports one of the targets.
func Is(targets ...error) Classifier {
	return Func(func(err error) Outcome {
		if err == nil {
			return Outcome{Kind: OutcomeSuccess, Reason: "success"}
		}
		for _, target := range targets {
			if target != nil && errors.Is(err, target) {
				return Outcome{Kind: OutcomeRetryable, Reason: "error_is_match"}
			}
		}
		return Outcome{Kind: OutcomeNonRetryable, Reason: "error_is_mismatch"}
	})
}

// As matches failures whose chain contains an error of type E.
//
//	classify.As[*net.OpError]()
func As[E error]() Classifier {
	return Func(func(err error) Outcome {
		if err == nil {
			return Outcome{Kind: OutcomeSuccess, Reason: "success"}
		}
		var target E
		if errors.As(err, &target) {
			return Outcome{Kind: OutcomeRetryable, Reason: "error_type_match"}
		}
		return Outcome{
			Kind:   OutcomeNonRetryable,
			Reason: "error_type_mismatch",
			Attributes: map[string]string{
				"got_type": typeString(err),
			},
		}
	})
}
