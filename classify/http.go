package classify

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
)

// HTTPError lets the HTTP classifier recognize status-carrying failures
// without importing integration packages.
//
// Implementations should use status code 0 for transport errors.
type HTTPError interface {
	error
	HTTPStatusCode() int
	HTTPMethod() string
}

// HTTPClassifier classifies failures of HTTP-like operations.
//
// 5xx, 408, 429 and transport errors are retryable for idempotent methods.
// Failures that carry no HTTPError are non-retryable with reason
// "classifier_type_mismatch".
type HTTPClassifier struct {
	// Retryable4xx is an optional set of additional retryable 4xx status codes.
	Retryable4xx map[int]struct{}
}

func (c HTTPClassifier) Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "success"}
	}
	if errors.Is(err, context.Canceled) {
		return Outcome{Kind: OutcomeAbort, Reason: "context_canceled"}
	}

	he, ok := asHTTPError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeRetryable, Reason: "context_deadline_exceeded"}
		}
		return Outcome{
			Kind:   OutcomeNonRetryable,
			Reason: "classifier_type_mismatch",
			Attributes: map[string]string{
				"expected_type": "classify.HTTPError",
				"got_type":      typeString(err),
			},
		}
	}

	status := he.HTTPStatusCode()
	method := strings.ToUpper(strings.TrimSpace(he.HTTPMethod()))
	idempotent := isIdempotentMethod(method)

	out := Outcome{
		Kind:   OutcomeNonRetryable,
		Reason: "http_non_retryable_status",
		Attributes: map[string]string{
			"status": strconv.Itoa(status),
			"method": method,
		},
	}

	switch {
	case status >= 200 && status < 300:
		out.Kind = OutcomeSuccess
		out.Reason = "success"
	case status == 0, status >= 500 && status <= 599, status == 408, status == 429, c.retryable4xx(status):
		if !idempotent {
			out.Reason = "http_non_idempotent"
			break
		}
		out.Kind = OutcomeRetryable
		switch {
		case status == 0:
			out.Reason = "http_transport_error"
		case status >= 500:
			out.Reason = "http_5xx"
		default:
			out.Reason = "http_" + strconv.Itoa(status)
		}
	}
	// All other 4xx are terminal.
	return out
}

func (c HTTPClassifier) retryable4xx(status int) bool {
	if c.Retryable4xx == nil {
		return false
	}
	_, ok := c.Retryable4xx[status]
	return ok
}

func asHTTPError(err error) (HTTPError, bool) {
	var he HTTPError
	if err == nil || !errors.As(err, &he) {
		return nil, false
	}
	return he, true
}

func isIdempotentMethod(method string) bool {
	switch method {
	case "GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE":
		return true
	default:
		return false
	}
}

func typeString(err error) string {
	t := reflect.TypeOf(err)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
