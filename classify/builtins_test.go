package classify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestAlwaysRetryOnError(t *testing.T) {
	c := AlwaysRetryOnError{}
	if out := c.Classify(nil); out.Kind != OutcomeSuccess {
		t.Fatalf("nil err: kind=%v want %v", out.Kind, OutcomeSuccess)
	}
	if out := c.Classify(context.Canceled); out.Kind != OutcomeAbort {
		t.Fatalf("canceled: kind=%v want %v", out.Kind, OutcomeAbort)
	}
	if out := c.Classify(context.DeadlineExceeded); out.Kind != OutcomeRetryable {
		t.Fatalf("deadline: kind=%v want %v", out.Kind, OutcomeRetryable)
	}
	if out := c.Classify(errors.New("nope")); out.Kind != OutcomeRetryable {
		t.Fatalf("error: kind=%v want %v", out.Kind, OutcomeRetryable)
	}
}

func TestIs(t *testing.T) {
	errTransient := errors.New("transient")
	c := Is(nil, errTransient)

	if out := c.Classify(fmt.Errorf("wrapped: %w", errTransient)); out.Kind != OutcomeRetryable {
		t.Fatalf("wrapped target: kind=%v want %v", out.Kind, OutcomeRetryable)
	}
	if out := c.Classify(errors.New("other")); out.Kind != OutcomeNonRetryable {
		t.Fatalf("other: kind=%v want %v", out.Kind, OutcomeNonRetryable)
	}
	if out := c.Classify(nil); out.Kind != OutcomeSuccess {
		t.Fatalf("nil: kind=%v want %v", out.Kind, OutcomeSuccess)
	}
}

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func TestAs(t *testing.T) {
	c := As[*customError]()

	if out := c.Classify(fmt.Errorf("op: %w", &customError{msg: "x"})); out.Kind != OutcomeRetryable {
		t.Fatalf("custom: kind=%v want %v", out.Kind, OutcomeRetryable)
	}
	out := c.Classify(&fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist})
	if out.Kind != OutcomeNonRetryable || out.Reason != "error_type_mismatch" {
		t.Fatalf("path error: out=%+v want non-retryable error_type_mismatch", out)
	}
	if out.Attributes["got_type"] != "*fs.PathError" {
		t.Fatalf("got_type=%q", out.Attributes["got_type"])
	}
}

func TestMatch(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	classifiers := []Classifier{nil, Is(errA), Is(errB)}

	if out, ok := Match(classifiers, errB); !ok || out.Kind != OutcomeRetryable {
		t.Fatalf("errB: ok=%v out=%+v, want retryable", ok, out)
	}
	out, ok := Match(classifiers, errors.New("c"))
	if ok || out.Reason != "error_is_mismatch" {
		t.Fatalf("c: ok=%v out=%+v, want first mismatch verdict", ok, out)
	}
	out, ok = Match(nil, errA)
	if ok || out.Reason != "no_classifier" {
		t.Fatalf("empty: ok=%v out=%+v, want no_classifier", ok, out)
	}
}

func TestOutcomeKind_String(t *testing.T) {
	cases := map[OutcomeKind]string{
		OutcomeUnknown:      "unknown",
		OutcomeSuccess:      "success",
		OutcomeRetryable:    "retryable",
		OutcomeNonRetryable: "non_retryable",
		OutcomeAbort:        "abort",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("%d.String()=%q, want %q", kind, got, want)
		}
	}
}

type testHTTPError struct {
	status int
	method string
}

func (e testHTTPError) Error() string       { return "http error" }
func (e testHTTPError) HTTPStatusCode() int { return e.status }
func (e testHTTPError) HTTPMethod() string  { return e.method }

func TestHTTPClassifier_Success(t *testing.T) {
	c := HTTPClassifier{}
	if out := c.Classify(nil); out.Kind != OutcomeSuccess {
		t.Fatalf("kind=%v want %v", out.Kind, OutcomeSuccess)
	}
	if out := c.Classify(testHTTPError{status: 204, method: "GET"}); out.Kind != OutcomeSuccess {
		t.Fatalf("kind=%v want %v", out.Kind, OutcomeSuccess)
	}
}

func TestHTTPClassifier_Statuses(t *testing.T) {
	cases := []struct {
		status int
		method string
		kind   OutcomeKind
		reason string
	}{
		{status: 500, method: "GET", kind: OutcomeRetryable, reason: "http_5xx"},
		{status: 503, method: "put", kind: OutcomeRetryable, reason: "http_5xx"},
		{status: 500, method: "POST", kind: OutcomeNonRetryable, reason: "http_non_idempotent"},
		{status: 0, method: "GET", kind: OutcomeRetryable, reason: "http_transport_error"},
		{status: 0, method: "PATCH", kind: OutcomeNonRetryable, reason: "http_non_idempotent"},
		{status: 429, method: "GET", kind: OutcomeRetryable, reason: "http_429"},
		{status: 408, method: "HEAD", kind: OutcomeRetryable, reason: "http_408"},
		{status: 404, method: "GET", kind: OutcomeNonRetryable, reason: "http_non_retryable_status"},
	}
	for _, tc := range cases {
		out := HTTPClassifier{}.Classify(testHTTPError{status: tc.status, method: tc.method})
		if out.Kind != tc.kind || out.Reason != tc.reason {
			t.Fatalf("%d %s: out=%+v, want %v %s", tc.status, tc.method, out, tc.kind, tc.reason)
		}
	}
}

func TestHTTPClassifier_CustomRetryable4xx(t *testing.T) {
	c := HTTPClassifier{Retryable4xx: map[int]struct{}{409: {}}}
	out := c.Classify(fmt.Errorf("wrapped: %w", testHTTPError{status: 409, method: "GET"}))
	if out.Kind != OutcomeRetryable || out.Reason != "http_409" {
		t.Fatalf("out=%+v, want retryable http_409", out)
	}
}

func TestHTTPClassifier_TypeMismatch(t *testing.T) {
	c := HTTPClassifier{}
	out := c.Classify(errors.New("nope"))
	if out.Kind != OutcomeNonRetryable || out.Reason != "classifier_type_mismatch" {
		t.Fatalf("out=%+v want nonretryable classifier_type_mismatch", out)
	}
	if out.Attributes["expected_type"] == "" || out.Attributes["got_type"] == "" {
		t.Fatalf("expected type mismatch attributes")
	}
	if out := c.Classify(context.Canceled); out.Kind != OutcomeAbort {
		t.Fatalf("canceled: kind=%v want %v", out.Kind, OutcomeAbort)
	}
}
