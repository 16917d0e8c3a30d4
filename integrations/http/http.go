// Package http retries HTTP requests, classifying responses by status and
// method idempotency.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/playson-dev/node-promise-retry/classify"
	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
	"github.com/playson-dev/node-promise-retry/retry"
)

// ErrBodyNotReplayable is returned for requests whose body cannot be resent.
var ErrBodyNotReplayable = errors.New("promiseretry: request body is not replayable (GetBody is nil)")

// DoHTTP sends req under cfg, retrying transport errors, 5xx, 408 and 429
// responses of idempotent requests. Failed responses are drained and closed
// before the next attempt. The returned timeline covers every attempt.
func DoHTTP(ctx context.Context, exec *retry.Executor, cfg policy.Config, client *http.Client, req *http.Request) (*http.Response, observe.Timeline, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, observe.Timeline{}, ErrBodyNotReplayable
	}
	if client == nil {
		client = http.DefaultClient
	}

	adapter := retry.NewPolicyAdapter(exec, req.Method+" "+req.URL.Path, cfg, classify.HTTPClassifier{})

	op := func(ctx context.Context) (*http.Response, error) {
		outReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			outReq.Body = body
		}

		resp, err := client.Do(outReq)
		if err != nil {
			// Transport errors carry the method so idempotency applies.
			return nil, &StatusError{
				Err:    err,
				Method: req.Method,
			}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		// Drain a bounded amount so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		resp.Body.Close()

		return nil, &StatusError{
			Code:   resp.StatusCode,
			Method: req.Method,
			Header: resp.Header,
		}
	}

	ctx, capture := observe.RecordTimeline(ctx)

	val, err := retry.Call(ctx, adapter, op)

	var tl observe.Timeline
	if t := capture.Timeline(); t != nil {
		tl = *t
	}

	return val, tl, err
}

// StatusError implements classify.HTTPError.
type StatusError struct {
	Code   int
	Method string
	Header http.Header
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "http status " + strconv.Itoa(e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Code }
func (e *StatusError) HTTPMethod() string  { return e.Method }
