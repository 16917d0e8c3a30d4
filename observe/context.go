package observe

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/playson-dev/node-promise-retry/policy"
)

type attemptInfoKey struct{}

// AttemptInfo is per-attempt metadata attached to the attempt context.
type AttemptInfo struct {
	// Attempt is 1-based.
	Attempt int
	CallID  string
	Key     policy.Key
}

// WithAttemptInfo returns a context derived from ctx that carries info.
func WithAttemptInfo(ctx context.Context, info AttemptInfo) context.Context {
	return context.WithValue(ctx, attemptInfoKey{}, info)
}

// AttemptFromContext returns the AttemptInfo from ctx, if present.
func AttemptFromContext(ctx context.Context) (AttemptInfo, bool) {
	if ctx == nil {
		return AttemptInfo{}, false
	}
	info, ok := ctx.Value(attemptInfoKey{}).(AttemptInfo)
	return info, ok
}

// NewCallID returns a fresh call identifier.
func NewCallID() string {
	return uuid.NewString()
}

// TimelineCapture holds the timeline of one finished call.
type TimelineCapture struct {
	tl atomic.Pointer[Timeline]
}

// Timeline returns the captured timeline, or nil until the call completes.
func (c *TimelineCapture) Timeline() *Timeline {
	if c == nil {
		return nil
	}
	return c.tl.Load()
}

// Store publishes tl. The executor calls it once per captured call.
func (c *TimelineCapture) Store(tl Timeline) {
	if c == nil {
		return
	}
	c.tl.Store(&tl)
}

type captureKey struct{}

// RecordTimeline returns a context that requests timeline capture for the
// next call made with it, plus the holder for the result.
func RecordTimeline(ctx context.Context) (context.Context, *TimelineCapture) {
	if ctx == nil {
		ctx = context.Background()
	}
	capture := &TimelineCapture{}
	return context.WithValue(ctx, captureKey{}, capture), capture
}

// CaptureFromContext returns the capture requested on ctx, if any.
func CaptureFromContext(ctx context.Context) (*TimelineCapture, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(captureKey{}).(*TimelineCapture)
	return c, ok && c != nil
}

// WithoutTimelineCapture hides any capture request from nested calls made
// by the unit of work.
func WithoutTimelineCapture(ctx context.Context) context.Context {
	if _, ok := CaptureFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, captureKey{}, (*TimelineCapture)(nil))
}
