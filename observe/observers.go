package observe

import (
	"context"

	"github.com/playson-dev/node-promise-retry/policy"
)

// NoopObserver implements Observer with no-op methods. The executor skips
// timeline bookkeeping entirely when it is the only observer.
type NoopObserver struct{}

func (NoopObserver) OnStart(context.Context, policy.Key, policy.Config)    {}
func (NoopObserver) OnAttempt(context.Context, policy.Key, AttemptRecord) {}
func (NoopObserver) OnSuccess(context.Context, policy.Key, Timeline)      {}
func (NoopObserver) OnFailure(context.Context, policy.Key, Timeline)      {}

// IsNoop reports whether obs is nil or a NoopObserver.
func IsNoop(obs Observer) bool {
	switch obs.(type) {
	case nil, NoopObserver, *NoopObserver:
		return true
	default:
		return false
	}
}

// BaseObserver implements Observer with no-op methods.
//
// Embed it to implement only the callbacks you need.
type BaseObserver struct{}

func (BaseObserver) OnStart(context.Context, policy.Key, policy.Config)    {}
func (BaseObserver) OnAttempt(context.Context, policy.Key, AttemptRecord) {}
func (BaseObserver) OnSuccess(context.Context, policy.Key, Timeline)      {}
func (BaseObserver) OnFailure(context.Context, policy.Key, Timeline)      {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	Observers []Observer
}

func (m MultiObserver) OnStart(ctx context.Context, key policy.Key, cfg policy.Config) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnStart(ctx, key, cfg)
		}
	}
}

func (m MultiObserver) OnAttempt(ctx context.Context, key policy.Key, rec AttemptRecord) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnAttempt(ctx, key, rec)
		}
	}
}

func (m MultiObserver) OnSuccess(ctx context.Context, key policy.Key, tl Timeline) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnSuccess(ctx, key, tl)
		}
	}
}

func (m MultiObserver) OnFailure(ctx context.Context, key policy.Key, tl Timeline) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnFailure(ctx, key, tl)
		}
	}
}
