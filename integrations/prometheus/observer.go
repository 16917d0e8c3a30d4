// Package prometheus exports retry call and attempt metrics.
package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/playson-dev/node-promise-retry/observe"
	"github.com/playson-dev/node-promise-retry/policy"
)

const unnamedKey = "unnamed"

// Observer records Prometheus metrics for every call it observes.
type Observer struct {
	observe.BaseObserver

	callsTotal      *prometheus.CounterVec
	attemptsTotal   *prometheus.CounterVec
	exhaustedTotal  *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	backoffDuration *prometheus.HistogramVec
}

type options struct {
	namespace string
	buckets   []float64
}

// Option configures an Observer.
type Option func(*options)

// WithNamespace sets the metric namespace. Default "promiseretry".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) {
		o.buckets = b
	}
}

// NewObserver creates an Observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer, opts ...Option) (*Observer, error) {
	o := options{
		namespace: "promiseretry",
		buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	obs := &Observer{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "calls_total",
			Help:      "Settled retry calls by outcome",
		}, []string{"key", "outcome"}),

		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "attempts_total",
			Help:      "Attempts by result (success, retry, failure)",
		}, []string{"key", "result"}),

		exhaustedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "exhausted_total",
			Help:      "Calls rejected because no retries remained",
		}, []string{"key"}),

		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "call_duration_seconds",
			Help:      "Wall time of a call including waits",
			Buckets:   o.buckets,
		}, []string{"key", "outcome"}),

		backoffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "backoff_seconds",
			Help:      "Scheduled delays between attempts",
			Buckets:   o.buckets,
		}, []string{"key"}),
	}

	for _, c := range []prometheus.Collector{
		obs.callsTotal,
		obs.attemptsTotal,
		obs.exhaustedTotal,
		obs.callDuration,
		obs.backoffDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func (o *Observer) OnAttempt(_ context.Context, key policy.Key, rec observe.AttemptRecord) {
	k := keyLabel(key)
	o.attemptsTotal.WithLabelValues(k, string(rec.Result)).Inc()
	if rec.Exhausted {
		o.exhaustedTotal.WithLabelValues(k).Inc()
	}
	if rec.Result == observe.ResultRetry && !rec.Exhausted {
		o.backoffDuration.WithLabelValues(k).Observe(rec.Backoff.Seconds())
	}
}

func (o *Observer) OnSuccess(_ context.Context, key policy.Key, tl observe.Timeline) {
	o.settle(key, "resolved", tl)
}

func (o *Observer) OnFailure(_ context.Context, key policy.Key, tl observe.Timeline) {
	o.settle(key, "rejected", tl)
}

func (o *Observer) settle(key policy.Key, outcome string, tl observe.Timeline) {
	k := keyLabel(key)
	o.callsTotal.WithLabelValues(k, outcome).Inc()
	if !tl.Start.IsZero() && !tl.End.Before(tl.Start) {
		o.callDuration.WithLabelValues(k, outcome).Observe(tl.End.Sub(tl.Start).Seconds())
	}
}

func keyLabel(key policy.Key) string {
	if key.IsZero() {
		return unnamedKey
	}
	return key.String()
}
