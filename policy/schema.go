package policy

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Source records where a Config came from.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceDefault Source = "default"
	SourceStatic  Source = "static"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceRemote  Source = "remote"
)

type NormalizationInfo struct {
	Changed       bool     `json:"-" yaml:"-"`
	ChangedFields []string `json:"-" yaml:"-"`
}

type Metadata struct {
	Source        Source            `json:"-" yaml:"-"`
	Normalization NormalizationInfo `json:"-" yaml:"-"`
}

// Config is the retry configuration for one call.
//
// Build it with New (or Default) to get documented defaults; a literal
// Config{} means zero retries, no delay and a factor of 1.
type Config struct {
	// Retries is the number of additional attempts beyond the first.
	Retries int `json:"retries" yaml:"retries"`
	// Factor is the exponential growth multiplier between delays.
	Factor float64 `json:"factor" yaml:"factor"`
	// MinDelay is the delay before the first retry.
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay"`
	// MaxDelay caps every delay. Zero means unbounded.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
	// Randomize spreads delays around the exponential curve.
	Randomize bool `json:"randomize" yaml:"randomize"`

	// MaxRetryTime bounds the total time spent retrying. Zero means unbounded.
	MaxRetryTime time.Duration `json:"max_retry_time,omitempty" yaml:"max_retry_time,omitempty"`
	// Forever ignores Retries and keeps retrying until success or MaxRetryTime.
	Forever bool `json:"forever,omitempty" yaml:"forever,omitempty"`

	// Errors names registered classifiers used by the policy adapter.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	Meta Metadata `json:"-" yaml:"-"`
}

const (
	DefaultRetries  = 10
	DefaultFactor   = 2.0
	DefaultMinDelay = 1 * time.Second

	// MethodMinDelay and MethodMaxDelay are the policy adapter defaults.
	MethodMinDelay = 100 * time.Millisecond
	MethodMaxDelay = 500 * time.Millisecond
)

// Default returns the default configuration: 10 retries, factor 2, 1s
// minimum delay, unbounded maximum delay, no randomization.
func Default() Config {
	return Config{
		Retries:  DefaultRetries,
		Factor:   DefaultFactor,
		MinDelay: DefaultMinDelay,
		MaxDelay: 0,
		Meta: Metadata{
			Source: SourceDefault,
		},
	}
}

// IsZero reports whether c carries no settings at all.
func (c Config) IsZero() bool {
	return c.Retries == 0 &&
		c.Factor == 0 &&
		c.MinDelay == 0 &&
		c.MaxDelay == 0 &&
		!c.Randomize &&
		c.MaxRetryTime == 0 &&
		!c.Forever &&
		len(c.Errors) == 0
}

// Attempts returns the maximum number of attempts, or -1 when Forever is set.
func (c Config) Attempts() int {
	if c.Forever {
		return -1
	}
	if c.Retries < 0 {
		return 1
	}
	return c.Retries + 1
}

// Normalize clamps out-of-range values and reports what changed. It fails only
// for values that cannot be clamped meaningfully.
func (c Config) Normalize() (Config, error) {
	normalized := c
	normalized.Errors = nil
	norm := &normalized.Meta.Normalization
	norm.ChangedFields = append([]string(nil), c.Meta.Normalization.ChangedFields...)

	markChanged := func(field string) {
		norm.Changed = true
		for _, f := range norm.ChangedFields {
			if f == field {
				return
			}
		}
		norm.ChangedFields = append(norm.ChangedFields, field)
	}

	if math.IsNaN(normalized.Factor) || math.IsInf(normalized.Factor, 0) {
		return Config{}, &NormalizeError{Field: "factor", Value: strconv.FormatFloat(normalized.Factor, 'g', -1, 64)}
	}

	if normalized.Retries < 0 {
		normalized.Retries = 0
		markChanged("retries")
	}
	if normalized.Factor < 1 {
		normalized.Factor = 1
		markChanged("factor")
	}
	if normalized.MinDelay < 0 {
		normalized.MinDelay = 0
		markChanged("min_delay")
	}
	if normalized.MaxDelay < 0 {
		normalized.MaxDelay = 0
		markChanged("max_delay")
	}
	if normalized.MaxDelay > 0 && normalized.MaxDelay < normalized.MinDelay {
		normalized.MaxDelay = normalized.MinDelay
		markChanged("max_delay")
	}
	if normalized.MaxRetryTime < 0 {
		normalized.MaxRetryTime = 0
		markChanged("max_retry_time")
	}

	for _, name := range c.Errors {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			markChanged("errors")
			continue
		}
		if trimmed != name {
			markChanged("errors")
		}
		normalized.Errors = append(normalized.Errors, trimmed)
	}

	if normalized.Meta.Source == "" {
		normalized.Meta.Source = SourceUnknown
	}

	return normalized, nil
}
