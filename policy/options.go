package policy

import "time"

// Option configures a Config.
type Option func(*Config)

// New returns Default() with opts applied, normalized. A config that cannot
// be normalized (NaN or infinite factor) is returned as built, so the
// executor rejects it with *NormalizeError.
func New(opts ...Option) Config {
	c := Default()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.Meta.Source == SourceDefault && len(opts) > 0 {
		c.Meta.Source = SourceStatic
	}
	normalized, err := c.Normalize()
	if err != nil {
		return c
	}
	return normalized
}

// Retries sets the number of additional attempts beyond the first.
func Retries(n int) Option {
	return func(c *Config) {
		c.Retries = n
	}
}

// Factor sets the exponential growth multiplier.
func Factor(f float64) Option {
	return func(c *Config) {
		c.Factor = f
	}
}

// MinDelay sets the delay before the first retry.
func MinDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MinDelay = d
	}
}

// MaxDelay caps each delay. Zero means unbounded.
func MaxDelay(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = d
	}
}

// Randomize enables randomized delays.
func Randomize() Option {
	return func(c *Config) {
		c.Randomize = true
	}
}

// MaxRetryTime bounds the total time spent retrying.
func MaxRetryTime(d time.Duration) Option {
	return func(c *Config) {
		c.MaxRetryTime = d
	}
}

// Forever retries until success, ignoring Retries.
func Forever() Option {
	return func(c *Config) {
		c.Forever = true
	}
}

// Errors sets the classifier names used by the policy adapter.
func Errors(names ...string) Option {
	return func(c *Config) {
		c.Errors = append([]string(nil), names...)
	}
}

// Backoff sets min/max delay and factor in one go.
func Backoff(min, max time.Duration, factor float64) Option {
	return func(c *Config) {
		c.MinDelay = min
		c.MaxDelay = max
		c.Factor = factor
	}
}

// Immediate removes all delays. Mostly useful in tests and for in-memory work.
func Immediate() Option {
	return func(c *Config) {
		c.MinDelay = 0
		c.MaxDelay = 0
		c.Randomize = false
	}
}

// MethodDefaults applies the delays used by the policy adapter
// (100ms minimum, 500ms maximum).
func MethodDefaults() Option {
	return func(c *Config) {
		c.MinDelay = MethodMinDelay
		c.MaxDelay = MethodMaxDelay
	}
}
