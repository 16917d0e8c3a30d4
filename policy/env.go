package policy

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable suffixes understood by FromEnv and LoadEnvFile.
const (
	EnvRetries      = "RETRIES"
	EnvFactor       = "FACTOR"
	EnvMinDelay     = "MIN_DELAY"
	EnvMaxDelay     = "MAX_DELAY"
	EnvRandomize    = "RANDOMIZE"
	EnvMaxRetryTime = "MAX_RETRY_TIME"
	EnvForever      = "FOREVER"
)

// FromEnv overlays base with <PREFIX>_RETRIES, <PREFIX>_FACTOR and friends
// from the process environment.
func FromEnv(prefix string, base Config) (Config, error) {
	return fromLookup(prefix, base, os.LookupEnv)
}

// LoadEnvFile overlays base with the same variables read from a dotenv file.
// The process environment is not consulted.
func LoadEnvFile(path, prefix string, base Config) (Config, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return Config{}, fmt.Errorf("promiseretry: read env file: %w", err)
	}
	return fromLookup(prefix, base, func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
}

func fromLookup(prefix string, base Config, lookup func(string) (string, bool)) (Config, error) {
	c := base
	c.Errors = append([]string(nil), base.Errors...)
	changed := false

	prefix = strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(prefix), "_"))
	get := func(suffix string) (string, bool) {
		name := suffix
		if prefix != "" {
			name = prefix + "_" + suffix
		}
		v, ok := lookup(name)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, &NormalizeError{Field: "retries", Value: v}
		}
		c.Retries = n
		changed = true
	}
	if v, ok := get(EnvFactor); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, &NormalizeError{Field: "factor", Value: v}
		}
		c.Factor = f
		changed = true
	}

	durations := []struct {
		suffix string
		field  string
		dst    *time.Duration
	}{
		{EnvMinDelay, "min_delay", &c.MinDelay},
		{EnvMaxDelay, "max_delay", &c.MaxDelay},
		{EnvMaxRetryTime, "max_retry_time", &c.MaxRetryTime},
	}
	for _, d := range durations {
		v, ok := get(d.suffix)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, &NormalizeError{Field: d.field, Value: v}
		}
		*d.dst = parsed
		changed = true
	}

	bools := []struct {
		suffix string
		field  string
		dst    *bool
	}{
		{EnvRandomize, "randomize", &c.Randomize},
		{EnvForever, "forever", &c.Forever},
	}
	for _, b := range bools {
		v, ok := get(b.suffix)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &NormalizeError{Field: b.field, Value: v}
		}
		*b.dst = parsed
		changed = true
	}

	if changed {
		c.Meta.Source = SourceEnv
	}
	return c.Normalize()
}
