package controlplane

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/playson-dev/node-promise-retry/policy"
)

// Source fetches raw configs from outside the process.
type Source interface {
	// FetchConfig returns the config for key, or ErrPolicyNotFound.
	FetchConfig(ctx context.Context, key policy.Key) (policy.Config, error)
}

// RemoteProvider is a Provider that reads through a Source and caches results.
type RemoteProvider struct {
	source           Source
	cache            *ConfigCache
	cacheTTL         time.Duration
	negativeCacheTTL time.Duration
}

// RemoteProviderOption configures a RemoteProvider.
type RemoteProviderOption func(*RemoteProvider)

// WithCacheTTL sets the TTL for found configs. Default is 1 minute.
func WithCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.cacheTTL = ttl
	}
}

// WithNegativeCacheTTL sets the TTL for missing configs. Default is 10 seconds.
func WithNegativeCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.negativeCacheTTL = ttl
	}
}

// NewRemoteProvider creates a RemoteProvider over source.
func NewRemoteProvider(source Source, opts ...RemoteProviderOption) *RemoteProvider {
	p := &RemoteProvider{
		source:           source,
		cache:            NewConfigCache(),
		cacheTTL:         1 * time.Minute,
		negativeCacheTTL: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RemoteProvider) GetConfig(ctx context.Context, key policy.Key) (policy.Config, error) {
	if p == nil || p.source == nil {
		return policy.Config{}, ErrProviderUnavailable
	}

	if cfg, hit, missing := p.cache.Get(key); hit {
		if missing {
			return policy.Config{}, ErrPolicyNotFound
		}
		return cfg, nil
	}

	cfg, err := p.source.FetchConfig(ctx, key)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			p.cache.SetMissing(key, p.negativeCacheTTL)
			return policy.Config{}, ErrPolicyNotFound
		}
		// Fetch failures are not cached so the next call tries again.
		return policy.Config{}, err
	}

	normalized, err := withSource(cfg, policy.SourceRemote).Normalize()
	if err != nil {
		return policy.Config{}, err
	}
	p.cache.Set(key, normalized, p.cacheTTL)
	return normalized, nil
}

// Invalidate forces the next lookup of key to hit the source.
func (p *RemoteProvider) Invalidate(key policy.Key) {
	p.cache.Invalidate(key)
}

// HTTPSource fetches a YAML policy file over HTTP on every call.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) FetchConfig(ctx context.Context, key policy.Key) (policy.Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return policy.Config{}, fmt.Errorf("%w: %v", ErrPolicyFetchFailed, err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return policy.Config{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return policy.Config{}, ErrPolicyNotFound
	case resp.StatusCode >= 500:
		return policy.Config{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return policy.Config{}, fmt.Errorf("%w: status %d", ErrPolicyFetchFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return policy.Config{}, fmt.Errorf("%w: %v", ErrPolicyFetchFailed, err)
	}
	f, err := policy.ParseFile(data)
	if err != nil {
		return policy.Config{}, fmt.Errorf("%w: %v", ErrPolicyFetchFailed, err)
	}
	cfg, ok := f.Lookup(key)
	if !ok {
		return policy.Config{}, ErrPolicyNotFound
	}
	return cfg, nil
}
