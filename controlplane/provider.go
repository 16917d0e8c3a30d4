package controlplane

import (
	"context"
	"fmt"

	"github.com/playson-dev/node-promise-retry/policy"
)

// Provider supplies the retry Config for a key.
type Provider interface {
	// GetConfig returns the config for key, or an error wrapping
	// ErrPolicyNotFound when the provider has none.
	GetConfig(ctx context.Context, key policy.Key) (policy.Config, error)
}

// StaticProvider is an in-process Provider backed by a map and an optional default.
type StaticProvider struct {
	Policies map[policy.Key]policy.Config
	Default  policy.Config
}

func (p *StaticProvider) GetConfig(_ context.Context, key policy.Key) (policy.Config, error) {
	if p == nil {
		return policy.Config{}, ErrPolicyNotFound
	}
	if cfg, ok := p.Policies[key]; ok {
		return withSource(cfg, policy.SourceStatic).Normalize()
	}
	if !p.Default.IsZero() {
		return withSource(p.Default, policy.SourceStatic).Normalize()
	}
	return policy.Config{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, key)
}

// FileProvider serves configs from a parsed YAML policy file. Keys without an
// entry get the file's defaults.
type FileProvider struct {
	file *policy.File
}

// NewFileProvider loads the policy file at path.
func NewFileProvider(path string) (*FileProvider, error) {
	f, err := policy.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &FileProvider{file: f}, nil
}

// NewFileProviderFromBytes parses YAML policy data.
func NewFileProviderFromBytes(data []byte) (*FileProvider, error) {
	f, err := policy.ParseFile(data)
	if err != nil {
		return nil, err
	}
	return &FileProvider{file: f}, nil
}

func (p *FileProvider) GetConfig(_ context.Context, key policy.Key) (policy.Config, error) {
	if p == nil || p.file == nil {
		return policy.Config{}, ErrProviderUnavailable
	}
	cfg, _ := p.file.Lookup(key)
	return cfg, nil
}

func withSource(cfg policy.Config, src policy.Source) policy.Config {
	if cfg.Meta.Source == "" || cfg.Meta.Source == policy.SourceUnknown {
		cfg.Meta.Source = src
	}
	return cfg
}
