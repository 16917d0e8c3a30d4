package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk layout of a policy file:
//
//	defaults:
//	  retries: 3
//	  min_delay: 100ms
//	policies:
//	  payments.charge:
//	    retries: 5
//	    max_delay: 2s
//	    errors: [http]
//
// Durations are Go duration strings.
type fileDoc struct {
	Defaults yaml.Node            `yaml:"defaults"`
	Policies map[string]yaml.Node `yaml:"policies"`
}

// File is a parsed policy file.
type File struct {
	// Defaults applies to keys without an entry in Policies.
	Defaults Config
	Policies map[Key]Config
}

// ParseFile parses YAML policy data. Every policy starts from Default(),
// then the file's defaults section, then its own entry.
func ParseFile(data []byte) (*File, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("promiseretry: parse policy file: %w", err)
	}

	base := Default()
	if !doc.Defaults.IsZero() {
		if err := doc.Defaults.Decode(&base); err != nil {
			return nil, fmt.Errorf("promiseretry: parse policy defaults: %w", err)
		}
	}
	base.Meta.Source = SourceFile
	defaults, err := base.Normalize()
	if err != nil {
		return nil, err
	}

	f := &File{
		Defaults: defaults,
		Policies: make(map[Key]Config, len(doc.Policies)),
	}
	for name, node := range doc.Policies {
		key := ParseKey(name)
		if key.IsZero() {
			return nil, &NormalizeError{Field: "policies", Value: name}
		}
		c := base
		c.Errors = append([]string(nil), base.Errors...)
		if err := node.Decode(&c); err != nil {
			return nil, fmt.Errorf("promiseretry: parse policy %q: %w", name, err)
		}
		c.Meta.Source = SourceFile
		normalized, err := c.Normalize()
		if err != nil {
			return nil, err
		}
		f.Policies[key] = normalized
	}
	return f, nil
}

// LoadFile reads and parses a YAML policy file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("promiseretry: read policy file: %w", err)
	}
	return ParseFile(data)
}

// Lookup returns the config for key, falling back to the file defaults.
func (f *File) Lookup(key Key) (Config, bool) {
	if f == nil {
		return Config{}, false
	}
	c, ok := f.Policies[key]
	if !ok {
		return f.Defaults, false
	}
	return c, true
}
