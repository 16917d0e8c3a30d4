package policy

import "strings"

// Key identifies a retry policy as "namespace.name".
type Key struct {
	Namespace string
	Name      string
}

// ParseKey parses "namespace.name" into a Key. Anything after the first dot
// belongs to Name; input without a usable namespace becomes a bare Name.
func ParseKey(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}
	}
	ns, name, ok := strings.Cut(s, ".")
	if !ok {
		return Key{Name: s}
	}
	ns = strings.TrimSpace(ns)
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return Key{Name: s}
	case ns == "":
		return Key{Name: name}
	}
	return Key{Namespace: ns, Name: name}
}

func (k Key) String() string {
	switch {
	case k.Namespace == "":
		return k.Name
	case k.Name == "":
		return k.Namespace
	}
	return k.Namespace + "." + k.Name
}

// IsZero reports whether k is the empty key used by unnamed calls.
func (k Key) IsZero() bool {
	return k == Key{}
}
