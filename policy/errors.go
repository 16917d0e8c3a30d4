package policy

import "fmt"

// NormalizeError indicates a fundamentally invalid retry configuration.
type NormalizeError struct {
	Field string
	Value string
}

func (e *NormalizeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("promiseretry: invalid retry config: %s=%q", e.Field, e.Value)
}
