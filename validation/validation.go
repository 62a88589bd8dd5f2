package validation

import (
	"slices"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Has reports whether field has a recorded violation.
func (v Violations) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Field pairs a payload key with its submitted value.
type Field struct {
	Name  string
	Value string
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// FirstMissing returns the name of the first blank field, in argument order.
func FirstMissing(fields ...Field) (string, bool) {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			return f.Name, true
		}
	}
	return "", false
}

// OneOf records a violation when value is not in allowed. Blank values are
// left to Required.
func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	if !slices.Contains(allowed, value) {
		v[field] = "not_allowed"
	}
}
