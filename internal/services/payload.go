package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/diewo77/go-fieldops/i18n"
)

// Payload is a decoded JSON object body. Keys are kept raw so callers can
// tell an absent field from one set to null.
type Payload map[string]json.RawMessage

// ValidationError is a rejected payload. Code is an i18n catalog key and Args
// fill its placeholders.
type ValidationError struct {
	Code string
	Args []any
}

func (e *ValidationError) Error() string { return e.Message(i18n.DefaultLang) }

// Message renders the error in lang.
func (e *ValidationError) Message(lang string) string { return i18n.Tf(lang, e.Code, e.Args...) }

func invalid(code string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Args: args}
}

// Has reports whether key was sent, even as null.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Truthy reports whether key holds a value other than null, false, 0, "",
// [] or {}.
func (p Payload) Truthy(key string) bool {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return v != nil
}

// String reads key as text. Numbers are accepted as their literal text so
// numeric client ids round-trip; null reads as "".
func (p Payload) String(key string) (string, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", invalid("field_invalid", key)
}

// NullableString reads key as text, keeping null as nil.
func (p Payload) NullableString(key string) (*string, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	s, err := p.String(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Float reads key as a number; null reads as 0.
func (p Payload) Float(key string) (float64, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, invalid("field_invalid", key)
	}
	return f, nil
}

// StringList reads key as a list of strings; null reads as empty.
func (p Payload) StringList(key string) ([]string, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalid("field_invalid", key)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339, naive ISO 8601 (read as UTC) or a bare date.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Time reads key as a timestamp, keeping null and "" as nil.
func (p Payload) Time(key string) (*time.Time, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, invalid("date_invalid", key)
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, ok := ParseTime(s)
	if !ok {
		return nil, invalid("date_invalid", key)
	}
	return &t, nil
}
