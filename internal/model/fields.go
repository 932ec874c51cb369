package model

import (
	"strings"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/errs"
)

// Raw is an untyped upstream object.
type Raw = map[string]any

// Fields is a canonical-keyed bag of loosely-typed values a record is built from.
type Fields map[string]any

// KeyMap maps upstream keys to canonical keys for one record type.
type KeyMap map[string]string

// Apply renames the keys of raw per the map. Unmapped upstream keys are dropped
// and missing ones are simply absent.
func (m KeyMap) Apply(raw Raw) Fields {
	f := make(Fields, len(m))
	for from, to := range m {
		v, ok := raw[from]
		if !ok || v == nil {
			continue
		}
		if _, taken := f[to]; taken {
			continue
		}
		f[to] = v
	}
	return f
}

// With sets key to v when v is non-nil and returns f.
func (f Fields) With(key string, v any) Fields {
	if v == nil {
		return f
	}
	if p, ok := v.(*float64); ok && p == nil {
		return f
	}
	f[key] = v
	return f
}

// Default sets key to v only when key is absent.
func (f Fields) Default(key string, v any) Fields {
	if _, ok := f[key]; !ok && v != nil {
		f[key] = v
	}
	return f
}

func (f Fields) String(key string) string { return coerce.String(f[key]) }

func (f Fields) Number(key string) *float64 { return coerce.Numeric(f[key]) }

func (f Fields) Integer(key string) *int64 { return coerce.Integer(f[key]) }

func (f Fields) Timestamp(key string) *string { return coerce.Timestamp(f[key]) }

func (f Fields) Bool(key string) *bool { return coerce.Bool(f[key]) }

// OptionalString returns nil for absent or blank values.
func (f Fields) OptionalString(key string) *string {
	s := f.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Strings returns a string list, accepting []string or []any.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := coerce.String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// List returns a nested list of objects, skipping anything that is not one.
func (f Fields) List(key string) []Raw {
	items, ok := f[key].([]any)
	if !ok {
		if raws, ok := f[key].([]Raw); ok {
			return raws
		}
		return nil
	}
	out := make([]Raw, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func missing(record, field string) error {
	return errs.Validation("%s: %s is required", record, field)
}

func invalid(record, reason string) error {
	return errs.Validation("%s: %s", record, reason)
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}

// lower normalizes enumerations.
func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
