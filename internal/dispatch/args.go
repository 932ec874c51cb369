package dispatch

import (
	"encoding/json"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/errs"
)

// Args is the loose argument bag a tool is called with.
type Args map[string]any

// String returns the named optional text argument. Numbers are accepted and
// rendered verbatim so "150" and 150 mean the same strike.
func (a Args) String(key string) (string, error) {
	switch v := a[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number, float64, int, int64:
		return coerce.String(v), nil
	default:
		return "", errs.InvalidArgument("%s must be a string", key)
	}
}

// Required is String plus a presence check.
func (a Args) Required(key string) (string, error) {
	s, err := a.String(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errs.InvalidArgument("%s is required", key)
	}
	return s, nil
}

// Strings returns the named list-of-text argument; nil when absent.
func (a Args) Strings(key string) ([]string, error) {
	switch v := a[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errs.InvalidArgument("%s must be an array of strings", key)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errs.InvalidArgument("%s must be an array of strings", key)
	}
}
