// Package coerce converts loosely-typed upstream scalars into canonical values.
// None of the functions here panic or return errors; unusable input yields nil.
package coerce

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalLayout is the UTC timestamp layout of every record.
const CanonicalLayout = "2006-01-02T15:04:05.999999999Z"

// timestamp layouts tried in order; inputs without a zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Numeric parses numbers and numeric strings. NaN and infinities are rejected
// because they cannot be serialized.
func Numeric(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	case *float64:
		if n == nil {
			return nil
		}
		f = *n
	case json.Number:
		return parseString(string(n))
	case string:
		return parseString(n)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Decimal is Numeric for callers doing money arithmetic.
func Decimal(v any) (decimal.Decimal, bool) {
	switch s := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(s.String())
		return d, err == nil
	case decimal.Decimal:
		return s, true
	}
	f := Numeric(v)
	if f == nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*f), true
}

// Integer parses like Numeric and truncates toward zero.
func Integer(v any) *int64 {
	f := Numeric(v)
	if f == nil {
		return nil
	}
	t := math.Trunc(*f)
	if t > math.MaxInt64 || t < math.MinInt64 {
		return nil
	}
	i := int64(t)
	return &i
}

// Timestamp re-emits an ISO-8601-like value as canonical UTC. Strings that do
// not parse are returned verbatim since upstream formats vary.
func Timestamp(v any) *string {
	var out string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		parsed, ok := parseTime(s)
		if !ok {
			return &t
		}
		out = parsed.UTC().Format(CanonicalLayout)
	case time.Time:
		if t.IsZero() {
			return nil
		}
		out = t.UTC().Format(CanonicalLayout)
	case *string:
		if t == nil {
			return nil
		}
		return Timestamp(*t)
	default:
		// epoch seconds
		if sec := Integer(v); sec != nil {
			out = time.Unix(*sec, 0).UTC().Format(CanonicalLayout)
		} else {
			out = fmt.Sprint(v)
		}
	}
	return &out
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// String renders scalars as text; nil becomes "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// Bool accepts booleans and the usual textual spellings.
func Bool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}
