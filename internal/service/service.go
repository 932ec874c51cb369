// Package service implements the read-only brokerage operations. Each
// operation validates its input, ensures a session exactly once, calls the
// upstream capability and normalizes the payload into model records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

// Sessions is the part of the session manager services depend on.
type Sessions interface {
	EnsureSession(ctx context.Context, mfaCode string) error
}

// Services bundles every domain service around one session and capability.
type Services struct {
	Market       *Market
	Options      *Options
	Portfolio    *Portfolio
	Watchlists   *Watchlists
	News         *News
	Fundamentals *Fundamentals
	Orders       *Orders
}

// New wires all services.
func New(sess Sessions, up upstream.Caller) *Services {
	b := base{sess: sess, up: up}
	return &Services{
		Market:       &Market{b},
		Options:      &Options{b},
		Portfolio:    &Portfolio{b},
		Watchlists:   &Watchlists{b},
		News:         &News{b},
		Fundamentals: &Fundamentals{b},
		Orders:       &Orders{b},
	}
}

type base struct {
	sess Sessions
	up   upstream.Caller
}

// ensure propagates the session error unchanged.
func (b base) ensure(ctx context.Context) error {
	return b.sess.EnsureSession(ctx, "")
}

func (b base) call(ctx context.Context, op, method string, args upstream.Args) (any, error) {
	v, err := b.up.Call(ctx, method, args)
	if err != nil {
		return nil, upstreamError(op, err)
	}
	return v, nil
}

// upstreamError maps a capability failure onto the closed error set.
func upstreamError(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, upstream.ErrUnauthorized):
		return errs.Wrap(errs.KindAuthRequired, err, "%s: Robinhood session is no longer valid", op)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.As(err, &netErr):
		return errs.Network(err, "%s", op)
	default:
		return errs.Upstream(err, "%s", op)
	}
}

// objects returns the object entries of a list payload, dropping nil and
// non-object entries.
func objects(v any) []model.Raw {
	switch items := v.(type) {
	case []any:
		out := make([]model.Raw, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok && m != nil {
				out = append(out, m)
			}
		}
		return out
	case []model.Raw:
		out := make([]model.Raw, 0, len(items))
		for _, m := range items {
			if m != nil {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		if items == nil {
			return nil
		}
		return []model.Raw{items}
	default:
		return nil
	}
}

// collect builds one record per entry. Entries that fail validation are
// skipped with a warning so one bad row does not hide the rest.
func collect[T any](op string, raws []model.Raw, fields func(model.Raw) model.Fields, build func(model.Fields) (T, error)) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		rec, err := build(fields(raw))
		if err != nil {
			logger().Warn("skipping malformed record", "op", op, "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// single builds exactly one record; a validation failure is an upstream error.
func single[T any](op string, f model.Fields, build func(model.Fields) (T, error)) (T, error) {
	rec, err := build(f)
	if err != nil {
		var zero T
		return zero, errs.Upstream(err, "%s: malformed response", op)
	}
	return rec, nil
}

func normalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", errs.InvalidArgument("symbol is required")
	}
	return s, nil
}

// normalizeSymbols upper-cases, rejects blanks and removes repeats in order.
func normalizeSymbols(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		sym, err := normalizeSymbol(s)
		if err != nil {
			return nil, errs.InvalidArgument("symbols must not contain blank entries")
		}
		if seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out, nil
}

// oneOf validates value against allowed, substituting def when value is blank.
func oneOf(name, value, def string, allowed []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return def, nil
	}
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", errs.InvalidArgument("invalid %s %q; must be one of: %s", name, value, strings.Join(allowed, ", "))
}

// isoDate validates an optional YYYY-MM-DD argument.
func isoDate(name, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(time.DateOnly, v); err != nil {
		return "", errs.InvalidArgument("%s must be a date in YYYY-MM-DD format", name)
	}
	return v, nil
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func logger() *slog.Logger {
	return slog.Default().With("component", "service")
}
