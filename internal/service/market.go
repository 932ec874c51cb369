package service

import (
	"context"

	"github.com/shopspring/decimal"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

var (
	Intervals = []string{"5minute", "10minute", "hour", "day", "week"}
	Spans     = []string{"day", "week", "month", "3month", "year", "5year"}
	Bounds    = []string{"extended", "trading", "regular"}
)

const (
	DefaultInterval = "hour"
	DefaultSpan     = "week"
	DefaultBounds   = "regular"
)

var hundred = decimal.NewFromInt(100)

// Market serves quotes and price history.
type Market struct{ base }

// CurrentPrice returns one quote per distinct symbol the upstream knows.
func (s *Market) CurrentPrice(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, errs.InvalidArgument("at least one symbol is required")
	}
	syms, err := normalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch quotes", upstream.MethodQuotes, upstream.Args{"symbols": syms})
	if err != nil {
		return nil, err
	}
	return collect("quotes", objects(data), quoteFields, model.NewQuote), nil
}

func quoteFields(raw model.Raw) model.Fields {
	f := quoteKeys.Apply(raw)
	return f.With("change_percent", changePercent(raw["last_trade_price"], raw["previous_close"]))
}

// changePercent is (last-prev)/prev*100, or nil when either side is missing
// or prev is zero.
func changePercent(last, prev any) *float64 {
	l, ok := coerce.Decimal(last)
	if !ok {
		return nil
	}
	p, ok := coerce.Decimal(prev)
	if !ok || p.IsZero() {
		return nil
	}
	pct := l.Sub(p).Div(p).Mul(hundred).InexactFloat64()
	return &pct
}

// PriceHistory returns candles for symbol. Enumerations are checked before any
// session or network activity.
func (s *Market) PriceHistory(ctx context.Context, symbol, interval, span, bounds string) ([]model.Candle, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if interval, err = oneOf("interval", interval, DefaultInterval, Intervals); err != nil {
		return nil, err
	}
	if span, err = oneOf("span", span, DefaultSpan, Spans); err != nil {
		return nil, err
	}
	if bounds, err = oneOf("bounds", bounds, DefaultBounds, Bounds); err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch price history", upstream.MethodHistoricals, upstream.Args{
		"symbol": sym, "interval": interval, "span": span, "bounds": bounds,
	})
	if err != nil {
		return nil, err
	}
	return collect("historicals", objects(data), candleKeys.Apply, model.NewCandle), nil
}

// lastPrices fetches last trade prices for symbols in one call. Missing or
// unparsable prices are absent from the result.
func (b base) lastPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}
	data, err := b.call(ctx, "fetch quotes", upstream.MethodQuotes, upstream.Args{"symbols": symbols})
	if err != nil {
		return nil, err
	}
	for _, raw := range objects(data) {
		sym := model.Fields(raw).String("symbol")
		if sym == "" {
			continue
		}
		if price, ok := coerce.Decimal(raw["last_trade_price"]); ok {
			out[upper(sym)] = price
		}
	}
	return out, nil
}
