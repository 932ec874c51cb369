package service

import (
	"context"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

// unknownSymbol labels positions whose instrument could not be resolved.
const unknownSymbol = "UNKNOWN"

// Portfolio serves account balances and equity positions.
type Portfolio struct{ base }

// Summary combines the portfolio and account profiles. day_change is equity
// minus the previous close equity and doubles as unrealized P/L.
func (s *Portfolio) Summary(ctx context.Context) (model.PortfolioSummary, error) {
	if err := s.ensure(ctx); err != nil {
		return model.PortfolioSummary{}, err
	}
	portfolio, err := s.call(ctx, "fetch portfolio", upstream.MethodPortfolioProfile, nil)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	account, err := s.call(ctx, "fetch account", upstream.MethodAccountProfile, nil)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	p, _ := portfolio.(map[string]any)
	a, _ := account.(map[string]any)

	f := model.Fields{
		"equity":       p["equity"],
		"cash":         a["cash"],
		"buying_power": a["buying_power"],
	}
	equity, okEquity := coerce.Decimal(p["equity"])
	prev, okPrev := coerce.Decimal(p["equity_previous_close"])
	if okEquity && okPrev {
		change := equity.Sub(prev).InexactFloat64()
		f["day_change"] = change
		f["unrealized_pl"] = change
	}
	return single("portfolio summary", f, model.NewPortfolioSummary)
}

// Positions lists open equity positions, optionally restricted to symbols.
// Market value comes from one batched quote lookup; a position without a
// quote keeps market_value and unrealized_pl null.
func (s *Portfolio) Positions(ctx context.Context, symbols []string) ([]model.Position, error) {
	filter, err := normalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch positions", upstream.MethodPositions, nil)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(filter))
	for _, sym := range filter {
		wanted[sym] = true
	}
	resolve := s.instrumentSymbols(ctx)

	type held struct {
		symbol string
		raw    model.Raw
	}
	var kept []held
	var quoteSymbols []string
	seen := map[string]bool{}
	for _, raw := range objects(data) {
		sym := upper(coerce.String(raw["symbol"]))
		if sym == "" {
			sym = resolve(coerce.String(raw["instrument"]))
		}
		if len(wanted) > 0 && !wanted[sym] {
			continue
		}
		if sym == "" {
			sym = unknownSymbol
		}
		kept = append(kept, held{symbol: sym, raw: raw})
		if sym != unknownSymbol && !seen[sym] {
			seen[sym] = true
			quoteSymbols = append(quoteSymbols, sym)
		}
	}

	prices, err := s.lastPrices(ctx, quoteSymbols)
	if err != nil {
		return nil, err
	}

	raws := make([]model.Raw, 0, len(kept))
	for _, h := range kept {
		raw := model.Raw{"symbol": h.symbol}
		for k, v := range h.raw {
			if _, ok := raw[k]; !ok {
				raw[k] = v
			}
		}
		raws = append(raws, raw)
	}
	fields := func(raw model.Raw) model.Fields {
		f := positionKeys.Apply(raw)
		f["symbol"] = raw["symbol"]
		price, ok := prices[coerce.String(raw["symbol"])]
		qty, okQty := coerce.Decimal(raw["quantity"])
		if !ok || !okQty {
			return f
		}
		value := qty.Mul(price)
		f["market_value"] = value.InexactFloat64()
		if cost, ok := coerce.Decimal(raw["average_buy_price"]); ok {
			f["unrealized_pl"] = value.Sub(qty.Mul(cost)).InexactFloat64()
		}
		return f
	}
	return collect("positions", raws, fields, model.NewPosition), nil
}

// instrumentSymbols resolves instrument URLs to symbols, memoized for the
// duration of one call. Failures resolve to "".
func (b base) instrumentSymbols(ctx context.Context) func(url string) string {
	cache := map[string]string{}
	return func(url string) string {
		if url == "" {
			return ""
		}
		if sym, ok := cache[url]; ok {
			return sym
		}
		sym := ""
		inst, err := b.up.Call(ctx, upstream.MethodInstrument, upstream.Args{"url": url})
		if err != nil {
			logger().Debug("instrument lookup failed", "url", url, "error", err)
		} else if m, ok := inst.(map[string]any); ok {
			sym = upper(coerce.String(m["symbol"]))
		}
		cache[url] = sym
		return sym
	}
}
