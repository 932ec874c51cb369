package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

var (
	// listing mode keeps strikes within this band around the last price
	nearMoneyLow  = decimal.RequireFromString("0.80")
	nearMoneyHigh = decimal.RequireFromString("1.20")
)

// Options serves option chains and option holdings.
type Options struct{ base }

// Chain lists contracts for one expiration, the nearest when expiration is
// empty. With a strike it returns just the matching contracts; without, it
// keeps strikes near the money when the current price is known.
func (s *Options) Chain(ctx context.Context, symbol, expiration, optionType, strike string) ([]model.OptionContract, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if expiration, err = isoDate("expiration_date", expiration); err != nil {
		return nil, err
	}
	if optionType, err = oneOf("option_type", optionType, "", model.OptionTypes); err != nil {
		return nil, err
	}
	var strikeArg string
	if strings.TrimSpace(strike) != "" {
		d, ok := coerce.Decimal(strike)
		if !ok || !d.IsPositive() {
			return nil, errs.InvalidArgument("strike_price must be a positive number")
		}
		strikeArg = d.StringFixed(4)
	}

	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	if expiration == "" {
		chain, err := s.call(ctx, "fetch option chain", upstream.MethodOptionChain, upstream.Args{"symbol": sym})
		if err != nil {
			return nil, err
		}
		chainMap, _ := chain.(map[string]any)
		expiration = nearestExpiration(model.Fields(chainMap).Strings("expiration_dates"), time.Now().UTC())
		if expiration == "" {
			return []model.OptionContract{}, nil
		}
	}

	args := upstream.Args{"symbol": sym, "expiration_date": expiration}
	if optionType != "" {
		args["type"] = optionType
	}
	if strikeArg != "" {
		args["strike_price"] = strikeArg
	}
	data, err := s.call(ctx, "fetch option contracts", upstream.MethodOptionContracts, args)
	if err != nil {
		return nil, err
	}
	raws := objects(data)

	if strikeArg == "" {
		raws = s.nearTheMoney(ctx, sym, raws)
	}
	fields := func(raw model.Raw) model.Fields {
		f := optionContractKeys.Apply(raw)
		f.Default("mark_price", raw["mark_price"])
		f.Default("symbol", sym)
		f.Default("expiration", expiration)
		return f
	}
	return collect("option contracts", raws, fields, model.NewOptionContract), nil
}

// nearTheMoney filters to strikes within the band around the last price. When
// no price is available the chain is returned unfiltered.
func (s *Options) nearTheMoney(ctx context.Context, symbol string, raws []model.Raw) []model.Raw {
	prices, err := s.lastPrices(ctx, []string{symbol})
	if err != nil {
		logger().Debug("current price unavailable, skipping strike filter", "symbol", symbol, "error", err)
		return raws
	}
	price, ok := prices[symbol]
	if !ok || !price.IsPositive() {
		return raws
	}
	lo, hi := price.Mul(nearMoneyLow), price.Mul(nearMoneyHigh)
	out := make([]model.Raw, 0, len(raws))
	for _, raw := range raws {
		strike, ok := coerce.Decimal(raw["strike_price"])
		if ok && (strike.LessThan(lo) || strike.GreaterThan(hi)) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// nearestExpiration returns the earliest date not before today, falling back
// to the earliest listed.
func nearestExpiration(dates []string, now time.Time) string {
	if len(dates) == 0 {
		return ""
	}
	sorted := append([]string(nil), dates...)
	sort.Strings(sorted)
	today := now.Format(time.DateOnly)
	for _, d := range sorted {
		if d >= today {
			return d
		}
	}
	return sorted[0]
}

// Positions lists open option holdings. Contract details come from the option
// instrument; when that lookup fails the position is kept without them.
func (s *Options) Positions(ctx context.Context) ([]model.OptionPosition, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch option positions", upstream.MethodOptionPositions, nil)
	if err != nil {
		return nil, err
	}
	fields := func(raw model.Raw) model.Fields {
		f := optionPositionKeys.Apply(raw)
		id := optionID(raw)
		if id == "" {
			return f
		}
		inst, err := s.up.Call(ctx, upstream.MethodOptionInstrument, upstream.Args{"id": id})
		if err != nil {
			logger().Warn("option instrument lookup failed", "id", id, "error", err)
			return f
		}
		instMap, _ := inst.(map[string]any)
		for k, v := range optionInstrumentKeys.Apply(instMap) {
			f[k] = v
		}
		f.Default("symbol", instMap["chain_symbol"])
		return f
	}
	return collect("option positions", objects(data), fields, model.NewOptionPosition), nil
}

// optionID prefers the explicit id and falls back to the last path segment of
// the option URL.
func optionID(raw model.Raw) string {
	if id := coerce.String(raw["option_id"]); id != "" {
		return id
	}
	u := strings.TrimRight(coerce.String(raw["option"]), "/")
	if u == "" {
		return ""
	}
	return u[strings.LastIndex(u, "/")+1:]
}
