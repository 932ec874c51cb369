package model

import "strings"

// PortfolioSummary is the account-level balance view.
type PortfolioSummary struct {
	Equity       float64  `json:"equity"`
	Cash         float64  `json:"cash"`
	BuyingPower  float64  `json:"buying_power"`
	UnrealizedPL *float64 `json:"unrealized_pl"`
	DayChange    *float64 `json:"day_change"`
}

func NewPortfolioSummary(f Fields) (PortfolioSummary, error) {
	var vals [3]float64
	for i, key := range []string{"equity", "cash", "buying_power"} {
		p := f.Number(key)
		if p == nil {
			return PortfolioSummary{}, missing("portfolio summary", key)
		}
		vals[i] = *p
	}
	return PortfolioSummary{
		Equity:       vals[0],
		Cash:         vals[1],
		BuyingPower:  vals[2],
		UnrealizedPL: f.Number("unrealized_pl"),
		DayChange:    f.Number("day_change"),
	}, nil
}

// Position is one equity holding. MarketValue is null when no quote was
// available; the key is always emitted.
type Position struct {
	Symbol       string   `json:"symbol"`
	Quantity     float64  `json:"quantity"`
	AverageCost  float64  `json:"average_cost"`
	MarketValue  *float64 `json:"market_value"`
	UnrealizedPL *float64 `json:"unrealized_pl"`
}

func NewPosition(f Fields) (Position, error) {
	symbol := strings.ToUpper(f.String("symbol"))
	if symbol == "" {
		return Position{}, missing("position", "symbol")
	}
	qty := f.Number("quantity")
	if qty == nil {
		return Position{}, missing("position", "quantity")
	}
	cost := f.Number("average_cost")
	if cost == nil {
		return Position{}, missing("position", "average_cost")
	}
	return Position{
		Symbol:       symbol,
		Quantity:     *qty,
		AverageCost:  *cost,
		MarketValue:  f.Number("market_value"),
		UnrealizedPL: f.Number("unrealized_pl"),
	}, nil
}
