package model

import "strings"

// OptionContract is one listed option with optional market data.
type OptionContract struct {
	Symbol              string   `json:"symbol"`
	Expiration          string   `json:"expiration"`
	Strike              float64  `json:"strike"`
	Type                string   `json:"type"`
	Bid                 *float64 `json:"bid"`
	Ask                 *float64 `json:"ask"`
	OpenInterest        *int64   `json:"open_interest"`
	Volume              *int64   `json:"volume"`
	MarkPrice           *float64 `json:"mark_price"`
	LastTradePrice      *float64 `json:"last_trade_price"`
	ImpliedVolatility   *float64 `json:"implied_volatility"`
	Delta               *float64 `json:"delta"`
	Gamma               *float64 `json:"gamma"`
	Theta               *float64 `json:"theta"`
	Vega                *float64 `json:"vega"`
	Rho                 *float64 `json:"rho"`
	ChanceOfProfitShort *float64 `json:"chance_of_profit_short"`
	ChanceOfProfitLong  *float64 `json:"chance_of_profit_long"`
}

// OptionTypes are the accepted contract types.
var OptionTypes = []string{"call", "put"}

func NewOptionContract(f Fields) (OptionContract, error) {
	symbol := strings.ToUpper(f.String("symbol"))
	if symbol == "" {
		return OptionContract{}, missing("option contract", "symbol")
	}
	expiration := f.String("expiration")
	if expiration == "" {
		return OptionContract{}, missing("option contract", "expiration")
	}
	strike := f.Number("strike")
	if strike == nil {
		return OptionContract{}, missing("option contract", "strike")
	}
	if *strike <= 0 {
		return OptionContract{}, invalid("option contract", "strike must be positive")
	}
	typ := lower(f.String("type"))
	if typ != "call" && typ != "put" {
		return OptionContract{}, invalid("option contract", "type must be call or put")
	}
	return OptionContract{
		Symbol:              symbol,
		Expiration:          expiration,
		Strike:              *strike,
		Type:                typ,
		Bid:                 nonNegative(f.Number("bid")),
		Ask:                 nonNegative(f.Number("ask")),
		OpenInterest:        f.Integer("open_interest"),
		Volume:              f.Integer("volume"),
		MarkPrice:           nonNegative(f.Number("mark_price")),
		LastTradePrice:      nonNegative(f.Number("last_trade_price")),
		ImpliedVolatility:   f.Number("implied_volatility"),
		Delta:               f.Number("delta"),
		Gamma:               f.Number("gamma"),
		Theta:               f.Number("theta"),
		Vega:                f.Number("vega"),
		Rho:                 f.Number("rho"),
		ChanceOfProfitShort: f.Number("chance_of_profit_short"),
		ChanceOfProfitLong:  f.Number("chance_of_profit_long"),
	}, nil
}

// OptionPosition is an open option holding. Contract details are null when
// the instrument could not be resolved.
type OptionPosition struct {
	Symbol         *string  `json:"symbol"`
	ExpirationDate *string  `json:"expiration_date"`
	StrikePrice    *float64 `json:"strike_price"`
	OptionType     *string  `json:"option_type"`
	Direction      *string  `json:"direction"`
	Quantity       *float64 `json:"quantity"`
	AveragePrice   *float64 `json:"average_price"`
	CreatedAt      *string  `json:"created_at"`
	UpdatedAt      *string  `json:"updated_at"`
}

func NewOptionPosition(f Fields) (OptionPosition, error) {
	p := OptionPosition{
		Symbol:         f.OptionalString("symbol"),
		ExpirationDate: f.OptionalString("expiration_date"),
		StrikePrice:    f.Number("strike_price"),
		OptionType:     f.OptionalString("option_type"),
		Direction:      f.OptionalString("direction"),
		Quantity:       f.Number("quantity"),
		AveragePrice:   f.Number("average_price"),
		CreatedAt:      f.Timestamp("created_at"),
		UpdatedAt:      f.Timestamp("updated_at"),
	}
	if p.Symbol != nil {
		s := strings.ToUpper(*p.Symbol)
		p.Symbol = &s
	}
	if p.OptionType != nil {
		t := lower(*p.OptionType)
		p.OptionType = &t
	}
	return p, nil
}
