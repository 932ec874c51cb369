package model

import "strings"

// Quote is the latest trade snapshot for one symbol.
type Quote struct {
	Symbol        string   `json:"symbol"`
	LastPrice     float64  `json:"last_price"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	PreviousClose *float64 `json:"previous_close"`
	ChangePercent *float64 `json:"change_percent"`
	Timestamp     string   `json:"timestamp"`
}

// NewQuote validates f into a Quote. Negative bid/ask are dropped; a negative
// last price is rejected.
func NewQuote(f Fields) (Quote, error) {
	symbol := strings.ToUpper(f.String("symbol"))
	if symbol == "" {
		return Quote{}, missing("quote", "symbol")
	}
	last := f.Number("last_price")
	if last == nil {
		return Quote{}, missing("quote", "last_price")
	}
	if *last < 0 {
		return Quote{}, invalid("quote", "last_price must be non-negative")
	}
	ts := f.Timestamp("timestamp")
	if ts == nil {
		return Quote{}, missing("quote", "timestamp")
	}
	return Quote{
		Symbol:        symbol,
		LastPrice:     *last,
		Bid:           nonNegative(f.Number("bid")),
		Ask:           nonNegative(f.Number("ask")),
		PreviousClose: nonNegative(f.Number("previous_close")),
		ChangePercent: f.Number("change_percent"),
		Timestamp:     *ts,
	}, nil
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func NewCandle(f Fields) (Candle, error) {
	ts := f.Timestamp("timestamp")
	if ts == nil {
		return Candle{}, missing("candle", "timestamp")
	}
	var vals [5]float64
	for i, key := range []string{"open", "high", "low", "close", "volume"} {
		p := f.Number(key)
		if p == nil {
			return Candle{}, missing("candle", key)
		}
		vals[i] = *p
	}
	c := Candle{Timestamp: *ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	if c.Low > c.High || c.Open < c.Low || c.Open > c.High || c.Close < c.Low || c.Close > c.High {
		return Candle{}, invalid("candle", "prices outside [low, high]")
	}
	if c.Volume < 0 {
		return Candle{}, invalid("candle", "volume must be non-negative")
	}
	return c, nil
}
