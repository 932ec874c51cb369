package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RobinhoodMCP/internal/errs"
)

var quoteKeys = KeyMap{
	"symbol":                  "symbol",
	"last_trade_price":        "last_price",
	"bid_price":               "bid",
	"ask_price":               "ask",
	"adjusted_previous_close": "previous_close",
	"updated_at":              "timestamp",
}

func TestKeyMap_ApplyDropsUnmapped(t *testing.T) {
	f := quoteKeys.Apply(Raw{
		"symbol":           "AAPL",
		"last_trade_price": "150.50",
		"trading_halted":   false,
		"bid_price":        nil,
	})
	assert.Equal(t, Fields{"symbol": "AAPL", "last_price": "150.50"}, f)
}

func TestNewQuote_StringPrice(t *testing.T) {
	q, err := NewQuote(quoteKeys.Apply(Raw{
		"symbol":           "aapl",
		"last_trade_price": "150.50",
		"bid_price":        "150.40",
		"ask_price":        "-1",
		"updated_at":       "2026-02-11T10:00:00Z",
	}))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 150.5, q.LastPrice)
	require.NotNil(t, q.Bid)
	assert.Equal(t, 150.4, *q.Bid)
	assert.Nil(t, q.Ask)
	assert.Nil(t, q.PreviousClose)
	assert.Equal(t, "2026-02-11T10:00:00Z", q.Timestamp)
}

func TestNewQuote_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   Fields
	}{
		{"no symbol", Fields{"last_price": 1, "timestamp": "2026-02-11T10:00:00Z"}},
		{"no price", Fields{"symbol": "AAPL", "timestamp": "2026-02-11T10:00:00Z"}},
		{"unparsable price", Fields{"symbol": "AAPL", "last_price": "n/a", "timestamp": "2026-02-11T10:00:00Z"}},
		{"negative price", Fields{"symbol": "AAPL", "last_price": -1, "timestamp": "2026-02-11T10:00:00Z"}},
		{"no timestamp", Fields{"symbol": "AAPL", "last_price": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuote(tt.in)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
		})
	}
}

func TestNewCandle(t *testing.T) {
	c, err := NewCandle(Fields{
		"timestamp": "2026-02-11T10:00:00Z",
		"open":      "10", "high": "12", "low": "9", "close": "11", "volume": 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, Candle{Timestamp: "2026-02-11T10:00:00Z", Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000}, c)

	_, err = NewCandle(Fields{
		"timestamp": "2026-02-11T10:00:00Z",
		"open":      "13", "high": "12", "low": "9", "close": "11", "volume": 1000,
	})
	assert.True(t, errs.Is(err, errs.KindValidation))

	_, err = NewCandle(Fields{
		"timestamp": "2026-02-11T10:00:00Z",
		"open":      "10", "high": "12", "low": "9", "close": "11", "volume": -1,
	})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestNewOptionContract(t *testing.T) {
	c, err := NewOptionContract(Fields{
		"symbol": "aapl", "expiration": "2026-03-20", "strike": "150.0000", "type": "CALL",
		"open_interest": "1200", "delta": "0.52", "bid": "1.10",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", c.Symbol)
	assert.Equal(t, "call", c.Type)
	assert.Equal(t, 150.0, c.Strike)
	assert.Equal(t, int64(1200), *c.OpenInterest)
	assert.Equal(t, 0.52, *c.Delta)
	assert.Nil(t, c.Volume)

	_, err = NewOptionContract(Fields{"symbol": "AAPL", "expiration": "2026-03-20", "strike": 0, "type": "put"})
	assert.True(t, errs.Is(err, errs.KindValidation))
	_, err = NewOptionContract(Fields{"symbol": "AAPL", "expiration": "2026-03-20", "strike": 10, "type": "straddle"})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestNewWatchlist_DedupesInOrder(t *testing.T) {
	w, err := NewWatchlist(Fields{"id": "1", "name": "Tech", "symbols": []any{"msft", "AAPL", "MSFT", "", "nvda"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "AAPL", "NVDA"}, w.Symbols)

	w, err = NewWatchlist(Fields{"id": "2", "name": "Empty"})
	require.NoError(t, err)
	assert.NotNil(t, w.Symbols)
	assert.Empty(t, w.Symbols)
}

func TestNewFundamentals(t *testing.T) {
	f, err := NewFundamentals(Fields{})
	require.NoError(t, err)
	assert.Equal(t, Fundamentals{}, f)

	_, err = NewFundamentals(Fields{"week_52_high": 10, "week_52_low": 20})
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestNewNewsItem(t *testing.T) {
	n, err := NewNewsItem(Fields{
		"id": "abc", "headline": "Apple beats", "published_at": "2026-02-11T10:00:00.000000Z", "source": "",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-11T10:00:00Z", n.PublishedAt)
	assert.Nil(t, n.Source)

	_, err = NewNewsItem(Fields{"id": "abc", "published_at": "2026-02-11T10:00:00Z"})
	assert.Error(t, err)
}

func TestNewStockOrder_Executions(t *testing.T) {
	o, err := NewStockOrder(Fields{
		"id": "o1", "symbol": "aapl", "quantity": "10.00000000", "extended_hours": false,
		"executions": []any{
			map[string]any{"price": "150.25", "quantity": "10.00000000", "timestamp": "2026-01-15T14:30:01.123000Z"},
			"junk",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", *o.Symbol)
	require.Len(t, o.Executions, 1)
	assert.Equal(t, 150.25, *o.Executions[0].Price)
	assert.Equal(t, "2026-01-15T14:30:01.123Z", *o.Executions[0].Timestamp)
	assert.False(t, *o.ExtendedHours)
}

func TestOrderHistory_EmptyListsNotNull(t *testing.T) {
	b, err := json.Marshal(NewOrderHistory(nil, nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"stock_orders":[],"option_orders":[],"crypto_orders":[]}`, string(b))
}

func TestJSON_OptionalKeysPresent(t *testing.T) {
	q, err := NewQuote(Fields{"symbol": "AAPL", "last_price": 1, "timestamp": "2026-02-11T10:00:00Z"})
	require.NoError(t, err)
	b, err := json.Marshal(q)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "bid")
	assert.Nil(t, m["bid"])

	b, err = json.Marshal(Position{Symbol: "AAPL", Quantity: 1, AverageCost: 2})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"market_value":null`)
}

func TestJSON_RoundTrip(t *testing.T) {
	q, err := NewQuote(Fields{
		"symbol": "AAPL", "last_price": "150.50", "bid": "150.40", "previous_close": 148,
		"change_percent": 1.6891, "timestamp": "2026-02-11T10:00:00Z",
	})
	require.NoError(t, err)
	c, err := NewOptionContract(Fields{
		"symbol": "AAPL", "expiration": "2026-03-20", "strike": 150, "type": "put", "volume": 12, "vega": 0.1,
	})
	require.NoError(t, err)
	w, err := NewWatchlist(Fields{"id": "1", "name": "Tech", "symbols": []string{"AAPL"}})
	require.NoError(t, err)

	roundTrip(t, q)
	roundTrip(t, c)
	roundTrip(t, w)
	roundTrip(t, PortfolioSummary{Equity: 10000.5, Cash: 1, BuyingPower: 2})
}

func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var back T
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, v, back)
}
