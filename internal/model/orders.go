package model

import "strings"

// OrderExecution is one fill of an order.
type OrderExecution struct {
	ID             *string  `json:"id"`
	Price          *float64 `json:"price"`
	Quantity       *float64 `json:"quantity"`
	SettlementDate *string  `json:"settlement_date"`
	Timestamp      *string  `json:"timestamp"`
}

func newExecutions(f Fields) []OrderExecution {
	raws := f.List("executions")
	out := make([]OrderExecution, 0, len(raws))
	for _, raw := range raws {
		ef := Fields(raw)
		out = append(out, OrderExecution{
			ID:             ef.OptionalString("id"),
			Price:          ef.Number("price"),
			Quantity:       ef.Number("quantity"),
			SettlementDate: ef.OptionalString("settlement_date"),
			Timestamp:      ef.Timestamp("timestamp"),
		})
	}
	return out
}

// StockOrder is a historical equity order.
type StockOrder struct {
	ID                 *string          `json:"id"`
	Symbol             *string          `json:"symbol"`
	Side               *string          `json:"side"`
	Type               *string          `json:"type"`
	State              *string          `json:"state"`
	Quantity           *float64         `json:"quantity"`
	CumulativeQuantity *float64         `json:"cumulative_quantity"`
	Price              *float64         `json:"price"`
	AveragePrice       *float64         `json:"average_price"`
	StopPrice          *float64         `json:"stop_price"`
	Executions         []OrderExecution `json:"executions"`
	CreatedAt          *string          `json:"created_at"`
	UpdatedAt          *string          `json:"updated_at"`
	LastTransactionAt  *string          `json:"last_transaction_at"`
	TimeInForce        *string          `json:"time_in_force"`
	ExtendedHours      *bool            `json:"extended_hours"`
}

func NewStockOrder(f Fields) (StockOrder, error) {
	o := StockOrder{
		ID:                 f.OptionalString("id"),
		Symbol:             upperPtr(f.OptionalString("symbol")),
		Side:               f.OptionalString("side"),
		Type:               f.OptionalString("type"),
		State:              f.OptionalString("state"),
		Quantity:           f.Number("quantity"),
		CumulativeQuantity: f.Number("cumulative_quantity"),
		Price:              f.Number("price"),
		AveragePrice:       f.Number("average_price"),
		StopPrice:          f.Number("stop_price"),
		Executions:         newExecutions(f),
		CreatedAt:          f.Timestamp("created_at"),
		UpdatedAt:          f.Timestamp("updated_at"),
		LastTransactionAt:  f.Timestamp("last_transaction_at"),
		TimeInForce:        f.OptionalString("time_in_force"),
		ExtendedHours:      f.Bool("extended_hours"),
	}
	return o, nil
}

// OptionOrder is a historical option order. Legs are passed through as sent.
type OptionOrder struct {
	ID                *string  `json:"id"`
	ChainSymbol       *string  `json:"chain_symbol"`
	Direction         *string  `json:"direction"`
	Type              *string  `json:"type"`
	State             *string  `json:"state"`
	Quantity          *float64 `json:"quantity"`
	PendingQuantity   *float64 `json:"pending_quantity"`
	ProcessedQuantity *float64 `json:"processed_quantity"`
	Price             *float64 `json:"price"`
	Premium           *float64 `json:"premium"`
	ProcessedPremium  *float64 `json:"processed_premium"`
	OpeningStrategy   *string  `json:"opening_strategy"`
	ClosingStrategy   *string  `json:"closing_strategy"`
	Legs              []Raw    `json:"legs"`
	CreatedAt         *string  `json:"created_at"`
	UpdatedAt         *string  `json:"updated_at"`
	TimeInForce       *string  `json:"time_in_force"`
}

func NewOptionOrder(f Fields) (OptionOrder, error) {
	return OptionOrder{
		ID:                f.OptionalString("id"),
		ChainSymbol:       upperPtr(f.OptionalString("chain_symbol")),
		Direction:         f.OptionalString("direction"),
		Type:              f.OptionalString("type"),
		State:             f.OptionalString("state"),
		Quantity:          f.Number("quantity"),
		PendingQuantity:   f.Number("pending_quantity"),
		ProcessedQuantity: f.Number("processed_quantity"),
		Price:             f.Number("price"),
		Premium:           f.Number("premium"),
		ProcessedPremium:  f.Number("processed_premium"),
		OpeningStrategy:   f.OptionalString("opening_strategy"),
		ClosingStrategy:   f.OptionalString("closing_strategy"),
		Legs:              f.List("legs"),
		CreatedAt:         f.Timestamp("created_at"),
		UpdatedAt:         f.Timestamp("updated_at"),
		TimeInForce:       f.OptionalString("time_in_force"),
	}, nil
}

// CryptoOrder is a historical crypto order.
type CryptoOrder struct {
	ID                 *string          `json:"id"`
	CurrencyPairID     *string          `json:"currency_pair_id"`
	Side               *string          `json:"side"`
	Type               *string          `json:"type"`
	State              *string          `json:"state"`
	Quantity           *float64         `json:"quantity"`
	CumulativeQuantity *float64         `json:"cumulative_quantity"`
	Price              *float64         `json:"price"`
	AveragePrice       *float64         `json:"average_price"`
	Executions         []OrderExecution `json:"executions"`
	CreatedAt          *string          `json:"created_at"`
	UpdatedAt          *string          `json:"updated_at"`
	TimeInForce        *string          `json:"time_in_force"`
}

func NewCryptoOrder(f Fields) (CryptoOrder, error) {
	return CryptoOrder{
		ID:                 f.OptionalString("id"),
		CurrencyPairID:     f.OptionalString("currency_pair_id"),
		Side:               f.OptionalString("side"),
		Type:               f.OptionalString("type"),
		State:              f.OptionalString("state"),
		Quantity:           f.Number("quantity"),
		CumulativeQuantity: f.Number("cumulative_quantity"),
		Price:              f.Number("price"),
		AveragePrice:       f.Number("average_price"),
		Executions:         newExecutions(f),
		CreatedAt:          f.Timestamp("created_at"),
		UpdatedAt:          f.Timestamp("updated_at"),
		TimeInForce:        f.OptionalString("time_in_force"),
	}, nil
}

// OrderHistory groups orders by asset class. Lists are never null.
type OrderHistory struct {
	StockOrders  []StockOrder  `json:"stock_orders"`
	OptionOrders []OptionOrder `json:"option_orders"`
	CryptoOrders []CryptoOrder `json:"crypto_orders"`
}

// NewOrderHistory replaces nil lists with empty ones.
func NewOrderHistory(stock []StockOrder, option []OptionOrder, crypto []CryptoOrder) OrderHistory {
	if stock == nil {
		stock = []StockOrder{}
	}
	if option == nil {
		option = []OptionOrder{}
	}
	if crypto == nil {
		crypto = []CryptoOrder{}
	}
	return OrderHistory{StockOrders: stock, OptionOrders: option, CryptoOrders: crypto}
}

// AuthStatus is the result of the auth status tool.
type AuthStatus struct {
	Authenticated bool    `json:"authenticated"`
	State         string  `json:"state"`
	Error         *string `json:"error"`
}

func upperPtr(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}
