package service

import "RobinhoodMCP/internal/model"

// Upstream key -> canonical key, one table per record type. Each canonical key
// has exactly one source so the mapping is deterministic.
var (
	quoteKeys = model.KeyMap{
		"symbol":           "symbol",
		"last_trade_price": "last_price",
		"bid_price":        "bid",
		"ask_price":        "ask",
		"previous_close":   "previous_close",
		"updated_at":       "timestamp",
	}

	candleKeys = model.KeyMap{
		"begins_at":   "timestamp",
		"open_price":  "open",
		"high_price":  "high",
		"low_price":   "low",
		"close_price": "close",
		"volume":      "volume",
	}

	optionContractKeys = model.KeyMap{
		"chain_symbol":           "symbol",
		"expiration_date":        "expiration",
		"strike_price":           "strike",
		"type":                   "type",
		"bid_price":              "bid",
		"ask_price":              "ask",
		"adjusted_mark_price":    "mark_price",
		"last_trade_price":       "last_trade_price",
		"open_interest":          "open_interest",
		"volume":                 "volume",
		"implied_volatility":     "implied_volatility",
		"delta":                  "delta",
		"gamma":                  "gamma",
		"theta":                  "theta",
		"vega":                   "vega",
		"rho":                    "rho",
		"chance_of_profit_short": "chance_of_profit_short",
		"chance_of_profit_long":  "chance_of_profit_long",
	}

	optionPositionKeys = model.KeyMap{
		"chain_symbol":  "symbol",
		"type":          "direction",
		"quantity":      "quantity",
		"average_price": "average_price",
		"created_at":    "created_at",
		"updated_at":    "updated_at",
	}

	optionInstrumentKeys = model.KeyMap{
		"strike_price":    "strike_price",
		"expiration_date": "expiration_date",
		"type":            "option_type",
	}

	positionKeys = model.KeyMap{
		"quantity":          "quantity",
		"average_buy_price": "average_cost",
	}

	watchlistKeys = model.KeyMap{
		"id":           "id",
		"display_name": "name",
	}

	newsKeys = model.KeyMap{
		"uuid":         "id",
		"title":        "headline",
		"summary":      "summary",
		"source":       "source",
		"url":          "url",
		"published_at": "published_at",
	}

	fundamentalsKeys = model.KeyMap{
		"market_cap":     "market_cap",
		"pe_ratio":       "pe_ratio",
		"dividend_yield": "dividend_yield",
		"high_52_weeks":  "week_52_high",
		"low_52_weeks":   "week_52_low",
	}

	stockOrderKeys = model.KeyMap{
		"id":                  "id",
		"side":                "side",
		"type":                "type",
		"state":               "state",
		"quantity":            "quantity",
		"cumulative_quantity": "cumulative_quantity",
		"price":               "price",
		"average_price":       "average_price",
		"stop_price":          "stop_price",
		"executions":          "executions",
		"created_at":          "created_at",
		"updated_at":          "updated_at",
		"last_transaction_at": "last_transaction_at",
		"time_in_force":       "time_in_force",
		"extended_hours":      "extended_hours",
	}

	optionOrderKeys = model.KeyMap{
		"id":                 "id",
		"chain_symbol":       "chain_symbol",
		"direction":          "direction",
		"type":               "type",
		"state":              "state",
		"quantity":           "quantity",
		"pending_quantity":   "pending_quantity",
		"processed_quantity": "processed_quantity",
		"price":              "price",
		"premium":            "premium",
		"processed_premium":  "processed_premium",
		"opening_strategy":   "opening_strategy",
		"closing_strategy":   "closing_strategy",
		"legs":               "legs",
		"created_at":         "created_at",
		"updated_at":         "updated_at",
		"time_in_force":      "time_in_force",
	}

	cryptoOrderKeys = model.KeyMap{
		"id":                  "id",
		"currency_pair_id":    "currency_pair_id",
		"side":                "side",
		"type":                "type",
		"state":               "state",
		"quantity":            "quantity",
		"cumulative_quantity": "cumulative_quantity",
		"price":               "price",
		"average_price":       "average_price",
		"executions":          "executions",
		"created_at":          "created_at",
		"updated_at":          "updated_at",
		"time_in_force":       "time_in_force",
	}
)
