package service

import (
	"context"
	"strings"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

// OrderTypes are the accepted order history filters.
var OrderTypes = []string{"all", "stock", "option", "crypto"}

// Orders serves order history.
type Orders struct{ base }

// History returns orders of the requested asset class. symbol filters stock
// and option orders; crypto orders are not keyed by ticker and are never
// filtered by it. startDate is passed upstream for stock and option orders.
func (s *Orders) History(ctx context.Context, orderType, symbol, startDate string) (model.OrderHistory, error) {
	orderType, err := oneOf("type", orderType, "all", OrderTypes)
	if err != nil {
		return model.OrderHistory{}, err
	}
	if strings.TrimSpace(symbol) != "" {
		if symbol, err = normalizeSymbol(symbol); err != nil {
			return model.OrderHistory{}, err
		}
	}
	if startDate, err = isoDate("start_date", startDate); err != nil {
		return model.OrderHistory{}, err
	}
	if err := s.ensure(ctx); err != nil {
		return model.OrderHistory{}, err
	}

	var (
		stock  []model.StockOrder
		option []model.OptionOrder
		crypto []model.CryptoOrder
	)
	args := upstream.Args{}
	if startDate != "" {
		args["start_date"] = startDate
	}

	if orderType == "all" || orderType == "stock" {
		data, err := s.call(ctx, "fetch stock orders", upstream.MethodStockOrders, args)
		if err != nil {
			return model.OrderHistory{}, err
		}
		resolve := s.instrumentSymbols(ctx)
		symbolOf := func(raw model.Raw) string {
			if sym := upper(coerce.String(raw["symbol"])); sym != "" {
				return sym
			}
			return resolve(coerce.String(raw["instrument"]))
		}
		raws := objects(data)
		if symbol != "" {
			filtered := raws[:0]
			for _, raw := range raws {
				if symbolOf(raw) == symbol {
					filtered = append(filtered, raw)
				}
			}
			raws = filtered
		}
		fields := func(raw model.Raw) model.Fields {
			return stockOrderKeys.Apply(raw).With("symbol", nonEmpty(symbolOf(raw)))
		}
		stock = collect("stock orders", raws, fields, model.NewStockOrder)
	}

	if orderType == "all" || orderType == "option" {
		data, err := s.call(ctx, "fetch option orders", upstream.MethodOptionOrders, args)
		if err != nil {
			return model.OrderHistory{}, err
		}
		raws := objects(data)
		if symbol != "" {
			filtered := raws[:0]
			for _, raw := range raws {
				if upper(coerce.String(raw["chain_symbol"])) == symbol {
					filtered = append(filtered, raw)
				}
			}
			raws = filtered
		}
		option = collect("option orders", raws, optionOrderKeys.Apply, model.NewOptionOrder)
	}

	if orderType == "all" || orderType == "crypto" {
		data, err := s.call(ctx, "fetch crypto orders", upstream.MethodCryptoOrders, nil)
		if err != nil {
			return model.OrderHistory{}, err
		}
		crypto = collect("crypto orders", objects(data), cryptoOrderKeys.Apply, model.NewCryptoOrder)
	}

	return model.NewOrderHistory(stock, option, crypto), nil
}

// nonEmpty returns nil for "" so Fields.With leaves the key unset.
func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
