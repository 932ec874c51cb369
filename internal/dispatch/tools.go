package dispatch

import (
	"context"

	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/service"
)

// Tool names.
const (
	ToolCurrentPrice     = "robinhood.market.current_price"
	ToolQuote            = "robinhood.market.quote"
	ToolPriceHistory     = "robinhood.market.price_history"
	ToolOptionsChain     = "robinhood.options.chain"
	ToolOptionsPositions = "robinhood.options.positions"
	ToolPortfolioSummary = "robinhood.portfolio.summary"
	ToolPositions        = "robinhood.portfolio.positions"
	ToolWatchlists       = "robinhood.watchlists.list"
	ToolNews             = "robinhood.news.latest"
	ToolFundamentals     = "robinhood.fundamentals.get"
	ToolAuthStatus       = "robinhood.auth.status"
	ToolOrderHistory     = "robinhood.orders.history"
)

// Tool describes one callable operation.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`

	run func(ctx context.Context, args Args) (any, error)
}

type prop map[string]any

func schema(props map[string]prop, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if props == nil {
		s["properties"] = map[string]prop{}
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func text(desc string) prop { return prop{"type": "string", "description": desc} }

func textDefault(desc, def string) prop {
	return prop{"type": "string", "description": desc, "default": def}
}

func textList(desc string) prop {
	return prop{"type": "array", "items": prop{"type": "string"}, "description": desc}
}

const chainDescription = `Get the options chain for a symbol. Two modes, depending on strike_price:

Listing (strike_price omitted): contracts within 20% of the current price with strike, type and expiration. Use it to browse strikes.

Targeted (strike_price given): the matching contracts with full market data: bid/ask, mark and last trade price, open interest, volume, implied volatility, greeks (delta, gamma, theta, vega, rho) and chance of profit.

Greeks are only available in targeted mode. expiration_date defaults to the nearest expiration.`

func (d *Dispatcher) registerTools(svc *service.Services) {
	quote := func(ctx context.Context, a Args) (any, error) {
		syms, err := a.Strings("symbols")
		if err != nil {
			return nil, err
		}
		return svc.Market.CurrentPrice(ctx, syms)
	}
	symbolsArg := schema(map[string]prop{"symbols": textList("Stock ticker symbols")}, "symbols")
	symbolArg := schema(map[string]prop{"symbol": text("Stock ticker symbol")}, "symbol")

	d.register(Tool{
		Name:        ToolCurrentPrice,
		Description: "Get current price quotes for one or more symbols",
		InputSchema: symbolsArg,
		run:         quote,
	})
	d.register(Tool{
		Name:        ToolQuote,
		Description: "Get detailed quotes for one or more symbols: last price, bid/ask, previous close and change percent",
		InputSchema: symbolsArg,
		run:         quote,
	})
	d.register(Tool{
		Name:        ToolPriceHistory,
		Description: "Get historical price candles for a symbol",
		InputSchema: schema(map[string]prop{
			"symbol":   text("Stock ticker symbol"),
			"interval": textDefault("Data interval: 5minute, 10minute, hour, day, week", service.DefaultInterval),
			"span":     textDefault("Time span: day, week, month, 3month, year, 5year", service.DefaultSpan),
			"bounds":   textDefault("Price bounds: extended, trading, regular", service.DefaultBounds),
		}, "symbol"),
		run: func(ctx context.Context, a Args) (any, error) {
			symbol, err := a.Required("symbol")
			if err != nil {
				return nil, err
			}
			interval, err := a.String("interval")
			if err != nil {
				return nil, err
			}
			span, err := a.String("span")
			if err != nil {
				return nil, err
			}
			bounds, err := a.String("bounds")
			if err != nil {
				return nil, err
			}
			return svc.Market.PriceHistory(ctx, symbol, interval, span, bounds)
		},
	})
	d.register(Tool{
		Name:        ToolOptionsChain,
		Description: chainDescription,
		InputSchema: schema(map[string]prop{
			"symbol":          text("Stock ticker symbol (e.g. 'AAPL')"),
			"expiration_date": text("Expiration date, YYYY-MM-DD. Defaults to the nearest expiration."),
			"option_type":     text("'call' or 'put'. Both when omitted."),
			"strike_price":    text("Strike price (e.g. '150.00'). Switches to targeted mode with full market data."),
		}, "symbol"),
		run: func(ctx context.Context, a Args) (any, error) {
			symbol, err := a.Required("symbol")
			if err != nil {
				return nil, err
			}
			var vals [3]string
			for i, key := range []string{"expiration_date", "option_type", "strike_price"} {
				if vals[i], err = a.String(key); err != nil {
					return nil, err
				}
			}
			return svc.Options.Chain(ctx, symbol, vals[0], vals[1], vals[2])
		},
	})
	d.register(Tool{
		Name: ToolOptionsPositions,
		Description: "Get open option positions: underlying symbol, strike, expiration, type, direction, quantity and average price. " +
			"Use robinhood.options.chain with the strike for live greeks.",
		InputSchema: schema(nil),
		run: func(ctx context.Context, _ Args) (any, error) {
			return svc.Options.Positions(ctx)
		},
	})
	d.register(Tool{
		Name:        ToolPortfolioSummary,
		Description: "Get portfolio summary: equity, cash, buying power and day change",
		InputSchema: schema(nil),
		run: func(ctx context.Context, _ Args) (any, error) {
			return svc.Portfolio.Summary(ctx)
		},
	})
	d.register(Tool{
		Name:        ToolPositions,
		Description: "Get equity positions with market value, optionally filtered by symbols",
		InputSchema: schema(map[string]prop{"symbols": textList("Optional filter by symbols")}),
		run: func(ctx context.Context, a Args) (any, error) {
			syms, err := a.Strings("symbols")
			if err != nil {
				return nil, err
			}
			return svc.Portfolio.Positions(ctx, syms)
		},
	})
	d.register(Tool{
		Name:        ToolWatchlists,
		Description: "Get watchlists and their symbols",
		InputSchema: schema(nil),
		run: func(ctx context.Context, _ Args) (any, error) {
			return svc.Watchlists.List(ctx)
		},
	})
	d.register(Tool{
		Name:        ToolNews,
		Description: "Get latest news for a stock symbol",
		InputSchema: symbolArg,
		run: func(ctx context.Context, a Args) (any, error) {
			symbol, err := a.Required("symbol")
			if err != nil {
				return nil, err
			}
			return svc.News.Latest(ctx, symbol)
		},
	})
	d.register(Tool{
		Name:        ToolFundamentals,
		Description: "Get company fundamentals (market cap, P/E, dividend yield, 52-week range)",
		InputSchema: symbolArg,
		run: func(ctx context.Context, a Args) (any, error) {
			symbol, err := a.Required("symbol")
			if err != nil {
				return nil, err
			}
			return svc.Fundamentals.Get(ctx, symbol)
		},
	})
	d.register(Tool{
		Name:        ToolAuthStatus,
		Description: "Check authentication status. Supply mfa_code to answer a pending verification challenge when MFA fallback is enabled.",
		InputSchema: schema(map[string]prop{"mfa_code": text("One-time verification code")}),
		run:         d.authStatus,
	})
	d.register(Tool{
		Name:        ToolOrderHistory,
		Description: "Get order history for stocks, options and/or crypto with execution details",
		InputSchema: schema(map[string]prop{
			"type":       textDefault("Order type: stock, option, crypto, or all", "all"),
			"symbol":     text("Filter by ticker (stock and option orders only)"),
			"start_date": text("Only orders from this date, YYYY-MM-DD"),
		}),
		run: func(ctx context.Context, a Args) (any, error) {
			var vals [3]string
			var err error
			for i, key := range []string{"type", "symbol", "start_date"} {
				if vals[i], err = a.String(key); err != nil {
					return nil, err
				}
			}
			return svc.Orders.History(ctx, vals[0], vals[1], vals[2])
		},
	})
}

// authStatus never fails on authentication: the outcome is the payload.
func (d *Dispatcher) authStatus(ctx context.Context, a Args) (any, error) {
	code, err := a.String("mfa_code")
	if err != nil {
		return nil, err
	}
	ensureErr := d.sess.EnsureSession(ctx, code)
	snap := d.sess.Status()
	status := model.AuthStatus{
		Authenticated: ensureErr == nil && snap.Authenticated,
		State:         string(snap.State),
	}
	if ensureErr != nil {
		msg := ensureErr.Error()
		status.Error = &msg
	}
	return status, nil
}
