package service

import (
	"context"

	"RobinhoodMCP/internal/coerce"
	"RobinhoodMCP/internal/model"
	"RobinhoodMCP/internal/upstream"
)

// Watchlists serves the user's watchlists.
type Watchlists struct{ base }

// List returns every watchlist with its symbols resolved. A list whose items
// cannot be fetched is returned with no symbols.
func (s *Watchlists) List(ctx context.Context) ([]model.Watchlist, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch watchlists", upstream.MethodWatchlists, nil)
	if err != nil {
		return nil, err
	}
	resolve := s.instrumentSymbols(ctx)
	fields := func(raw model.Raw) model.Fields {
		f := watchlistKeys.Apply(raw)
		f.Default("name", raw["name"])
		f["symbols"] = s.symbols(ctx, coerce.String(raw["id"]), resolve)
		return f
	}
	return collect("watchlists", objects(data), fields, model.NewWatchlist), nil
}

func (s *Watchlists) symbols(ctx context.Context, id string, resolve func(string) string) []string {
	if id == "" {
		return nil
	}
	items, err := s.up.Call(ctx, upstream.MethodWatchlistItems, upstream.Args{"id": id})
	if err != nil {
		logger().Warn("watchlist items unavailable", "id", id, "error", err)
		return nil
	}
	var out []string
	for _, item := range objects(items) {
		sym := coerce.String(item["symbol"])
		if sym == "" {
			sym = resolve(coerce.String(item["instrument"]))
		}
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// News serves headlines.
type News struct{ base }

func (s *News) Latest(ctx context.Context, symbol string) ([]model.NewsItem, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := s.call(ctx, "fetch news", upstream.MethodNews, upstream.Args{"symbol": sym})
	if err != nil {
		return nil, err
	}
	return collect("news", objects(data), newsKeys.Apply, model.NewNewsItem), nil
}

// Fundamentals serves key statistics.
type Fundamentals struct{ base }

// Get returns an empty record when the upstream knows nothing about symbol.
func (s *Fundamentals) Get(ctx context.Context, symbol string) (model.Fundamentals, error) {
	sym, err := normalizeSymbol(symbol)
	if err != nil {
		return model.Fundamentals{}, err
	}
	if err := s.ensure(ctx); err != nil {
		return model.Fundamentals{}, err
	}
	data, err := s.call(ctx, "fetch fundamentals", upstream.MethodFundamentals, upstream.Args{"symbol": sym})
	if err != nil {
		return model.Fundamentals{}, err
	}
	raws := objects(data)
	if len(raws) == 0 {
		return model.Fundamentals{}, nil
	}
	return single("fundamentals", fundamentalsKeys.Apply(raws[0]), model.NewFundamentals)
}
