package model

import "strings"

// Watchlist is a named, ordered set of symbols.
type Watchlist struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// NewWatchlist keeps the first occurrence of each symbol.
func NewWatchlist(f Fields) (Watchlist, error) {
	id := f.String("id")
	if id == "" {
		return Watchlist{}, missing("watchlist", "id")
	}
	name := f.String("name")
	if name == "" {
		return Watchlist{}, missing("watchlist", "name")
	}
	raw := f.Strings("symbols")
	seen := make(map[string]bool, len(raw))
	symbols := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	return Watchlist{ID: id, Name: name, Symbols: symbols}, nil
}

// NewsItem is one headline.
type NewsItem struct {
	ID          string  `json:"id"`
	Headline    string  `json:"headline"`
	Summary     *string `json:"summary"`
	Source      *string `json:"source"`
	URL         *string `json:"url"`
	PublishedAt string  `json:"published_at"`
}

func NewNewsItem(f Fields) (NewsItem, error) {
	id := f.String("id")
	if id == "" {
		return NewsItem{}, missing("news item", "id")
	}
	headline := f.String("headline")
	if headline == "" {
		return NewsItem{}, missing("news item", "headline")
	}
	published := f.Timestamp("published_at")
	if published == nil {
		return NewsItem{}, missing("news item", "published_at")
	}
	return NewsItem{
		ID:          id,
		Headline:    headline,
		Summary:     f.OptionalString("summary"),
		Source:      f.OptionalString("source"),
		URL:         f.OptionalString("url"),
		PublishedAt: *published,
	}, nil
}

// Fundamentals has no required fields; an empty record is valid.
type Fundamentals struct {
	MarketCap     *float64 `json:"market_cap"`
	PERatio       *float64 `json:"pe_ratio"`
	DividendYield *float64 `json:"dividend_yield"`
	Week52High    *float64 `json:"week_52_high"`
	Week52Low     *float64 `json:"week_52_low"`
}

func NewFundamentals(f Fields) (Fundamentals, error) {
	out := Fundamentals{
		MarketCap:     f.Number("market_cap"),
		PERatio:       f.Number("pe_ratio"),
		DividendYield: f.Number("dividend_yield"),
		Week52High:    f.Number("week_52_high"),
		Week52Low:     f.Number("week_52_low"),
	}
	if out.Week52High != nil && out.Week52Low != nil && *out.Week52Low > *out.Week52High {
		return Fundamentals{}, invalid("fundamentals", "52-week low above 52-week high")
	}
	return out, nil
}
