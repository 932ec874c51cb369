// Package upstream is the boundary to the brokerage API. Everything it returns
// is untyped decoded JSON; normalization happens in the services.
package upstream

import (
	"context"
	"fmt"
	"log/slog"
)

// Args carries method parameters.
type Args = map[string]any

// Methods understood by Caller.Call.
const (
	MethodQuotes           = "quotes"            // symbols []string
	MethodHistoricals      = "historicals"       // symbol, interval, span, bounds
	MethodFundamentals     = "fundamentals"      // symbol
	MethodNews             = "news"              // symbol
	MethodPortfolioProfile = "portfolio_profile" // -
	MethodAccountProfile   = "account_profile"   // -
	MethodPositions        = "positions"         // -
	MethodInstrument       = "instrument"        // url
	MethodWatchlists       = "watchlists"        // -
	MethodWatchlistItems   = "watchlist_items"   // id
	MethodOptionChain      = "option_chain"      // symbol
	MethodOptionContracts  = "option_contracts"  // symbol, expiration_date, type, strike_price
	MethodOptionPositions  = "option_positions"  // -
	MethodOptionInstrument = "option_instrument" // id
	MethodStockOrders      = "stock_orders"      // start_date
	MethodOptionOrders     = "option_orders"     // start_date
	MethodCryptoOrders     = "crypto_orders"     // -
)

// Credentials are held in memory only and never rendered in clear.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both username and password are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username:%s Password:[REDACTED]}", c.Username)
}

func (c Credentials) GoString() string { return c.String() }

func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("username", c.Username), slog.String("password", "[REDACTED]"))
}

// Token is an authenticated upstream session.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	DeviceToken  string
}

func (t Token) String() string {
	return fmt.Sprintf("Token{Type:%s ExpiresIn:%d AccessToken:[REDACTED]}", t.TokenType, t.ExpiresIn)
}

func (t Token) LogValue() slog.Value {
	return slog.GroupValue(slog.String("type", t.TokenType), slog.Int64("expires_in", t.ExpiresIn))
}

// Authenticator manages the upstream session.
type Authenticator interface {
	// Login authenticates with credentials. mfaCode may be empty.
	Login(ctx context.Context, creds Credentials, mfaCode string) (*Token, error)
	// Restore installs a previously issued token without any network traffic.
	Restore(tok *Token)
	// Probe is a cheap authenticated call that confirms the session is live.
	Probe(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Caller performs data calls.
type Caller interface {
	Call(ctx context.Context, method string, args Args) (any, error)
}

// Capability is the full upstream surface.
type Capability interface {
	Name() string
	Authenticator
	Caller
}
