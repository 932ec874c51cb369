package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"RobinhoodMCP/internal/coerce"
)

const (
	DefaultBaseURL   = "https://api.robinhood.com"
	DefaultCryptoURL = "https://nummus.robinhood.com"

	clientID       = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
	tokenLifetime  = 86400
	defaultPages   = 50
	marketdataSize = 50
)

// Options configures the HTTP capability.
type Options struct {
	BaseURL   string
	CryptoURL string
	Timeout   time.Duration
	Proxy     string
	// DeviceToken identifies this installation; generated when empty.
	DeviceToken string
	// MaxPages caps "next" link following per list call.
	MaxPages int
}

// Robinhood implements Capability over the public HTTP API.
type Robinhood struct {
	Client    *http.Client
	baseURL   string
	cryptoURL string
	maxPages  int

	mu          sync.RWMutex
	token       *Token
	deviceToken string
}

// NewRobinhood creates the HTTP capability.
func NewRobinhood(opts Options) *Robinhood {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &Robinhood{
		Client:      &http.Client{Timeout: timeout, Transport: transport},
		baseURL:     strings.TrimRight(firstNonEmpty(opts.BaseURL, DefaultBaseURL), "/"),
		cryptoURL:   strings.TrimRight(firstNonEmpty(opts.CryptoURL, DefaultCryptoURL), "/"),
		maxPages:    opts.MaxPages,
		deviceToken: opts.DeviceToken,
	}
	if r.maxPages <= 0 {
		r.maxPages = defaultPages
	}
	if r.deviceToken == "" {
		r.deviceToken = uuid.NewString()
	}
	return r
}

func (r *Robinhood) Name() string { return "robinhood" }

// Login posts the password grant. A verification workflow in the response is
// reported as ErrChallenge.
func (r *Robinhood) Login(ctx context.Context, creds Credentials, mfaCode string) (*Token, error) {
	r.mu.RLock()
	device := r.deviceToken
	r.mu.RUnlock()

	form := url.Values{
		"client_id":      {clientID},
		"expires_in":     {fmt.Sprint(tokenLifetime)},
		"grant_type":     {"password"},
		"scope":          {"internal"},
		"username":       {creds.Username},
		"password":       {creds.Password},
		"device_token":   {device},
		"challenge_type": {"sms"},
	}
	if mfaCode != "" {
		form.Set("mfa_code", mfaCode)
	}

	status, body, err := r.send(ctx, http.MethodPost, r.baseURL+"/oauth2/token/", strings.NewReader(form.Encode()), false)
	if err != nil {
		return nil, err
	}
	payload, _ := body.(map[string]any)

	if _, ok := payload["verification_workflow"]; ok {
		return nil, ErrChallenge
	}
	if _, ok := payload["challenge"]; ok {
		return nil, ErrChallenge
	}
	if required, _ := payload["mfa_required"].(bool); required {
		return nil, fmt.Errorf("%w: mfa code required", ErrChallenge)
	}
	if status >= 500 {
		return nil, &StatusError{StatusCode: status, Path: "/oauth2/token/"}
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: %s", ErrCredentials, detail(payload))
	}

	access := coerce.String(payload["access_token"])
	if access == "" {
		return nil, fmt.Errorf("login: response carried no access token")
	}
	tok := &Token{
		AccessToken:  access,
		RefreshToken: coerce.String(payload["refresh_token"]),
		TokenType:    firstNonEmpty(coerce.String(payload["token_type"]), "Bearer"),
		DeviceToken:  device,
	}
	if exp := coerce.Integer(payload["expires_in"]); exp != nil {
		tok.ExpiresIn = *exp
	}
	r.Restore(tok)
	return tok, nil
}

// Restore installs tok; a cached device token replaces the generated one.
func (r *Robinhood) Restore(tok *Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = tok
	if tok != nil && tok.DeviceToken != "" {
		r.deviceToken = tok.DeviceToken
	}
}

func (r *Robinhood) Probe(ctx context.Context) error {
	_, err := r.get(ctx, r.baseURL+"/positions/", url.Values{"nonzero": {"true"}})
	return err
}

func (r *Robinhood) Logout(ctx context.Context) error {
	r.mu.Lock()
	tok := r.token
	r.token = nil
	r.mu.Unlock()
	if tok == nil {
		return nil
	}
	form := url.Values{"client_id": {clientID}, "token": {tok.AccessToken}}
	status, _, err := r.send(ctx, http.MethodPost, r.baseURL+"/oauth2/revoke_token/", strings.NewReader(form.Encode()), false)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &StatusError{StatusCode: status, Path: "/oauth2/revoke_token/"}
	}
	return nil
}

// Call dispatches a data method.
func (r *Robinhood) Call(ctx context.Context, method string, args Args) (any, error) {
	switch method {
	case MethodQuotes:
		return r.first(ctx, "/quotes/", url.Values{"symbols": {strings.Join(stringList(args["symbols"]), ",")}})
	case MethodHistoricals:
		q := url.Values{
			"symbols":  {argString(args, "symbol")},
			"interval": {argString(args, "interval")},
			"span":     {argString(args, "span")},
			"bounds":   {argString(args, "bounds")},
		}
		results, err := r.first(ctx, "/quotes/historicals/", q)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return []any{}, nil
		}
		entry, _ := results[0].(map[string]any)
		bars, _ := entry["historicals"].([]any)
		return bars, nil
	case MethodFundamentals:
		return r.first(ctx, "/fundamentals/", url.Values{"symbols": {argString(args, "symbol")}})
	case MethodNews:
		return r.list(ctx, r.baseURL+"/midlands/news/"+url.PathEscape(argString(args, "symbol"))+"/", nil)
	case MethodPortfolioProfile:
		return r.single(ctx, "/portfolios/")
	case MethodAccountProfile:
		return r.single(ctx, "/accounts/")
	case MethodPositions:
		return r.list(ctx, r.baseURL+"/positions/", url.Values{"nonzero": {"true"}})
	case MethodInstrument:
		return r.get(ctx, r.absolute(argString(args, "url")), nil)
	case MethodWatchlists:
		return r.list(ctx, r.baseURL+"/midlands/lists/default/", nil)
	case MethodWatchlistItems:
		return r.list(ctx, r.baseURL+"/midlands/lists/items/", url.Values{"list_id": {argString(args, "id")}})
	case MethodOptionChain:
		id, err := r.chainID(ctx, argString(args, "symbol"))
		if err != nil {
			return nil, err
		}
		return r.get(ctx, r.baseURL+"/options/chains/"+url.PathEscape(id)+"/", nil)
	case MethodOptionContracts:
		return r.optionContracts(ctx, args)
	case MethodOptionPositions:
		return r.list(ctx, r.baseURL+"/options/positions/", url.Values{"nonzero": {"True"}})
	case MethodOptionInstrument:
		return r.get(ctx, r.baseURL+"/options/instruments/"+url.PathEscape(argString(args, "id"))+"/", nil)
	case MethodStockOrders:
		return r.list(ctx, r.baseURL+"/orders/", since(args))
	case MethodOptionOrders:
		return r.list(ctx, r.baseURL+"/options/orders/", since(args))
	case MethodCryptoOrders:
		return r.list(ctx, r.cryptoURL+"/orders/", nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func (r *Robinhood) chainID(ctx context.Context, symbol string) (string, error) {
	results, err := r.first(ctx, "/instruments/", url.Values{"symbol": {symbol}})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no instrument for symbol %q", symbol)
	}
	inst, _ := results[0].(map[string]any)
	id := coerce.String(inst["tradable_chain_id"])
	if id == "" {
		return "", fmt.Errorf("symbol %q has no tradable option chain", symbol)
	}
	return id, nil
}

// optionContracts lists instruments for one expiration and merges each with
// its market data.
func (r *Robinhood) optionContracts(ctx context.Context, args Args) (any, error) {
	id, err := r.chainID(ctx, argString(args, "symbol"))
	if err != nil {
		return nil, err
	}
	q := url.Values{"chain_id": {id}, "state": {"active"}}
	if v := argString(args, "expiration_date"); v != "" {
		q.Set("expiration_dates", v)
	}
	if v := argString(args, "type"); v != "" {
		q.Set("type", v)
	}
	if v := argString(args, "strike_price"); v != "" {
		q.Set("strike_price", v)
	}
	instruments, err := r.list(ctx, r.baseURL+"/options/instruments/", q)
	if err != nil {
		return nil, err
	}

	byURL := make(map[string]map[string]any, len(instruments))
	urls := make([]string, 0, len(instruments))
	for _, item := range instruments {
		inst, ok := item.(map[string]any)
		if !ok {
			continue
		}
		u := coerce.String(inst["url"])
		if u == "" {
			continue
		}
		byURL[u] = inst
		urls = append(urls, u)
	}

	for start := 0; start < len(urls); start += marketdataSize {
		end := min(start+marketdataSize, len(urls))
		data, err := r.first(ctx, "/marketdata/options/", url.Values{"instruments": {strings.Join(urls[start:end], ",")}})
		if err != nil {
			// contracts without quotes are still listed
			slog.Warn("option market data unavailable", "error", err)
			break
		}
		for _, item := range data {
			md, ok := item.(map[string]any)
			if !ok {
				continue
			}
			inst, ok := byURL[coerce.String(md["instrument"])]
			if !ok {
				continue
			}
			for k, v := range md {
				if _, exists := inst[k]; !exists {
					inst[k] = v
				}
			}
		}
	}

	out := make([]any, 0, len(urls))
	for _, u := range urls {
		out = append(out, byURL[u])
	}
	return out, nil
}

// first returns the "results" of one page.
func (r *Robinhood) first(ctx context.Context, path string, q url.Values) ([]any, error) {
	body, err := r.get(ctx, r.baseURL+path, q)
	if err != nil {
		return nil, err
	}
	page, _ := body.(map[string]any)
	results, _ := page["results"].([]any)
	return results, nil
}

// single returns the first result of a list endpoint, or nil.
func (r *Robinhood) single(ctx context.Context, path string) (any, error) {
	results, err := r.first(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// list follows "next" links up to the page cap.
func (r *Robinhood) list(ctx context.Context, u string, q url.Values) ([]any, error) {
	var all []any
	next := u
	for page := 0; next != "" && page < r.maxPages; page++ {
		body, err := r.get(ctx, next, q)
		if err != nil {
			return nil, err
		}
		q = nil // next links carry their own query
		m, ok := body.(map[string]any)
		if !ok {
			if items, ok := body.([]any); ok {
				all = append(all, items...)
			}
			break
		}
		items, _ := m["results"].([]any)
		all = append(all, items...)
		next = coerce.String(m["next"])
	}
	if all == nil {
		all = []any{}
	}
	return all, nil
}

func (r *Robinhood) get(ctx context.Context, u string, q url.Values) (any, error) {
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	status, body, err := r.send(ctx, http.MethodGet, u, nil, true)
	if err != nil {
		return nil, err
	}
	path := pathOf(u)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, path)
	case status >= 400:
		m, _ := body.(map[string]any)
		return nil, &StatusError{StatusCode: status, Path: path, Detail: detail(m)}
	}
	return body, nil
}

func (r *Robinhood) send(ctx context.Context, method, u string, payload io.Reader, authed bool) (int, any, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "robinhood-mcp/1.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if authed {
		r.mu.RLock()
		tok := r.token
		r.mu.RUnlock()
		if tok == nil {
			return 0, nil, fmt.Errorf("%w: no session token", ErrUnauthorized)
		}
		req.Header.Set("Authorization", firstNonEmpty(tok.TokenType, "Bearer")+" "+tok.AccessToken)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("robinhood %s %s: %w", method, pathOf(u), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("robinhood read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		if resp.StatusCode >= 400 {
			return resp.StatusCode, nil, nil
		}
		return 0, nil, fmt.Errorf("robinhood decode %s: %w", pathOf(u), err)
	}
	return resp.StatusCode, body, nil
}

// absolute accepts either a full instrument URL or a path.
func (r *Robinhood) absolute(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return r.baseURL + "/" + strings.TrimLeft(u, "/")
}

func since(args Args) url.Values {
	if d := argString(args, "start_date"); d != "" {
		return url.Values{"updated_at[gte]": {d}}
	}
	return nil
}

func detail(m map[string]any) string {
	for _, key := range []string{"detail", "error_description", "error", "non_field_errors"} {
		if s := coerce.String(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func pathOf(u string) string {
	if parsed, err := url.Parse(u); err == nil {
		return parsed.Path
	}
	return u
}

func argString(args Args, key string) string {
	return coerce.String(args[key])
}

func stringList(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, coerce.String(item))
		}
		return out
	case string:
		return []string{s}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Capability = (*Robinhood)(nil)

// IsTimeout reports whether err is a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
