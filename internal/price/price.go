// Package price looks up the fiat value of the chain's base currency.
//
// Lookups never fail: a bad quote degrades the fiat column of a notification
// to zero instead of blocking it.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	logx "nftbot/pkg/logx"
)

const (
	DefaultCoinURL  = "https://api.coingecko.com/api/v3/coins/binancecoin"
	DefaultCurrency = "usd"
)

type Config struct {
	CoinURL  string
	Currency string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client reads {market_data: {current_price: {<currency>: n}}}.
type Client struct {
	url      string
	currency string
	http     *http.Client
	log      logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.CoinURL) == "" {
		cfg.CoinURL = DefaultCoinURL
	}
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{url: cfg.CoinURL, currency: cfg.Currency, http: hc, log: log.With(logx.String("comp", "price"))}
}

// Currency is the fiat key being quoted (e.g. "usd").
func (c *Client) Currency() string { return c.currency }

// Rate returns the current fiat price of one unit, or zero on any failure.
func (c *Client) Rate(ctx context.Context) decimal.Decimal {
	r, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn("conversion rate unavailable; using 0", logx.Err(err))
		return decimal.Zero
	}
	return r
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("coin info returned status %d", resp.StatusCode)
	}

	var body struct {
		MarketData struct {
			CurrentPrice map[string]decimal.Decimal `json:"current_price"`
		} `json:"market_data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode coin info: %w", err)
	}
	r, ok := body.MarketData.CurrentPrice[c.currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("coin info has no %q price", c.currency)
	}
	if r.IsNegative() {
		return decimal.Zero, fmt.Errorf("coin info returned negative price %s", r)
	}
	return r, nil
}
