package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults applied by Runtime when a field is empty.
const (
	DefaultEventDelay  = 5 * time.Second
	DefaultHTTPTimeout = 20 * time.Second
	DefaultBusyTimeout = time.Second
	DefaultRarityTrait = "Rarity Coefficient"
)

var knownDrivers = map[string]bool{"file": true, "sqlite": true, "postgres": true, "redis": true, "memory": true}

// Runtime is the validated, typed form of Config.
type Runtime struct {
	CollectionID string

	Sales    DestinationsConfig
	Listings DestinationsConfig

	TelegramToken  string
	TelegramAPIURL string

	LedgerDriver      string
	LedgerPath        string
	LedgerDSN         string
	LedgerKeyPrefix   string
	LedgerBusyTimeout time.Duration

	Logging  LoggingConfig
	Upstream UpstreamConfig
	Links    LinksConfig

	EventDelay      time.Duration
	HTTPTimeout     time.Duration
	OnMetadataError string
	RarityTrait     string

	MetricsTextfile string
	DryRun          bool
}

// Runtime validates c and resolves defaults. Errors name the field path.
func (c Config) Runtime() (Runtime, error) {
	rt := Runtime{
		CollectionID:    strings.TrimSpace(c.Collection),
		Sales:           trimDestinations(c.Sales),
		Listings:        trimDestinations(c.Listings),
		TelegramToken:   strings.TrimSpace(c.Telegram.Token),
		TelegramAPIURL:  strings.TrimSpace(c.Telegram.APIURL),
		LedgerDriver:    strings.ToLower(strings.TrimSpace(c.Ledger.Driver)),
		LedgerPath:      strings.TrimSpace(c.Ledger.Path),
		LedgerDSN:       strings.TrimSpace(c.Ledger.DSN),
		LedgerKeyPrefix: strings.TrimSpace(c.Ledger.KeyPrefix),
		Logging:         c.Logging,
		Upstream:        c.Upstream,
		Links:           c.Links,
		OnMetadataError: strings.ToLower(strings.TrimSpace(c.OnMetadataError)),
		RarityTrait:     strings.TrimSpace(c.RarityTrait),
		MetricsTextfile: strings.TrimSpace(c.MetricsTextfile),
		DryRun:          c.DryRun,
	}

	if rt.CollectionID == "" {
		return Runtime{}, errors.New("collection is required (COLLECTION)")
	}

	var err error
	if rt.EventDelay, err = ParseDurationOrDefault("event_delay", c.EventDelay, DefaultEventDelay); err != nil {
		return Runtime{}, err
	}
	if rt.HTTPTimeout, err = ParseDurationOrDefault("http_timeout", c.HTTPTimeout, DefaultHTTPTimeout); err != nil {
		return Runtime{}, err
	}
	if rt.HTTPTimeout == 0 {
		rt.HTTPTimeout = DefaultHTTPTimeout
	}
	if rt.LedgerBusyTimeout, err = ParseDurationOrDefault("ledger.busy_timeout", c.Ledger.BusyTimeout, DefaultBusyTimeout); err != nil {
		return Runtime{}, err
	}

	for path, hooks := range map[string][]string{"sales.webhooks": rt.Sales.Webhooks, "listings.webhooks": rt.Listings.Webhooks} {
		for i, h := range hooks {
			if err := checkHTTPURL(h); err != nil {
				return Runtime{}, fmt.Errorf("%s[%d]: %w", path, i, err)
			}
		}
	}
	if rt.TelegramToken == "" && (len(rt.Sales.TelegramChats) > 0 || len(rt.Listings.TelegramChats) > 0) {
		return Runtime{}, errors.New("telegram.token is required when telegram chats are configured (TELEGRAM_BOT_TOKEN)")
	}

	if rt.LedgerDriver == "" {
		rt.LedgerDriver = "file"
	}
	if rt.LedgerDriver == "sqlite3" {
		rt.LedgerDriver = "sqlite"
	}
	if !knownDrivers[rt.LedgerDriver] {
		return Runtime{}, fmt.Errorf("ledger.driver: unknown driver %q", c.Ledger.Driver)
	}
	switch rt.LedgerDriver {
	case "sqlite":
		if rt.LedgerPath == "" {
			return Runtime{}, errors.New("ledger.path is required when ledger.driver=sqlite")
		}
	case "postgres", "redis":
		if rt.LedgerDSN == "" {
			return Runtime{}, fmt.Errorf("ledger.dsn is required when ledger.driver=%s", rt.LedgerDriver)
		}
	}

	switch rt.OnMetadataError {
	case "":
		rt.OnMetadataError = "skip"
	case "skip", "abort":
	default:
		return Runtime{}, fmt.Errorf("on_metadata_error: want skip or abort, got %q", c.OnMetadataError)
	}
	if rt.RarityTrait == "" {
		rt.RarityTrait = DefaultRarityTrait
	}
	return rt, nil
}

func trimDestinations(d DestinationsConfig) DestinationsConfig {
	var out DestinationsConfig
	for _, w := range d.Webhooks {
		if w = strings.TrimSpace(w); w != "" {
			out.Webhooks = append(out.Webhooks, w)
		}
	}
	for _, ch := range d.TelegramChats {
		if ch = strings.TrimSpace(ch); ch != "" {
			out.TelegramChats = append(out.TelegramChats, ch)
		}
	}
	return out
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("not an http(s) URL")
	}
	return nil
}

// Enabled reports whether a kind has at least one destination.
func (d DestinationsConfig) Enabled() bool { return !d.empty() }
