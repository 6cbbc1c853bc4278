package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc reads one variable; os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// list-valued variables separate entries with ';'.
const listSep = ";"

type envBinding struct {
	key   string
	apply func(cfg *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = strings.TrimSpace(v)
		return nil
	}
}

func list(dst func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = SplitList(v)
		return nil
	}
}

var envBindings = []envBinding{
	{"COLLECTION", str(func(c *Config) *string { return &c.Collection })},
	{"SALES_WEBHOOK_URL", list(func(c *Config) *[]string { return &c.Sales.Webhooks })},
	{"LISTINGS_WEBHOOK_URL", list(func(c *Config) *[]string { return &c.Listings.Webhooks })},
	{"SALES_TELEGRAM_CHAT", list(func(c *Config) *[]string { return &c.Sales.TelegramChats })},
	{"LISTINGS_TELEGRAM_CHAT", list(func(c *Config) *[]string { return &c.Listings.TelegramChats })},
	{"TELEGRAM_BOT_TOKEN", str(func(c *Config) *string { return &c.Telegram.Token })},
	{"TELEGRAM_API_URL", str(func(c *Config) *string { return &c.Telegram.APIURL })},
	{"LEDGER_DRIVER", str(func(c *Config) *string { return &c.Ledger.Driver })},
	{"LEDGER_PATH", str(func(c *Config) *string { return &c.Ledger.Path })},
	{"LEDGER_DSN", str(func(c *Config) *string { return &c.Ledger.DSN })},
	{"LEDGER_KEY_PREFIX", str(func(c *Config) *string { return &c.Ledger.KeyPrefix })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FILE", str(func(c *Config) *string { return &c.Logging.File })},
	{"EVENT_DELAY", str(func(c *Config) *string { return &c.EventDelay })},
	{"HTTP_TIMEOUT", str(func(c *Config) *string { return &c.HTTPTimeout })},
	{"ON_METADATA_ERROR", str(func(c *Config) *string { return &c.OnMetadataError })},
	{"RARITY_TRAIT", str(func(c *Config) *string { return &c.RarityTrait })},
	{"METRICS_TEXTFILE", str(func(c *Config) *string { return &c.MetricsTextfile })},
	{"DRY_RUN", func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		c.DryRun = b
		return nil
	}},
	{"LOG_CONSOLE", func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		c.Logging.Console = b
		return nil
	}},
}

// applyEnv overrides cfg with every variable lookup knows about. A variable
// set to the empty string clears the field.
func applyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
	}
	return nil
}

// SplitList splits a ';'-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, listSep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}
