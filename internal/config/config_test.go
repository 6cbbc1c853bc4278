package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{EnvFile: "-", Lookup: envMap(nil)})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = cfg.Runtime()
	require.Error(t, err, "collection is required")
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load(Options{EnvFile: "-", Lookup: envMap(map[string]string{
		"COLLECTION":             " 0xcoll ",
		"SALES_WEBHOOK_URL":      "https://a.example/1; https://b.example/2 ;",
		"LISTINGS_TELEGRAM_CHAT": "-100123:4",
		"TELEGRAM_BOT_TOKEN":     "tok",
		"LEDGER_DRIVER":          "sqlite",
		"LEDGER_PATH":            "/var/lib/nftbot/ledger.db",
		"EVENT_DELAY":            "0s",
		"DRY_RUN":                "true",
	})})
	require.NoError(t, err)

	rt, err := cfg.Runtime()
	require.NoError(t, err)
	assert.Equal(t, "0xcoll", rt.CollectionID)
	assert.Equal(t, []string{"https://a.example/1", "https://b.example/2"}, rt.Sales.Webhooks)
	assert.Equal(t, []string{"-100123:4"}, rt.Listings.TelegramChats)
	assert.True(t, rt.Sales.Enabled())
	assert.True(t, rt.Listings.Enabled())
	assert.Equal(t, "sqlite", rt.LedgerDriver)
	assert.Equal(t, time.Duration(0), rt.EventDelay)
	assert.Equal(t, DefaultHTTPTimeout, rt.HTTPTimeout)
	assert.Equal(t, DefaultRarityTrait, rt.RarityTrait)
	assert.Equal(t, "skip", rt.OnMetadataError)
	assert.True(t, rt.DryRun)
}

func TestLoadPrecedence(t *testing.T) {
	file := write(t, "config.yaml", `
collection: from-file
event_delay: 2s
sales:
  webhooks: [https://file.example/hook]
logging:
  level: debug
  console: true
`)
	envFile := write(t, ".env", "COLLECTION=from-dotenv\nEVENT_DELAY=3s\n")

	cfg, err := Load(Options{Path: file, EnvFile: envFile, Lookup: envMap(map[string]string{
		"EVENT_DELAY": "4s",
	})})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Collection)
	assert.Equal(t, "4s", cfg.EventDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://file.example/hook"}, cfg.Sales.Webhooks)
	// Untouched defaults survive a partial file.
	assert.Equal(t, "file", cfg.Ledger.Driver)
}

func TestLoadJSONStrict(t *testing.T) {
	p := write(t, "config.json", `{"collection":"x","colection":"typo"}`)
	_, err := Load(Options{Path: p, EnvFile: "-", Lookup: envMap(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colection")

	p = write(t, "config.json", `{"collection":"x"}{"collection":"y"}`)
	_, err = Load(Options{Path: p, EnvFile: "-", Lookup: envMap(nil)})
	require.Error(t, err)
}

func TestMissingEnvFileIsFine(t *testing.T) {
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "nope.env"), Lookup: envMap(nil)})
	require.NoError(t, err)
}

func TestRuntimeValidation(t *testing.T) {
	base := func() Config {
		c := Defaults()
		c.Collection = "0xcoll"
		return c
	}
	cases := map[string]func(*Config){
		"event_delay":       func(c *Config) { c.EventDelay = "soon" },
		"http_timeout":      func(c *Config) { c.HTTPTimeout = "-1s" },
		"sales.webhooks[0]": func(c *Config) { c.Sales.Webhooks = []string{"discord.com/api/webhooks/1"} },
		"telegram.token":    func(c *Config) { c.Listings.TelegramChats = []string{"42"} },
		"ledger.driver":     func(c *Config) { c.Ledger.Driver = "mongo" },
		"ledger.dsn":        func(c *Config) { c.Ledger.Driver = "postgres" },
		"ledger.path":       func(c *Config) { c.Ledger.Driver = "sqlite"; c.Ledger.Path = "" },
		"on_metadata_error": func(c *Config) { c.OnMetadataError = "retry" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			c := base()
			mutate(&c)
			_, err := c.Runtime()
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestRuntimeDisabledKinds(t *testing.T) {
	c := Defaults()
	c.Collection = "0xcoll"
	rt, err := c.Runtime()
	require.NoError(t, err)
	assert.False(t, rt.Sales.Enabled())
	assert.False(t, rt.Listings.Enabled())
	assert.Equal(t, DefaultEventDelay, rt.EventDelay)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ;; b ;"))
	assert.Nil(t, SplitList(""))
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("x", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = ParseDurationOrDefault("x", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	d, err = ParseDurationOrDefault("x", "0s", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseDurationField("a.b", "-2s")
	require.ErrorContains(t, err, "a.b")
}
