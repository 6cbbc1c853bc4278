package config

// Config is the on-disk and environment configuration.
//
// All durations are Go duration strings (e.g. "500ms", "5s", "1m").
// Every field can be overridden by an environment variable; see env.go.
type Config struct {
	// Collection is the marketplace collection (contract address) to watch.
	Collection string `json:"collection"`

	Sales    DestinationsConfig `json:"sales"`
	Listings DestinationsConfig `json:"listings"`

	Telegram TelegramConfig `json:"telegram,omitempty"`
	Ledger   LedgerConfig   `json:"ledger"`
	Logging  LoggingConfig  `json:"logging"`
	Upstream UpstreamConfig `json:"upstream,omitempty"`
	Links    LinksConfig    `json:"links,omitempty"`

	// EventDelay is the minimum spacing between delivered events ("0s" disables pacing).
	// Defaults to 5s when omitted.
	EventDelay  string `json:"event_delay,omitempty"`
	HTTPTimeout string `json:"http_timeout,omitempty"`

	// OnMetadataError is "skip" (default) or "abort".
	OnMetadataError string `json:"on_metadata_error,omitempty"`
	RarityTrait     string `json:"rarity_trait,omitempty"`

	// MetricsTextfile, when set, receives a Prometheus textfile after every run.
	MetricsTextfile string `json:"metrics_textfile,omitempty"`
	DryRun          bool   `json:"dry_run,omitempty"`
}

// DestinationsConfig lists where one event kind is sent. Both lists empty
// disables the kind.
type DestinationsConfig struct {
	Webhooks []string `json:"webhooks,omitempty"`
	// TelegramChats are "chat_id" or "chat_id:thread_id".
	TelegramChats []string `json:"telegram_chats,omitempty"`
}

func (d DestinationsConfig) empty() bool {
	return len(d.Webhooks) == 0 && len(d.TelegramChats) == 0
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// APIURL overrides the Bot API base (self-hosted bot API servers).
	APIURL string `json:"api_url,omitempty"`
}

// LedgerConfig selects the dedup ledger backend.
//
// driver: "file" (default), "sqlite", "postgres", "redis" or "memory".
//
// The file driver also imports TinyDB sales.json/listings.json from path and
// from the working directory whenever a ledger is opened.
type LedgerConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
	DSN    string `json:"dsn,omitempty"`
	// KeyPrefix namespaces redis keys.
	KeyPrefix   string `json:"key_prefix,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level"`
	Console bool   `json:"console"`
	File    string `json:"file,omitempty"`
}

// UpstreamConfig overrides the public API endpoints.
type UpstreamConfig struct {
	SubgraphURL string `json:"subgraph_url,omitempty"`
	MetadataURL string `json:"metadata_url,omitempty"`
	CoinURL     string `json:"coin_url,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// LinksConfig overrides the fixed parts of every message.
type LinksConfig struct {
	MarketplaceURL string `json:"marketplace_url,omitempty"`
	IconURL        string `json:"icon_url,omitempty"`
	NativeSymbol   string `json:"native_symbol,omitempty"`
	FiatSymbol     string `json:"fiat_symbol,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			Driver: "file",
			Path:   "./data",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		EventDelay:      "5s",
		HTTPTimeout:     "20s",
		OnMetadataError: "skip",
	}
}
