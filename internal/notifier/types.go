package notifier

import (
	"github.com/shopspring/decimal"

	"nftbot/internal/market"
)

const (
	DefaultMarketplaceURL = "https://pancakeswap.finance"
	DefaultIconURL        = "https://pancakeswap.finance/images/decorations/phishing-warning-bunny.webp"
	DefaultNativeSymbol   = "BNB"
	DefaultFiatSymbol     = "$"

	// AccentColor is the embed side bar color.
	AccentColor = 0x03b2f8
)

// Links controls the fixed parts of every message.
type Links struct {
	MarketplaceURL string
	IconURL        string
	NativeSymbol   string
	FiatSymbol     string
}

func (l Links) withDefaults() Links {
	if l.MarketplaceURL == "" {
		l.MarketplaceURL = DefaultMarketplaceURL
	}
	if l.IconURL == "" {
		l.IconURL = DefaultIconURL
	}
	if l.NativeSymbol == "" {
		l.NativeSymbol = DefaultNativeSymbol
	}
	if l.FiatSymbol == "" {
		l.FiatSymbol = DefaultFiatSymbol
	}
	return l
}

// Enrichment is what the pipeline gathered for one event.
type Enrichment struct {
	Metadata market.TokenMetadata
	Rarity   string
	// Rate is the fiat value of one native unit (zero when unavailable).
	Rate decimal.Decimal
}

// Result summarizes one fan-out.
type Result struct {
	Attempted int
	Delivered int
	Failed    int
	Committed bool
}
