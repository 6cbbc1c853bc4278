package notifier

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"nftbot/internal/market"
	kit "nftbot/internal/transport"
)

// Formatter renders events with a fixed set of links and symbols.
type Formatter struct {
	links Links
}

func NewFormatter(links Links) Formatter {
	return Formatter{links: links.withDefaults()}
}

// Sale renders a completed trade.
func (f Formatter) Sale(s market.SaleEvent, e Enrichment) kit.Message {
	var b strings.Builder
	f.narrative(&b, e.Metadata, "sold")
	line(&b, "Seller", s.Seller)
	line(&b, "Buyer", s.Buyer)
	line(&b, "Rarity", e.Rarity)
	f.priceLine(&b, s.NetPrice, e.Rate)
	return f.message(s.CollectionID, s.TokenID, "NFT Sold", e.Metadata, b.String())
}

// Listing renders a new ask.
func (f Formatter) Listing(l market.ListingEvent, e Enrichment) kit.Message {
	var b strings.Builder
	f.narrative(&b, e.Metadata, "listed")
	line(&b, "Seller", l.Seller)
	line(&b, "Rarity", e.Rarity)
	f.priceLine(&b, l.AskPrice, e.Rate)
	return f.message(l.CollectionID, l.TokenID, "NFT Listed", e.Metadata, b.String())
}

// ItemURL is the marketplace page of a token.
func (f Formatter) ItemURL(collectionID, tokenID string) string {
	return strings.TrimRight(f.links.MarketplaceURL, "/") +
		"/nfts/collections/" + url.PathEscape(collectionID) + "/" + url.PathEscape(tokenID)
}

func (f Formatter) message(collectionID, tokenID, author string, md market.TokenMetadata, desc string) kit.Message {
	return kit.Message{
		Title:       md.Name,
		URL:         f.ItemURL(collectionID, tokenID),
		Description: strings.TrimRight(desc, "\n"),
		Author: kit.Author{
			Name:    author,
			URL:     strings.TrimRight(f.links.MarketplaceURL, "/") + "/",
			IconURL: f.links.IconURL,
		},
		Color:    AccentColor,
		ImageURL: md.Image.Original,
	}
}

func (f Formatter) narrative(b *strings.Builder, md market.TokenMetadata, verb string) {
	if md.Description != "" {
		b.WriteString(md.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("**A " + md.Kind() + " just got " + verb + "!**\n\n")
}

func (f Formatter) priceLine(b *strings.Builder, native, rate decimal.Decimal) {
	fiat := native.Mul(rate)
	line(b, "Price", native.String()+f.links.NativeSymbol+"/"+f.links.FiatSymbol+fiat.StringFixed(2))
}

func line(b *strings.Builder, label, value string) {
	b.WriteString("**" + label + "**: " + value + "\n")
}
