package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftbot/internal/market"
	"nftbot/internal/observability"
	"nftbot/internal/storage"
	kit "nftbot/internal/transport"
	logx "nftbot/pkg/logx"
)

type fakeSender struct {
	name string
	err  error
	sent []kit.Message
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(ctx context.Context, msg kit.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func sampleEnrichment() Enrichment {
	return Enrichment{
		Metadata: market.TokenMetadata{
			Name:        "Bunny Racer #7",
			Description: "A very fast bunny.",
			Image:       market.TokenImage{Original: "https://img/7.png"},
		},
		Rarity: "1.37",
		Rate:   decimal.RequireFromString("600"),
	}
}

func TestSaleMessage(t *testing.T) {
	f := NewFormatter(Links{})
	msg := f.Sale(market.SaleEvent{
		ID: "0xtx", TokenID: "7", Seller: "0xs", Buyer: "0xb",
		NetPrice: decimal.RequireFromString("0.5"), CollectionID: "0xcoll",
	}, sampleEnrichment())

	assert.Equal(t, "Bunny Racer #7", msg.Title)
	assert.Equal(t, "https://pancakeswap.finance/nfts/collections/0xcoll/7", msg.URL)
	assert.Equal(t, "A very fast bunny.\n\n"+
		"**A Bunny just got sold!**\n\n"+
		"**Seller**: 0xs\n"+
		"**Buyer**: 0xb\n"+
		"**Rarity**: 1.37\n"+
		"**Price**: 0.5BNB/$300.00", msg.Description)
	assert.Equal(t, "NFT Sold", msg.Author.Name)
	assert.Equal(t, "https://pancakeswap.finance/", msg.Author.URL)
	assert.Equal(t, DefaultIconURL, msg.Author.IconURL)
	assert.Equal(t, AccentColor, msg.Color)
	assert.Equal(t, "https://img/7.png", msg.ImageURL)
}

func TestListingMessageZeroRate(t *testing.T) {
	f := NewFormatter(Links{MarketplaceURL: "https://market.example/", NativeSymbol: "ETH"})
	e := sampleEnrichment()
	e.Rate = decimal.Zero
	msg := f.Listing(market.ListingEvent{
		ID: "0xs;7;2", TokenID: "7", Seller: "0xs",
		AskPrice: decimal.RequireFromString("2"), CollectionID: "0xcoll",
	}, e)

	assert.Equal(t, "https://market.example/nfts/collections/0xcoll/7", msg.URL)
	assert.Contains(t, msg.Description, "**A Bunny just got listed!**")
	assert.NotContains(t, msg.Description, "Buyer")
	assert.Contains(t, msg.Description, "**Price**: 2ETH/$0.00")
	assert.Equal(t, "NFT Listed", msg.Author.Name)
}

func TestDeliverCommitsOnceAndTriesAll(t *testing.T) {
	a := &fakeSender{name: "webhook a"}
	b := &fakeSender{name: "webhook b"}
	m := observability.NewMetrics()
	svc := New(Config{Sales: []kit.Sender{a, b}}, logx.Nop(), m)
	require.Equal(t, 2, svc.Destinations(storage.KindSales))
	require.Equal(t, 0, svc.Destinations(storage.KindListings))

	commits := 0
	res, err := svc.Deliver(context.Background(), storage.KindSales, "0xtx", kit.Message{Title: "x"}, func(context.Context) error {
		commits++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, commits)
	assert.Equal(t, Result{Attempted: 2, Delivered: 2, Committed: true}, res)
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestDeliverFirstFailsSecondCommits(t *testing.T) {
	a := &fakeSender{name: "webhook a", err: kit.ErrDeliveryFailed}
	b := &fakeSender{name: "telegram 1"}
	svc := New(Config{Listings: []kit.Sender{a, b}}, logx.Nop(), nil)

	commits := 0
	res, err := svc.Deliver(context.Background(), storage.KindListings, "id", kit.Message{}, func(context.Context) error {
		commits++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, commits)
	assert.Equal(t, Result{Attempted: 2, Delivered: 1, Failed: 1, Committed: true}, res)
}

func TestDeliverAllFailNoCommit(t *testing.T) {
	a := &fakeSender{name: "webhook a", err: kit.ErrDeliveryFailed}
	svc := New(Config{Sales: []kit.Sender{a}}, logx.Nop(), nil)
	res, err := svc.Deliver(context.Background(), storage.KindSales, "id", kit.Message{}, func(context.Context) error {
		t.Fatal("commit must not run without a confirmed delivery")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.Equal(t, 1, res.Failed)
}

func TestDeliverCommitError(t *testing.T) {
	a := &fakeSender{name: "webhook a"}
	b := &fakeSender{name: "webhook b"}
	svc := New(Config{Sales: []kit.Sender{a, b}}, logx.Nop(), nil)
	boom := errors.New("disk full")
	_, err := svc.Deliver(context.Background(), storage.KindSales, "id", kit.Message{}, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Empty(t, b.sent, "fan-out stops once the ledger write fails")
}

func TestDeliverDryRun(t *testing.T) {
	a := &fakeSender{name: "webhook a"}
	svc := New(Config{Sales: []kit.Sender{a}, DryRun: true}, logx.Nop(), nil)
	res, err := svc.Deliver(context.Background(), storage.KindSales, "id", kit.Message{}, func(context.Context) error {
		t.Fatal("dry run must not commit")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, a.sent)
}
