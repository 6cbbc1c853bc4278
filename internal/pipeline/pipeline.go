// Package pipeline runs one dedup-and-notify pass over sales and listings.
//
// Per event: ledger check → metadata → rarity → conversion rate → format →
// deliver → record. The ledger is the only state that outlives a run; all
// retries come from the next invocation finding the event still unrecorded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"nftbot/internal/market"
	"nftbot/internal/notifier"
	"nftbot/internal/observability"
	"nftbot/internal/storage"
	kit "nftbot/internal/transport"
	logx "nftbot/pkg/logx"
)

// ErrMissingRarity aborts the run: a token without the rarity trait means the
// collection's metadata no longer matches what messages are built from.
var ErrMissingRarity = errors.New("missing rarity attribute")

const DefaultRarityTrait = "Rarity Coefficient"

// MetadataPolicy decides what a metadata fetch failure does to the run.
type MetadataPolicy string

const (
	// MetadataSkip logs and moves on to the next event. The event stays out of
	// the ledger, so the next run tries it again.
	MetadataSkip MetadataPolicy = "skip"
	// MetadataAbort stops the run with the fetch error.
	MetadataAbort MetadataPolicy = "abort"
)

// ParseMetadataPolicy accepts "", "skip" or "abort".
func ParseMetadataPolicy(s string) (MetadataPolicy, error) {
	switch MetadataPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetadataSkip:
		return MetadataSkip, nil
	case MetadataAbort:
		return MetadataAbort, nil
	default:
		return "", fmt.Errorf("unknown metadata error policy %q (want skip or abort)", s)
	}
}

// Config is fixed for the lifetime of a Pipeline.
type Config struct {
	CollectionID string
	// EventDelay spaces out deliveries of consecutive events. Zero disables it.
	EventDelay      time.Duration
	OnMetadataError MetadataPolicy
	RarityTrait     string
}

// Source is the marketplace (market.Client).
type Source interface {
	FetchSales(ctx context.Context, collectionID string) ([]market.SaleEvent, error)
	FetchListings(ctx context.Context, collectionID string) ([]market.ListingEvent, error)
	FetchTokenMetadata(ctx context.Context, collectionID, tokenID string) (market.TokenMetadata, error)
}

// RateSource quotes the native currency in fiat (price.Client). It never fails.
type RateSource interface {
	Rate(ctx context.Context) decimal.Decimal
}

// Deliverer fans messages out (notifier.Service).
type Deliverer interface {
	Destinations(kind storage.Kind) int
	Deliver(ctx context.Context, kind storage.Kind, id string, msg kit.Message, commit func(context.Context) error) (notifier.Result, error)
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Source    Source
	Rates     RateSource
	Notifier  Deliverer
	Store     storage.Store
	Formatter notifier.Formatter
	Log       logx.Logger
	Metrics   *observability.Metrics
}

type Pipeline struct {
	cfg Config

	src     Source
	rates   RateSource
	out     Deliverer
	store   storage.Store
	format  notifier.Formatter
	pace    *rate.Limiter
	log     logx.Logger
	metrics *observability.Metrics
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	cfg.CollectionID = strings.TrimSpace(cfg.CollectionID)
	if cfg.CollectionID == "" {
		return nil, errors.New("pipeline: collection id is required")
	}
	if deps.Source == nil || deps.Rates == nil || deps.Notifier == nil || deps.Store == nil {
		return nil, errors.New("pipeline: source, rates, notifier and store are required")
	}
	if cfg.OnMetadataError == "" {
		cfg.OnMetadataError = MetadataSkip
	}
	if cfg.RarityTrait == "" {
		cfg.RarityTrait = DefaultRarityTrait
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	// Burst 1: the first delivery goes out immediately, each later one waits
	// until EventDelay has passed since the previous.
	limit := rate.Inf
	if cfg.EventDelay > 0 {
		limit = rate.Every(cfg.EventDelay)
	}

	return &Pipeline{
		cfg:     cfg,
		src:     deps.Source,
		rates:   deps.Rates,
		out:     deps.Notifier,
		store:   deps.Store,
		format:  deps.Formatter,
		pace:    rate.NewLimiter(limit, 1),
		log:     log.With(logx.String("comp", "pipeline"), logx.String("collection", cfg.CollectionID)),
		metrics: deps.Metrics,
	}, nil
}

// KindSummary counts what happened to the events of one kind.
type KindSummary struct {
	Disabled bool
	Fetched  int
	Deduped  int
	// Delivered events reached at least one destination and were recorded.
	Delivered int
	// Skipped events failed enrichment under MetadataSkip.
	Skipped int
	// Undelivered events reached no destination and stay unrecorded.
	Undelivered int
}

type Summary struct {
	Sales    KindSummary
	Listings KindSummary
}

// Run processes sales, then listings. The first fatal error stops the run;
// the summary still reflects the work done up to that point.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	for _, kind := range []storage.Kind{storage.KindSales, storage.KindListings} {
		ks := &sum.Sales
		if kind == storage.KindListings {
			ks = &sum.Listings
		}
		if err := p.runKind(ctx, kind, ks); err != nil {
			return sum, fmt.Errorf("%s: %w", kind, err)
		}
	}
	return sum, nil
}

func (p *Pipeline) runKind(ctx context.Context, kind storage.Kind, ks *KindSummary) error {
	log := p.log.With(logx.String("kind", string(kind)))
	if p.out.Destinations(kind) == 0 {
		ks.Disabled = true
		log.Info("no destinations configured; skipping")
		return nil
	}

	ledger, err := p.store.Ledger(kind)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	candidates, err := p.fetch(ctx, kind)
	if err != nil {
		return err
	}
	ks.Fetched = len(candidates)
	p.metrics.Fetched(string(kind), len(candidates))
	log.Info("candidates fetched", logx.Int("count", len(candidates)))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.process(ctx, kind, ledger, c, ks, log.With(logx.String("id", c.id))); err != nil {
			return err
		}
	}

	log.Info("kind done",
		logx.Int("fetched", ks.Fetched),
		logx.Int("deduped", ks.Deduped),
		logx.Int("delivered", ks.Delivered),
		logx.Int("skipped", ks.Skipped),
		logx.Int("undelivered", ks.Undelivered),
	)
	return nil
}

// candidate is the kind-independent view of one fetched event.
type candidate struct {
	id      string
	tokenID string
	render  func(notifier.Enrichment) kit.Message
}

func (p *Pipeline) fetch(ctx context.Context, kind storage.Kind) ([]candidate, error) {
	switch kind {
	case storage.KindSales:
		sales, err := p.src.FetchSales(ctx, p.cfg.CollectionID)
		if err != nil {
			return nil, err
		}
		out := make([]candidate, 0, len(sales))
		for _, s := range sales {
			// The subgraph echoes the collection lowercased; links use the configured form.
			s.CollectionID = p.cfg.CollectionID
			out = append(out, candidate{
				id:      s.ID,
				tokenID: s.TokenID,
				render:  func(e notifier.Enrichment) kit.Message { return p.format.Sale(s, e) },
			})
		}
		return out, nil
	case storage.KindListings:
		listings, err := p.src.FetchListings(ctx, p.cfg.CollectionID)
		if err != nil {
			return nil, err
		}
		out := make([]candidate, 0, len(listings))
		for _, l := range listings {
			l.CollectionID = p.cfg.CollectionID
			out = append(out, candidate{
				id:      l.ID,
				tokenID: l.TokenID,
				render:  func(e notifier.Enrichment) kit.Message { return p.format.Listing(l, e) },
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

func (p *Pipeline) process(ctx context.Context, kind storage.Kind, ledger storage.Ledger, c candidate, ks *KindSummary, log logx.Logger) error {
	seen, err := ledger.Contains(ctx, c.id)
	if err != nil {
		return fmt.Errorf("ledger lookup %s: %w", c.id, err)
	}
	if seen {
		ks.Deduped++
		p.metrics.Deduped(string(kind))
		log.Debug("already sent")
		return nil
	}

	md, err := p.src.FetchTokenMetadata(ctx, p.cfg.CollectionID, c.tokenID)
	if err != nil {
		if p.cfg.OnMetadataError == MetadataAbort {
			return err
		}
		ks.Skipped++
		p.metrics.Skipped(string(kind), "metadata")
		log.Warn("metadata unavailable; skipping event", logx.String("token", c.tokenID), logx.Err(err))
		return nil
	}

	rarity, ok := md.Attribute(p.cfg.RarityTrait)
	if !ok {
		return fmt.Errorf("%w: %q on token %s", ErrMissingRarity, p.cfg.RarityTrait, c.tokenID)
	}

	msg := c.render(notifier.Enrichment{
		Metadata: md,
		Rarity:   rarity,
		Rate:     p.rates.Rate(ctx),
	})

	if err := p.pace.Wait(ctx); err != nil {
		return err
	}

	res, err := p.out.Deliver(ctx, kind, c.id, msg, func(ctx context.Context) error {
		if err := ledger.Record(ctx, c.id); err != nil {
			return err
		}
		p.metrics.Recorded(string(kind))
		return nil
	})
	if err != nil {
		return err
	}
	if res.Committed {
		ks.Delivered++
	} else if res.Attempted > 0 {
		ks.Undelivered++
		log.Warn("no destination accepted the message; will retry next run", logx.Int("attempted", res.Attempted))
	}
	return nil
}
