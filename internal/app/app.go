// Package app wires configuration into a runnable notification pass.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"nftbot/internal/config"
	"nftbot/internal/market"
	"nftbot/internal/notifier"
	"nftbot/internal/observability"
	"nftbot/internal/pipeline"
	"nftbot/internal/price"
	"nftbot/internal/storage"
	logx "nftbot/pkg/logx"
)

const userAgent = "nftbot/1.0"

type App struct {
	rt    config.Runtime
	runID string

	log       logx.Logger
	logCloser io.Closer

	store   storage.Store
	metrics *observability.Metrics
	pipe    *pipeline.Pipeline
}

// Option adjusts construction. Tests use it to inject a logger.
type Option func(*options)

type options struct {
	log logx.Logger
}

// WithLogger replaces the configured log sinks.
func WithLogger(l logx.Logger) Option { return func(o *options) { o.log = l } }

// New validates cfg and opens every dependency. Close releases them.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	rt, err := cfg.Runtime()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	runID := uuid.NewString()
	base, closer := o.log, io.Closer(nopCloser{})
	if base.IsZero() {
		l, c, err := logx.New(logx.Config{
			Level:    rt.Logging.Level,
			Console:  rt.Logging.Console,
			FilePath: rt.Logging.File,
		})
		if err != nil {
			return nil, err
		}
		base, closer = l, c
	}
	base = base.With(logx.String("run_id", runID))
	log := base.With(logx.String("comp", "app"))

	a := &App{rt: rt, runID: runID, log: log, logCloser: closer, metrics: observability.NewMetrics()}

	policy, err := pipeline.ParseMetadataPolicy(rt.OnMetadataError)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.store, err = storage.Open(ctx, mapStorageConfig(rt), base)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	hc := &http.Client{Timeout: rt.HTTPTimeout}
	ncfg, err := mapNotifierConfig(rt, hc)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	src := market.NewClient(market.Config{
		SubgraphURL: rt.Upstream.SubgraphURL,
		MetadataURL: rt.Upstream.MetadataURL,
		HTTPClient:  hc,
		UserAgent:   userAgent,
	}, base)
	rates := price.NewClient(price.Config{
		CoinURL:    rt.Upstream.CoinURL,
		Currency:   rt.Upstream.Currency,
		HTTPClient: hc,
	}, base)

	a.pipe, err = pipeline.New(pipeline.Config{
		CollectionID:    rt.CollectionID,
		EventDelay:      rt.EventDelay,
		OnMetadataError: policy,
		RarityTrait:     rt.RarityTrait,
	}, pipeline.Deps{
		Source:   src,
		Rates:    rates,
		Notifier: notifier.New(ncfg, base, a.metrics),
		Store:    a.store,
		Formatter: notifier.NewFormatter(notifier.Links{
			MarketplaceURL: rt.Links.MarketplaceURL,
			IconURL:        rt.Links.IconURL,
			NativeSymbol:   rt.Links.NativeSymbol,
			FiatSymbol:     rt.Links.FiatSymbol,
		}),
		Log:     base,
		Metrics: a.metrics,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Info("configured",
		logx.String("collection", rt.CollectionID),
		logx.String("ledger", rt.LedgerDriver),
		logx.Int("sales_destinations", len(ncfg.Sales)),
		logx.Int("listings_destinations", len(ncfg.Listings)),
		logx.Duration("event_delay", rt.EventDelay),
		logx.Bool("dry_run", rt.DryRun),
	)
	return a, nil
}

// RunID identifies this invocation in logs.
func (a *App) RunID() string { return a.runID }

// Metrics exposes the run counters.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Run performs one pass. The metrics textfile is written even when the pass
// fails, so a stale last-success timestamp is visible to alerting.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	start := time.Now()
	sum, err := a.pipe.Run(ctx)
	a.metrics.Finish(start, err)

	if werr := a.metrics.WriteTextfile(a.rt.MetricsTextfile); werr != nil {
		a.log.Warn("metrics textfile not written", logx.String("path", a.rt.MetricsTextfile), logx.Err(werr))
	}

	fields := []logx.Field{
		logx.Duration("took", time.Since(start)),
		logx.Int("sales_delivered", sum.Sales.Delivered),
		logx.Int("listings_delivered", sum.Listings.Delivered),
	}
	if err != nil {
		a.log.Error("run failed", append(fields, logx.Err(err))...)
		return sum, err
	}
	a.log.Info("run complete", fields...)
	return sum, nil
}

func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ledger: %w", err))
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
