package notifier

import (
	"context"
	"fmt"
	"strings"

	"nftbot/internal/observability"
	"nftbot/internal/storage"
	kit "nftbot/internal/transport"
	logx "nftbot/pkg/logx"
)

// Config lists the destinations for each event kind, in delivery order.
type Config struct {
	Sales    []kit.Sender
	Listings []kit.Sender
	// DryRun logs messages instead of sending them; commit hooks never run.
	DryRun bool
}

// Service fans a message out to the destinations of one kind.
//
// It is not safe for concurrent use; the pipeline is sequential.
type Service struct {
	log     logx.Logger
	metrics *observability.Metrics

	dests  map[storage.Kind][]kit.Sender
	dryRun bool
}

func New(cfg Config, log logx.Logger, metrics *observability.Metrics) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log.With(logx.String("comp", "notifier")),
		metrics: metrics,
		dests: map[storage.Kind][]kit.Sender{
			storage.KindSales:    cfg.Sales,
			storage.KindListings: cfg.Listings,
		},
		dryRun: cfg.DryRun,
	}
}

// Destinations reports how many destinations kind has. Zero disables the kind.
func (s *Service) Destinations(kind storage.Kind) int {
	return len(s.dests[kind])
}

// Deliver sends msg to every destination of kind. commit runs once, after the
// first confirmed delivery; a commit error stops the fan-out and is returned
// because the ledger can no longer vouch for the event.
func (s *Service) Deliver(ctx context.Context, kind storage.Kind, id string, msg kit.Message, commit func(context.Context) error) (Result, error) {
	var res Result
	log := s.log.With(logx.String("kind", string(kind)), logx.String("id", id))

	if s.dryRun {
		log.Info("dry run: message not sent",
			logx.String("title", msg.Title),
			logx.String("url", msg.URL),
			logx.String("description", msg.Description),
		)
		return res, nil
	}

	for _, d := range s.dests[kind] {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++

		err := d.Send(ctx, msg)
		s.metrics.Delivery(string(kind), destinationType(d), err == nil)
		if err != nil {
			res.Failed++
			// Not fatal: if nothing succeeds the event stays unrecorded and the next run retries it.
			log.Warn("delivery failed", logx.String("dest", d.Name()), logx.Err(err))
			continue
		}
		res.Delivered++
		log.Info("sent", logx.String("dest", d.Name()))

		if !res.Committed && commit != nil {
			if err := commit(ctx); err != nil {
				return res, fmt.Errorf("record %s %s: %w", kind, id, err)
			}
			res.Committed = true
		}
	}
	return res, nil
}

// destinationType keeps metric cardinality low: "webhook", "telegram", never the URL.
func destinationType(d kit.Sender) string {
	typ, _, _ := strings.Cut(d.Name(), " ")
	return typ
}
