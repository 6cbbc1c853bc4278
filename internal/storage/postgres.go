package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	logx "nftbot/pkg/logx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS nftbot_ledger (
	kind        TEXT        NOT NULL,
	id          TEXT        NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, id)
)`

type postgresStore struct {
	pool *pgxpool.Pool
}

type postgresLedger struct {
	pool *pgxpool.Pool
	kind Kind
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	// One process, one sequential writer.
	pcfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	log.Debug("postgres ledger opened", logx.String("host", pcfg.ConnConfig.Host))
	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Ledger(kind Kind) (Ledger, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if s.pool == nil {
		return nil, ErrClosed
	}
	return &postgresLedger{pool: s.pool, kind: kind}, nil
}

func (s *postgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

func (l *postgresLedger) Contains(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	var ok bool
	err = l.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM nftbot_ledger WHERE kind = $1 AND id = $2)`,
		string(l.kind), id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return ok, nil
}

func (l *postgresLedger) Record(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO nftbot_ledger (kind, id) VALUES ($1, $2) ON CONFLICT (kind, id) DO NOTHING`,
		string(l.kind), id,
	)
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}
	return nil
}
