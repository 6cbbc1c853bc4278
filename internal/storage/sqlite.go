package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "nftbot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

type sqliteLedger struct {
	db   *sql.DB
	kind Kind
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	applyPragmas(ctx, db, cfg.BusyTimeout, log)

	if err := st.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("sqlite ledger opened", logx.String("path", path))
	return st, nil
}

// applyPragmas tunes the connection. Failures are logged and otherwise ignored.
func applyPragmas(ctx context.Context, db *sql.DB, busy time.Duration, log logx.Logger) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		// FULL: a recorded id must survive power loss, not just a process crash.
		"PRAGMA synchronous = FULL",
	}
	if busy > 0 {
		pragmas = append([]string{fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			log.Warn("sqlite pragma failed", logx.String("pragma", p), logx.Err(err))
		}
	}
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Ledger(kind Kind) (Ledger, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	return &sqliteLedger{db: s.db, kind: kind}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (l *sqliteLedger) Contains(ctx context.Context, id string) (bool, error) {
	id, err := normalizeID(id)
	if err != nil {
		return false, err
	}
	var one int
	err = l.db.QueryRowContext(ctx, `SELECT 1 FROM ledger WHERE kind = ? AND id = ?`, string(l.kind), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *sqliteLedger) Record(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO ledger(kind, id, recorded_at) VALUES(?,?,?)
		 ON CONFLICT(kind, id) DO NOTHING`,
		string(l.kind), id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
