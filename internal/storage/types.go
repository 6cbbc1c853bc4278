package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrInvalidInput is returned for empty identifiers or unknown kinds.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
	// ErrClosed is returned after Store.Close.
	ErrClosed = errors.New("storage closed")
)

// Kind names an independent ledger.
type Kind string

const (
	KindSales    Kind = "sales"
	KindListings Kind = "listings"
)

func (k Kind) valid() bool { return k == KindSales || k == KindListings }

// Ledger is an append-only set of notified identifiers.
//
// Record must be durable before it returns so a crash loses at most the
// in-flight event. Recording an identifier twice is a no-op.
type Ledger interface {
	Contains(ctx context.Context, id string) (bool, error)
	Record(ctx context.Context, id string) error
}

// Store hands out one Ledger per Kind.
type Store interface {
	Ledger(kind Kind) (Ledger, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": Path is a directory holding <kind>.jsonl
//   - "sqlite": Path is the database file
//   - "postgres": DSN is a postgres connection string
//   - "redis": DSN is a redis:// URL (or host:port); KeyPrefix namespaces the sets
//   - "memory": nothing persisted
//
// If Driver is empty, "file" is used.
type Config struct {
	Driver      string
	Path        string
	DSN         string
	KeyPrefix   string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidInput
	}
	return id, nil
}
