// Package storage provides the dedup ledger used by the notification pipeline.
//
// A ledger is a durable set of identifiers that have already been notified.
// There is one ledger per event kind (sales, listings) because the identifier
// spaces differ: sales carry a native transaction id while listings use a
// derived composite key.
//
// Drivers:
//   - file:     one JSON Lines file per kind (default)
//   - sqlite:   single database file, modernc.org/sqlite (no cgo)
//   - postgres: shared database, pgx v5
//   - redis:    one set per kind
//   - memory:   process-local, for tests and dry runs
package storage
