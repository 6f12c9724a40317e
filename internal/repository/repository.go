// Package repository provides database access for the entitlement service.
//
// Queries are written directly against Postgres via database/sql (pgx stdlib
// driver). The Store works with either a *sql.DB or a *sql.Tx through the
// DBTX interface, so callers can compose queries into transactions.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store executes queries against the given database handle.
type Store struct {
	db DBTX
}

// New creates a Store bound to the given database handle.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store that runs all queries inside the given transaction.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx}
}
