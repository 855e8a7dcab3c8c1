package repository

import (
	"context"
	"database/sql"
)

// TxRunner wraps a *sql.DB to execute a function inside one transaction.
// The transaction is rolled back unless fn returns nil, at which point it
// is committed. Every multi-statement mutation in the system (reserve +
// booking insert, webhook commit, expiry release) runs through here so the
// database, not process memory, arbitrates concurrent access.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner bound to the provided database.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// RunTx begins a transaction, invokes fn with it and commits when fn
// succeeds. Any error from fn or from commit is returned after rollback.
func (r *TxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
