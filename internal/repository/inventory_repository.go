package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// InventoryRepo is the ticket ledger for shows. All mutations are single
// guarded UPDATE statements so that concurrent request handlers, possibly
// in different processes, can never drive a counter negative or oversell:
// the WHERE clause is the capacity check and the row update is atomic with
// it. Callers supply the transaction so a reservation and its booking row
// commit or roll back together.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo constructs an InventoryRepo given a DB handle.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// CreateTx inserts the inventory row for a new show with the full capacity
// available and nothing locked.
func (r *InventoryRepo) CreateTx(ctx context.Context, tx *sql.Tx, showID uint64, total uint32) error {
	const q = `INSERT INTO ticket_inventory (show_id, available, locked) VALUES (?, ?, 0)`
	_, err := tx.ExecContext(ctx, q, showID, total)
	return err
}

// Get returns the current inventory counters for a show.
func (r *InventoryRepo) Get(ctx context.Context, showID uint64) (model.TicketInventory, error) {
	const q = `SELECT show_id, available, locked, updated_at FROM ticket_inventory WHERE show_id = ?`
	var inv model.TicketInventory
	err := r.db.QueryRowContext(ctx, q, showID).Scan(&inv.ShowID, &inv.Available, &inv.Locked, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TicketInventory{}, ErrInventoryNotFound
	}
	return inv, err
}

// ReserveTx moves qty tickets from available to locked, failing with
// ErrInsufficientInventory (and no side effects) when fewer than qty are
// available. The availability check and the decrement are one statement.
func (r *InventoryRepo) ReserveTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error {
	const q = `UPDATE ticket_inventory
	           SET available = available - ?, locked = locked + ?
	           WHERE show_id = ? AND available >= ?`
	res, err := tx.ExecContext(ctx, q, qty, qty, showID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missReason(ctx, tx, showID, ErrInsufficientInventory)
	}
	return nil
}

// CommitTx consumes a reservation: the locked tickets are gone for good.
// Available was already decremented at reserve time.
func (r *InventoryRepo) CommitTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error {
	const q = `UPDATE ticket_inventory
	           SET locked = locked - ?
	           WHERE show_id = ? AND locked >= ?`
	return r.guarded(ctx, tx, q, showID, qty)
}

// ReleaseTx reverses a reservation, returning qty tickets from locked to
// available. Used on payment failure, cancellation and expiry.
func (r *InventoryRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error {
	const q = `UPDATE ticket_inventory
	           SET available = available + ?, locked = locked - ?
	           WHERE show_id = ? AND locked >= ?`
	res, err := tx.ExecContext(ctx, q, qty, qty, showID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missReason(ctx, tx, showID, ErrInsufficientInventory)
	}
	return nil
}

// UpdateCapacityTx resizes a show's inventory. Only permitted while no
// tickets are locked or sold, i.e. available still equals the show's
// recorded capacity; the guard is evaluated in the same statement.
func (r *InventoryRepo) UpdateCapacityTx(ctx context.Context, tx *sql.Tx, showID uint64, newTotal uint32) error {
	const q = `UPDATE ticket_inventory ti
	           JOIN shows s ON s.id = ti.show_id
	           SET ti.available = ?
	           WHERE ti.show_id = ? AND ti.locked = 0 AND ti.available = s.total_tickets`
	res, err := tx.ExecContext(ctx, q, newTotal, showID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missReason(ctx, tx, showID, ErrInventoryInUse)
	}
	return nil
}

// guarded executes a two-argument conditional update with the common
// rows-affected handling.
func (r *InventoryRepo) guarded(ctx context.Context, tx *sql.Tx, q string, showID uint64, qty uint32) error {
	res, err := tx.ExecContext(ctx, q, qty, showID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missReason(ctx, tx, showID, ErrInsufficientInventory)
	}
	return nil
}

// missReason distinguishes a missing inventory row from a failed guard so
// callers can surface "not found" and "sold out" differently.
func (r *InventoryRepo) missReason(ctx context.Context, tx *sql.Tx, showID uint64, guardErr error) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM ticket_inventory WHERE show_id = ?`, showID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInventoryNotFound
	}
	if err != nil {
		return err
	}
	return guardErr
}
