// Package repository contains data access logic for marketplace aggregates.
// This file covers shows and their comedian lineups. A Show is a scheduled
// comedy event created by an organizer; its ticket capacity lives in the
// ticket_inventory table and is managed by InventoryRepo.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// ShowRepo manages persistence for shows and lineups.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo { return &ShowRepo{db: db} }

// DB exposes the underlying sql.DB. It allows callers to begin transactions
// spanning multiple repositories.
func (r *ShowRepo) DB() *sql.DB { return r.db }

const showCols = `id, creator_id, title, venue, starts_at, ticket_price_cents,
	total_tickets, is_published, is_disbursed, custom_fee_percent, created_at, updated_at`

func scanShow(row *sql.Row) (model.Show, error) {
	var s model.Show
	err := row.Scan(&s.ID, &s.CreatorID, &s.Title, &s.Venue, &s.StartsAt,
		&s.TicketPriceCents, &s.TotalTickets, &s.IsPublished, &s.IsDisbursed,
		&s.CustomFeePercent, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateTx inserts a new show using the provided transaction. On success
// the generated ID and DB-default fields are populated on the given Show.
// The caller is responsible for also creating the inventory row and the
// lineup within the same transaction.
func (r *ShowRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error {
	const q = `INSERT INTO shows
	           (creator_id, title, venue, starts_at, ticket_price_cents, total_tickets, custom_fee_percent)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.CreatorID, s.Title, s.Venue, s.StartsAt.UTC(),
		s.TicketPriceCents, s.TotalTickets, s.CustomFeePercent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + showCols + ` FROM shows WHERE id = ?`
	created, err := scanShow(tx.QueryRowContext(ctx, sel, s.ID))
	if err != nil {
		return err
	}
	*s = created
	return nil
}

// GetByID retrieves a show by its ID. It returns ErrShowNotFound if there
// is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	const q = `SELECT ` + showCols + ` FROM shows WHERE id = ?`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Show{}, ErrShowNotFound
	}
	return s, err
}

// UpdateTx updates the mutable fields of an unpublished show. Published
// shows are locked down by the service layer; the WHERE clause here is a
// second line of defense.
func (r *ShowRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error {
	const q = `UPDATE shows
	           SET title = ?, venue = ?, starts_at = ?, ticket_price_cents = ?,
	               total_tickets = ?, custom_fee_percent = ?
	           WHERE id = ? AND is_published = 0`
	res, err := tx.ExecContext(ctx, q, s.Title, s.Venue, s.StartsAt.UTC(),
		s.TicketPriceCents, s.TotalTickets, s.CustomFeePercent, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}

// SetPublished flips the publication flag. Guard conditions (lineup, date,
// capacity, active bookings) are enforced by the show service before this
// is called.
func (r *ShowRepo) SetPublished(ctx context.Context, id uint64, published bool) error {
	const q = `UPDATE shows SET is_published = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, published, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowNotFound
	}
	return nil
}

// SetDisbursed marks a show's organizer payout as reconciled. The guard
// refuses a second disbursement.
func (r *ShowRepo) SetDisbursed(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE shows SET is_disbursed = 1 WHERE id = ? AND is_disbursed = 0`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListPublished returns published shows with their remaining availability,
// soonest first. Availability comes from the inventory row so browsing
// reflects live reservations.
func (r *ShowRepo) ListPublished(ctx context.Context) ([]model.Show, map[uint64]uint32, error) {
	const q = `SELECT s.id, s.creator_id, s.title, s.venue, s.starts_at, s.ticket_price_cents,
	                  s.total_tickets, s.is_published, s.is_disbursed, s.custom_fee_percent,
	                  s.created_at, s.updated_at, ti.available
	           FROM shows s
	           JOIN ticket_inventory ti ON ti.show_id = s.id
	           WHERE s.is_published = 1
	           ORDER BY s.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var shows []model.Show
	avail := make(map[uint64]uint32)
	for rows.Next() {
		var s model.Show
		var a uint32
		if err := rows.Scan(&s.ID, &s.CreatorID, &s.Title, &s.Venue, &s.StartsAt,
			&s.TicketPriceCents, &s.TotalTickets, &s.IsPublished, &s.IsDisbursed,
			&s.CustomFeePercent, &s.CreatedAt, &s.UpdatedAt, &a); err != nil {
			return nil, nil, err
		}
		shows = append(shows, s)
		avail[s.ID] = a
	}
	return shows, avail, rows.Err()
}

// ListByCreator returns all shows owned by the given organizer, newest
// first.
func (r *ShowRepo) ListByCreator(ctx context.Context, creatorID uint64) ([]model.Show, error) {
	const q = `SELECT ` + showCols + ` FROM shows WHERE creator_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.CreatorID, &s.Title, &s.Venue, &s.StartsAt,
			&s.TicketPriceCents, &s.TotalTickets, &s.IsPublished, &s.IsDisbursed,
			&s.CustomFeePercent, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceLineupTx replaces the comedian lineup of a show inside the given
// transaction.
func (r *ShowRepo) ReplaceLineupTx(ctx context.Context, tx *sql.Tx, showID uint64, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM show_comedians WHERE show_id = ?`, showID); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	query := `INSERT INTO show_comedians (show_id, name) VALUES `
	args := make([]any, 0, len(names)*2)
	for i, name := range names {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, showID, name)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Lineup returns the comedian names booked for a show.
func (r *ShowRepo) Lineup(ctx context.Context, showID uint64) ([]string, error) {
	const q = `SELECT name FROM show_comedians WHERE show_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, showID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// CountComedians returns the lineup size; publication requires at least one
// comedian.
func (r *ShowRepo) CountComedians(ctx context.Context, showID uint64) (int64, error) {
	const q = `SELECT COUNT(*) FROM show_comedians WHERE show_id = ?`
	var n int64
	err := r.db.QueryRowContext(ctx, q, showID).Scan(&n)
	return n, err
}
