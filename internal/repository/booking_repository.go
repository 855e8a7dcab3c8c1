package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

// BookingRepo persists bookings and enforces the state machine at the
// storage boundary: status changes go through TransitionTx, whose WHERE
// clause pins the expected current status. A replayed webhook therefore
// matches zero rows instead of double-transitioning.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `id, show_id, user_id, quantity, total_amount_cents,
	platform_fee_cents, booking_fee_cents, status, order_ref, payment_id,
	created_at, updated_at`

func scanBooking(row *sql.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.ShowID, &b.UserID, &b.Quantity, &b.TotalAmountCents,
		&b.PlatformFeeCents, &b.BookingFeeCents, &b.Status, &b.OrderRef, &b.PaymentID,
		&b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateTx inserts a new booking in PENDING state and populates the
// generated ID and timestamps on the provided struct. The bookings table
// carries a generated `active` column (1 while PENDING, NULL otherwise)
// under a UNIQUE KEY on (user_id, show_id, active), so a second concurrent
// insert for the same user and show is rejected by the database itself and
// surfaces as ErrActiveBookingExists. HasActiveTx is only the friendly
// pre-check; this constraint is the invariant.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (show_id, user_id, quantity, total_amount_cents, platform_fee_cents,
	            booking_fee_cents, status, order_ref)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.ShowID, b.UserID, b.Quantity, b.TotalAmountCents,
		b.PlatformFeeCents, b.BookingFeeCents, b.Status, b.OrderRef)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrActiveBookingExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	created, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = created
	return nil
}

// GetByID fetches one booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// GetByIDTx fetches one booking by primary key with a row lock, serializing
// concurrent transition attempts on the same booking.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// GetByOrderRefTx fetches the booking for a gateway order reference with a
// row lock. Webhook reconciliation is keyed on this lookup; order_ref has a
// unique index so at most one booking can match.
func (r *BookingRepo) GetByOrderRefTx(ctx context.Context, tx *sql.Tx, orderRef string) (model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE order_ref = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, orderRef))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// HasActiveTx reports whether the user already holds a non-terminal booking
// for the show. PENDING is the only non-terminal status. This is a
// snapshot read used to answer early with a clear error; two transactions
// racing past it are caught by the unique key checked in CreateTx.
func (r *BookingRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, userID, showID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE user_id = ? AND show_id = ? AND status = ?`
	var n int64
	if err := tx.QueryRowContext(ctx, q, userID, showID, model.BookingPending).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// TransitionTx moves a booking from one status to another, optionally
// recording the gateway payment ID. It reports whether a row actually
// changed; false means the booking was no longer in the expected status,
// which callers treat as an idempotent replay rather than an error.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, bookingID uint64, from, to model.BookingStatus, paymentID *string) (bool, error) {
	const q = `UPDATE bookings
	           SET status = ?, payment_id = COALESCE(?, payment_id)
	           WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, to, paymentID, bookingID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListExpiredPending returns PENDING bookings created before the cutoff.
// The sweeper uses this as its candidate list; each candidate is re-checked
// under a row lock before being released.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
	           WHERE status = ? AND created_at < ? ORDER BY id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, model.BookingPending, cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ShowID, &b.UserID, &b.Quantity, &b.TotalAmountCents,
			&b.PlatformFeeCents, &b.BookingFeeCents, &b.Status, &b.OrderRef, &b.PaymentID,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountNonTerminalByShow counts bookings that still hold inventory for a
// show. Unpublishing is blocked while this is non-zero.
func (r *BookingRepo) CountNonTerminalByShow(ctx context.Context, showID uint64) (int64, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE show_id = ? AND status = ?`
	var n int64
	err := r.db.QueryRowContext(ctx, q, showID, model.BookingPending).Scan(&n)
	return n, err
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE user_id = ? ORDER BY id DESC`
	return r.list(ctx, q, userID)
}

// ListByShow returns all bookings for a show, oldest first.
func (r *BookingRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE show_id = ? ORDER BY id ASC`
	return r.list(ctx, q, showID)
}

// SumConfirmedByShow totals the gross revenue and platform fees of
// confirmed bookings for payout reconciliation. CONFIRMED_UNPAID bookings
// are included in gross but collected at the door, so they are reported
// separately.
func (r *BookingRepo) SumConfirmedByShow(ctx context.Context, showID uint64) (gross, fees, unpaid uint64, err error) {
	const q = `SELECT
	             COALESCE(SUM(CASE WHEN status IN (?, ?) THEN total_amount_cents ELSE 0 END), 0),
	             COALESCE(SUM(CASE WHEN status IN (?, ?) THEN platform_fee_cents ELSE 0 END), 0),
	             COALESCE(SUM(CASE WHEN status = ? THEN total_amount_cents ELSE 0 END), 0)
	           FROM bookings WHERE show_id = ?`
	err = r.db.QueryRowContext(ctx, q,
		model.BookingConfirmed, model.BookingConfirmedUnpaid,
		model.BookingConfirmed, model.BookingConfirmedUnpaid,
		model.BookingConfirmedUnpaid, showID).Scan(&gross, &fees, &unpaid)
	return
}

func (r *BookingRepo) list(ctx context.Context, q string, arg any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ShowID, &b.UserID, &b.Quantity, &b.TotalAmountCents,
			&b.PlatformFeeCents, &b.BookingFeeCents, &b.Status, &b.OrderRef, &b.PaymentID,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
