package repository

// DB-backed tests for the booking rows, mirroring the inventory suite:
// the one-active-booking-per-user-per-show rule lives in a unique key over
// a generated column, so it has to be exercised against real MySQL. Skipped
// unless TEST_DB_DSN is set.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laughtrack/comedy-ticketing/internal/model"
)

func testBookingDB(t *testing.T) *sql.DB {
	t.Helper()
	db := testDB(t)

	// `active` is 1 only while the booking is PENDING, NULL otherwise;
	// NULLs never collide in a unique index, so terminal bookings free the
	// slot and only a second concurrent PENDING insert is rejected.
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		show_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		quantity INT UNSIGNED NOT NULL,
		total_amount_cents INT UNSIGNED NOT NULL,
		platform_fee_cents INT UNSIGNED NOT NULL,
		booking_fee_cents INT UNSIGNED NOT NULL,
		status VARCHAR(32) NOT NULL,
		order_ref VARCHAR(128) NOT NULL,
		payment_id VARCHAR(128) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		active TINYINT GENERATED ALWAYS AS (IF(status = 'PENDING', 1, NULL)) VIRTUAL,
		UNIQUE KEY uniq_order_ref (order_ref),
		UNIQUE KEY uniq_active_booking (user_id, show_id, active)
	)`)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM bookings`)
	})
	return db
}

func pendingBooking(userID, showID uint64, orderRef string) *model.Booking {
	return &model.Booking{
		ShowID:           showID,
		UserID:           userID,
		Quantity:         1,
		TotalAmountCents: 2500,
		PlatformFeeCents: 250,
		BookingFeeCents:  50,
		Status:           model.BookingPending,
		OrderRef:         orderRef,
	}
}

// TestConcurrentCreatesOnePendingPerUser races many inserts for the same
// user and show and checks the database admits exactly one PENDING row,
// regardless of what any snapshot pre-check saw.
func TestConcurrentCreatesOnePendingPerUser(t *testing.T) {
	db := testBookingDB(t)
	repo := NewBookingRepo(db)
	inv := NewInventoryRepo(db)
	runner := NewTxRunner(db)
	ctx := context.Background()

	showID := seedShow(t, db, 20)
	const attempts = 10

	var successes, duplicates atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := runner.RunTx(ctx, func(tx *sql.Tx) error {
				// Same order as the booking service: snapshot pre-check,
				// then reserve, then insert.
				if active, err := repo.HasActiveTx(ctx, tx, 7, showID); err != nil {
					return err
				} else if active {
					return ErrActiveBookingExists
				}
				if err := inv.ReserveTx(ctx, tx, showID, 1); err != nil {
					return err
				}
				return repo.CreateTx(ctx, tx, pendingBooking(7, showID, fmt.Sprintf("order_test_%d", i)))
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrActiveBookingExists):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load(), "exactly one PENDING booking may exist")
	assert.Equal(t, int32(attempts-1), duplicates.Load())

	// The losing transactions rolled back their reservations.
	stock, err := inv.Get(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stock.Locked)
	assert.Equal(t, uint32(19), stock.Available)
}

// TestTerminalBookingFreesActiveSlot checks that leaving PENDING releases
// the unique key so the user can book the same show again.
func TestTerminalBookingFreesActiveSlot(t *testing.T) {
	db := testBookingDB(t)
	repo := NewBookingRepo(db)
	runner := NewTxRunner(db)
	ctx := context.Background()

	showID := seedShow(t, db, 5)

	first := pendingBooking(7, showID, "order_free_1")
	require.NoError(t, runner.RunTx(ctx, func(tx *sql.Tx) error {
		return repo.CreateTx(ctx, tx, first)
	}))

	// A second PENDING insert is rejected while the first is live.
	err := runner.RunTx(ctx, func(tx *sql.Tx) error {
		return repo.CreateTx(ctx, tx, pendingBooking(7, showID, "order_free_2"))
	})
	assert.ErrorIs(t, err, ErrActiveBookingExists)

	// Cancel the first; the slot opens up.
	require.NoError(t, runner.RunTx(ctx, func(tx *sql.Tx) error {
		moved, err := repo.TransitionTx(ctx, tx, first.ID, model.BookingPending, model.BookingCancelled, nil)
		require.True(t, moved)
		return err
	}))
	require.NoError(t, runner.RunTx(ctx, func(tx *sql.Tx) error {
		return repo.CreateTx(ctx, tx, pendingBooking(7, showID, "order_free_3"))
	}))
}
