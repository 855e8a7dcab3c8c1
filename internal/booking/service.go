// Package booking owns the booking lifecycle: creation against live ticket
// inventory, reconciliation of asynchronous payment outcomes, the admin
// door-sale override, and expiry of abandoned checkouts. All state lives in
// the database; every transition runs inside one transaction so the
// inventory ledger and the booking row can never disagree.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/laughtrack/comedy-ticketing/internal/fee"
	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/queue"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
)

// Booking-rule violations surfaced to the HTTP boundary. Inventory
// exhaustion is deliberately distinct from validation failures so clients
// can render "sold out" instead of "bad request".
var (
	ErrSoldOut          = errors.New("sold out")
	ErrInvalidQuantity  = errors.New("quantity must be between 1 and 10")
	ErrAmountTooLarge   = errors.New("order total exceeds supported amount")
	ErrShowNotBookable  = errors.New("show is not open for booking")
	ErrDuplicateBooking = errors.New("user already has a pending booking for this show")
	ErrNotFound         = errors.New("booking not found")
	ErrNotPending       = errors.New("booking is not pending")
)

// Quantity bounds for a single booking.
const (
	minQuantity = 1
	maxQuantity = 10
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// InventoryStore is the ticket ledger contract the state machine drives.
type InventoryStore interface {
	ReserveTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error
	CommitTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, showID uint64, qty uint32) error
}

// BookingStore persists booking rows and guarded status transitions.
type BookingStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error)
	GetByOrderRefTx(ctx context.Context, tx *sql.Tx, orderRef string) (model.Booking, error)
	HasActiveTx(ctx context.Context, tx *sql.Tx, userID, showID uint64) (bool, error)
	TransitionTx(ctx context.Context, tx *sql.Tx, bookingID uint64, from, to model.BookingStatus, paymentID *string) (bool, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// ShowStore looks up shows for bookability checks and event payloads.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (model.Show, error)
}

// FeeSource supplies the current platform fee configuration.
type FeeSource interface {
	Get(ctx context.Context) (model.PlatformConfig, error)
}

// OrderCreator registers a checkout order with the payment gateway.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amountCents uint32, receipt string) (string, error)
}

// Publisher emits a booking-confirmed event; best effort.
type Publisher func(ctx context.Context, event queue.BookingConfirmedEvent) error

// Service implements the booking state machine.
type Service struct {
	tx        TxRunner
	inventory InventoryStore
	bookings  BookingStore
	shows     ShowStore
	fees      FeeSource
	gateway   OrderCreator
	publish   Publisher // nil disables event publication
	holdTTL   time.Duration
	now       func() time.Time
}

// NewService wires the state machine. holdTTL bounds how long a PENDING
// booking may hold inventory before the sweep reclaims it.
func NewService(tx TxRunner, inv InventoryStore, bookings BookingStore, shows ShowStore, fees FeeSource, gateway OrderCreator, publish Publisher, holdTTL time.Duration) *Service {
	if tx == nil || inv == nil || bookings == nil || shows == nil || fees == nil || gateway == nil {
		panic("nil dependency passed to booking.NewService")
	}
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &Service{
		tx:        tx,
		inventory: inv,
		bookings:  bookings,
		shows:     shows,
		fees:      fees,
		gateway:   gateway,
		publish:   publish,
		holdTTL:   holdTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create reserves inventory and persists a PENDING booking, returning it
// with the gateway order reference the client completes checkout against.
//
// Validation order: quantity bounds, show bookable (published and in the
// future), then inside the transaction the one-active-booking rule and the
// inventory reservation. Reservation failure surfaces as ErrSoldOut.
func (s *Service) Create(ctx context.Context, userID, showID uint64, qty uint32) (model.Booking, error) {
	if qty < minQuantity || qty > maxQuantity {
		return model.Booking{}, ErrInvalidQuantity
	}

	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return model.Booking{}, err
	}
	if !show.IsPublished || !show.StartsAt.After(s.now()) {
		return model.Booking{}, ErrShowNotBookable
	}

	cfg, err := s.fees.Get(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	amounts, err := fee.Compute(cfg, show.TicketPriceCents, qty, show.CustomFeePercent)
	if err != nil {
		return model.Booking{}, err
	}
	// The stored total is uint32; multiply wide so an extreme price cannot
	// silently wrap.
	total64 := uint64(show.TicketPriceCents) * uint64(qty)
	if total64 > math.MaxUint32 {
		return model.Booking{}, ErrAmountTooLarge
	}
	total := uint32(total64)

	var created model.Booking
	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		active, err := s.bookings.HasActiveTx(ctx, tx, userID, showID)
		if err != nil {
			return err
		}
		if active {
			return ErrDuplicateBooking
		}

		if err := s.inventory.ReserveTx(ctx, tx, showID, qty); err != nil {
			if errors.Is(err, repository.ErrInsufficientInventory) {
				return ErrSoldOut
			}
			return err
		}

		orderRef, err := s.gateway.CreateOrder(ctx, total, fmt.Sprintf("show-%d-user-%d", showID, userID))
		if err != nil {
			return err
		}

		b := model.Booking{
			ShowID:           showID,
			UserID:           userID,
			Quantity:         qty,
			TotalAmountCents: total,
			PlatformFeeCents: amounts.PlatformFeeCents,
			BookingFeeCents:  amounts.BookingFeeCents,
			Status:           model.BookingPending,
			OrderRef:         orderRef,
		}
		if err := s.bookings.CreateTx(ctx, tx, &b); err != nil {
			if errors.Is(err, repository.ErrActiveBookingExists) {
				return ErrDuplicateBooking
			}
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return created, nil
}

// ProcessPaymentSuccess finalizes the PENDING booking identified by the
// gateway order reference: inventory is committed and the booking becomes
// CONFIRMED with the payment ID recorded. Replays for an already-CONFIRMED
// booking are silent no-ops; an unknown order reference returns ErrNotFound
// so the webhook handler can answer 404. A late capture for a booking that
// already expired or failed is acknowledged without reviving it — the
// tickets may have been resold.
func (s *Service) ProcessPaymentSuccess(ctx context.Context, orderRef, paymentID string) error {
	var confirmed *model.Booking
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByOrderRefTx(ctx, tx, orderRef)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.Status == model.BookingConfirmed {
			return nil // duplicate delivery
		}
		if b.Status.Terminal() {
			log.Printf("booking: late capture for %s booking %d (order %s); not re-confirming", b.Status, b.ID, orderRef)
			return nil
		}

		moved, err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingConfirmed, &paymentID)
		if err != nil {
			return err
		}
		if !moved {
			return nil // lost the race to a concurrent delivery
		}
		if err := s.inventory.CommitTx(ctx, tx, b.ShowID, b.Quantity); err != nil {
			return err
		}
		b.Status = model.BookingConfirmed
		b.PaymentID = &paymentID
		confirmed = &b
		return nil
	})
	if err != nil {
		return err
	}
	if confirmed != nil {
		s.announce(ctx, *confirmed, false)
	}
	return nil
}

// ProcessPaymentFailure releases the reservation of the PENDING booking for
// orderRef and marks it FAILED. Idempotent under webhook replay.
func (s *Service) ProcessPaymentFailure(ctx context.Context, orderRef string) error {
	return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByOrderRefTx(ctx, tx, orderRef)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.Status.Terminal() {
			return nil // duplicate delivery or already swept
		}

		moved, err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingFailed, nil)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return s.inventory.ReleaseTx(ctx, tx, b.ShowID, b.Quantity)
	})
}

// ConfirmUnpaid is the administrative override for door sales and comps:
// a PENDING booking is confirmed without a gateway payment, consuming its
// reservation. Fails with ErrNotPending once the booking left PENDING.
func (s *Service) ConfirmUnpaid(ctx context.Context, bookingID uint64) (model.Booking, error) {
	var out model.Booking
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		b, err := s.bookings.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.Status != model.BookingPending {
			return ErrNotPending
		}

		moved, err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingConfirmedUnpaid, nil)
		if err != nil {
			return err
		}
		if !moved {
			return ErrNotPending
		}
		if err := s.inventory.CommitTx(ctx, tx, b.ShowID, b.Quantity); err != nil {
			return err
		}
		b.Status = model.BookingConfirmedUnpaid
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.announce(ctx, out, true)
	return out, nil
}

// ExpireStale reclaims inventory from PENDING bookings older than the hold
// TTL, transitioning each to CANCELLED through the same guarded release
// path as an explicit failure. Each booking is re-checked under a row lock
// inside its own transaction, so a payment webhook racing the sweep wins
// or loses cleanly. Returns the number of bookings cancelled.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.holdTTL)
	stale, err := s.bookings.ListExpiredPending(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, cand := range stale {
		err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
			b, err := s.bookings.GetByOrderRefTx(ctx, tx, cand.OrderRef)
			if err != nil {
				if errors.Is(err, repository.ErrBookingNotFound) {
					return nil
				}
				return err
			}
			if b.Status != model.BookingPending {
				return nil // finalized since listing
			}
			moved, err := s.bookings.TransitionTx(ctx, tx, b.ID, model.BookingPending, model.BookingCancelled, nil)
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			if err := s.inventory.ReleaseTx(ctx, tx, b.ShowID, b.Quantity); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// Get returns one booking by ID.
func (s *Service) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// ListForUser returns the user's bookings, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// announce publishes a booking-confirmed event after the transaction
// committed. Publishing failures are logged inside the publisher and never
// affect the booking.
func (s *Service) announce(ctx context.Context, b model.Booking, paidAtDoor bool) {
	if s.publish == nil {
		return
	}
	show, err := s.shows.GetByID(ctx, b.ShowID)
	if err != nil {
		log.Printf("booking: show lookup for event failed: %v", err)
		return
	}
	_ = s.publish(ctx, queue.BookingConfirmedEvent{
		BookingID:        b.ID,
		OrderRef:         b.OrderRef,
		UserID:           b.UserID,
		ShowID:           b.ShowID,
		ShowTitle:        show.Title,
		Venue:            show.Venue,
		StartsAt:         show.StartsAt.Format(time.RFC3339),
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		PlatformFeeCents: b.PlatformFeeCents,
		PaidAtDoor:       paidAtDoor,
		ConfirmedAt:      s.now().Format(time.RFC3339),
	})
}
