// Package show implements organizer show management and the publication
// guard: a show only goes on sale once it has a lineup, a future date and
// ticket capacity, and it only comes off sale once no booking still holds
// inventory.
package show

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
)

var (
	ErrInvalidTitle      = errors.New("title is required")
	ErrInvalidCapacity   = errors.New("total tickets must be at least 1")
	ErrInvalidPrice      = errors.New("ticket price exceeds the supported maximum")
	ErrInvalidFeePercent = errors.New("custom fee percent must be between 0 and 1")
	ErrPublished         = errors.New("published shows cannot be edited")
	ErrNoComedians       = errors.New("show needs at least one comedian to publish")
	ErrPastShow          = errors.New("show date is not in the future")
	ErrCapacityLocked    = errors.New("capacity cannot change while tickets are reserved or sold")
	ErrHasActiveBookings = errors.New("show has bookings holding inventory")
	ErrShowNotEnded      = errors.New("show has not ended yet")
	ErrAlreadyDisbursed  = errors.New("show payout already disbursed")
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// ShowStore is the persistence contract for shows and lineups.
type ShowStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error
	GetByID(ctx context.Context, id uint64) (model.Show, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error
	SetPublished(ctx context.Context, id uint64, published bool) error
	SetDisbursed(ctx context.Context, id uint64) (bool, error)
	ListPublished(ctx context.Context) ([]model.Show, map[uint64]uint32, error)
	ListByCreator(ctx context.Context, creatorID uint64) ([]model.Show, error)
	ReplaceLineupTx(ctx context.Context, tx *sql.Tx, showID uint64, names []string) error
	Lineup(ctx context.Context, showID uint64) ([]string, error)
	CountComedians(ctx context.Context, showID uint64) (int64, error)
}

// InventoryStore covers the inventory operations show management needs.
type InventoryStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, showID uint64, total uint32) error
	UpdateCapacityTx(ctx context.Context, tx *sql.Tx, showID uint64, newTotal uint32) error
	Get(ctx context.Context, showID uint64) (model.TicketInventory, error)
}

// BookingReader gives the guard read access to booking state.
type BookingReader interface {
	CountNonTerminalByShow(ctx context.Context, showID uint64) (int64, error)
	SumConfirmedByShow(ctx context.Context, showID uint64) (gross, fees, unpaid uint64, err error)
	ListByShow(ctx context.Context, showID uint64) ([]model.Booking, error)
}

// Input carries the organizer-editable fields of a show.
type Input struct {
	Title            string
	Venue            string
	StartsAt         time.Time
	TicketPriceCents uint32
	TotalTickets     uint32
	CustomFeePercent *float64
	Comedians        []string
}

// Disbursement summarizes the payout for a finished show.
type Disbursement struct {
	ShowID           uint64 `json:"show_id"`
	GrossCents       uint64 `json:"gross_cents"`
	PlatformFeeCents uint64 `json:"platform_fee_cents"`
	DoorCents        uint64 `json:"door_collect_cents"`
	NetPayoutCents   uint64 `json:"net_payout_cents"`
}

// Service implements show management on top of the repositories.
type Service struct {
	tx        TxRunner
	shows     ShowStore
	inventory InventoryStore
	bookings  BookingReader
	now       func() time.Time
}

// NewService wires the show service.
func NewService(tx TxRunner, shows ShowStore, inv InventoryStore, bookings BookingReader) *Service {
	return &Service{
		tx:        tx,
		shows:     shows,
		inventory: inv,
		bookings:  bookings,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// maxTicketPriceCents caps a ticket at one million dollars. Order totals
// are stored in uint32 cents, so the cap keeps any total (price times the
// per-booking quantity limit) well inside that range.
const maxTicketPriceCents = 100_000_000

func validateInput(in Input) error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrInvalidTitle
	}
	if in.TotalTickets < 1 {
		return ErrInvalidCapacity
	}
	if in.TicketPriceCents > maxTicketPriceCents {
		return ErrInvalidPrice
	}
	if in.CustomFeePercent != nil && (*in.CustomFeePercent < 0 || *in.CustomFeePercent > 1) {
		return ErrInvalidFeePercent
	}
	return nil
}

// authorize permits the show's creator and admins.
func authorize(s model.Show, actorID uint64, role string) error {
	if role == model.RoleAdmin || s.CreatorID == actorID {
		return nil
	}
	return repository.ErrForbidden
}

// Create persists a new draft show together with its lineup and inventory
// row. Drafts are invisible to the public until published.
func (s *Service) Create(ctx context.Context, creatorID uint64, in Input) (model.Show, error) {
	if err := validateInput(in); err != nil {
		return model.Show{}, err
	}
	show := model.Show{
		CreatorID:        creatorID,
		Title:            strings.TrimSpace(in.Title),
		Venue:            strings.TrimSpace(in.Venue),
		StartsAt:         in.StartsAt.UTC(),
		TicketPriceCents: in.TicketPriceCents,
		TotalTickets:     in.TotalTickets,
		CustomFeePercent: in.CustomFeePercent,
	}
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		if err := s.shows.CreateTx(ctx, tx, &show); err != nil {
			return err
		}
		if err := s.inventory.CreateTx(ctx, tx, show.ID, show.TotalTickets); err != nil {
			return err
		}
		return s.shows.ReplaceLineupTx(ctx, tx, show.ID, in.Comedians)
	})
	if err != nil {
		return model.Show{}, err
	}
	return show, nil
}

// Update replaces the editable fields of an unpublished show. A capacity
// change resizes the inventory row first; the resize is refused once any
// ticket is reserved or sold. The inventory update must run before the show
// row update because its guard compares against the currently recorded
// capacity.
func (s *Service) Update(ctx context.Context, actorID uint64, role string, showID uint64, in Input) (model.Show, error) {
	if err := validateInput(in); err != nil {
		return model.Show{}, err
	}
	current, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return model.Show{}, err
	}
	if err := authorize(current, actorID, role); err != nil {
		return model.Show{}, err
	}
	if current.IsPublished {
		return model.Show{}, ErrPublished
	}

	updated := current
	updated.Title = strings.TrimSpace(in.Title)
	updated.Venue = strings.TrimSpace(in.Venue)
	updated.StartsAt = in.StartsAt.UTC()
	updated.TicketPriceCents = in.TicketPriceCents
	updated.TotalTickets = in.TotalTickets
	updated.CustomFeePercent = in.CustomFeePercent

	err = s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		if in.TotalTickets != current.TotalTickets {
			if err := s.inventory.UpdateCapacityTx(ctx, tx, showID, in.TotalTickets); err != nil {
				if errors.Is(err, repository.ErrInventoryInUse) {
					return ErrCapacityLocked
				}
				return err
			}
		}
		if err := s.shows.UpdateTx(ctx, tx, &updated); err != nil {
			return err
		}
		if in.Comedians != nil {
			return s.shows.ReplaceLineupTx(ctx, tx, showID, in.Comedians)
		}
		return nil
	})
	if err != nil {
		return model.Show{}, err
	}
	return updated, nil
}

// Publish puts a show on sale. The guard requires at least one comedian on
// the lineup, a strictly future start time and nonzero capacity.
func (s *Service) Publish(ctx context.Context, actorID uint64, role string, showID uint64) (model.Show, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return model.Show{}, err
	}
	if err := authorize(show, actorID, role); err != nil {
		return model.Show{}, err
	}
	if show.IsPublished {
		return show, nil // idempotent
	}
	n, err := s.shows.CountComedians(ctx, showID)
	if err != nil {
		return model.Show{}, err
	}
	if n == 0 {
		return model.Show{}, ErrNoComedians
	}
	if !show.StartsAt.After(s.now()) {
		return model.Show{}, ErrPastShow
	}
	if show.TotalTickets == 0 {
		return model.Show{}, ErrInvalidCapacity
	}
	if err := s.shows.SetPublished(ctx, showID, true); err != nil {
		return model.Show{}, err
	}
	show.IsPublished = true
	return show, nil
}

// Unpublish takes a show off sale. Refused while any booking still holds
// inventory, so paid customers cannot be stranded on a hidden show.
func (s *Service) Unpublish(ctx context.Context, actorID uint64, role string, showID uint64) (model.Show, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return model.Show{}, err
	}
	if err := authorize(show, actorID, role); err != nil {
		return model.Show{}, err
	}
	if !show.IsPublished {
		return show, nil // idempotent
	}
	n, err := s.bookings.CountNonTerminalByShow(ctx, showID)
	if err != nil {
		return model.Show{}, err
	}
	if n > 0 {
		return model.Show{}, ErrHasActiveBookings
	}
	if err := s.shows.SetPublished(ctx, showID, false); err != nil {
		return model.Show{}, err
	}
	show.IsPublished = false
	return show, nil
}

// Disburse reconciles a finished show's payout: gross confirmed revenue
// minus the platform's fees, with door-collected amounts reported
// separately because the platform never held that money. A show disburses
// once.
func (s *Service) Disburse(ctx context.Context, showID uint64) (Disbursement, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return Disbursement{}, err
	}
	if !show.StartsAt.Before(s.now()) {
		return Disbursement{}, ErrShowNotEnded
	}
	gross, fees, unpaid, err := s.bookings.SumConfirmedByShow(ctx, showID)
	if err != nil {
		return Disbursement{}, err
	}
	ok, err := s.shows.SetDisbursed(ctx, showID)
	if err != nil {
		return Disbursement{}, err
	}
	if !ok {
		return Disbursement{}, ErrAlreadyDisbursed
	}
	// The platform only held the gateway-collected portion; door sales were
	// collected by the organizer directly. Fees owed can exceed the held
	// amount when most sales were at the door, so clamp at zero and leave
	// the shortfall to invoicing.
	collected := gross - unpaid
	var net uint64
	if collected > fees {
		net = collected - fees
	}
	return Disbursement{
		ShowID:           showID,
		GrossCents:       gross,
		PlatformFeeCents: fees,
		DoorCents:        unpaid,
		NetPayoutCents:   net,
	}, nil
}

// Detail is a show with its lineup and live availability.
type Detail struct {
	Show      model.Show
	Comedians []string
	Available uint32
}

// Get returns a show's public detail. Unpublished shows are visible only to
// their creator and admins; pass actorID 0 and an empty role for anonymous
// access.
func (s *Service) Get(ctx context.Context, actorID uint64, role string, showID uint64) (Detail, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return Detail{}, err
	}
	if !show.IsPublished {
		if err := authorize(show, actorID, role); err != nil {
			return Detail{}, repository.ErrShowNotFound // hide drafts
		}
	}
	lineup, err := s.shows.Lineup(ctx, showID)
	if err != nil {
		return Detail{}, err
	}
	inv, err := s.inventory.Get(ctx, showID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Show: show, Comedians: lineup, Available: inv.Available}, nil
}

// ListPublished returns shows currently on sale with remaining
// availability, soonest first.
func (s *Service) ListPublished(ctx context.Context) ([]model.Show, map[uint64]uint32, error) {
	return s.shows.ListPublished(ctx)
}

// ListMine returns all shows owned by the organizer, drafts included.
func (s *Service) ListMine(ctx context.Context, creatorID uint64) ([]model.Show, error) {
	return s.shows.ListByCreator(ctx, creatorID)
}

// Bookings lists a show's bookings for its organizer or an admin.
func (s *Service) Bookings(ctx context.Context, actorID uint64, role string, showID uint64) ([]model.Booking, error) {
	show, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if err := authorize(show, actorID, role); err != nil {
		return nil, err
	}
	return s.bookings.ListByShow(ctx, showID)
}
