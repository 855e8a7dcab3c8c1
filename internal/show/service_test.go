package show

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
)

type fakeTx struct{}

func (fakeTx) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fakeShowStore struct {
	nextID  uint64
	rows    map[uint64]*model.Show
	lineups map[uint64][]string
}

func newFakeShowStore() *fakeShowStore {
	return &fakeShowStore{nextID: 1, rows: map[uint64]*model.Show{}, lineups: map[uint64][]string{}}
}

func (f *fakeShowStore) CreateTx(_ context.Context, _ *sql.Tx, s *model.Show) error {
	s.ID = f.nextID
	f.nextID++
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeShowStore) GetByID(_ context.Context, id uint64) (model.Show, error) {
	if s, ok := f.rows[id]; ok {
		return *s, nil
	}
	return model.Show{}, repository.ErrShowNotFound
}

func (f *fakeShowStore) UpdateTx(_ context.Context, _ *sql.Tx, s *model.Show) error {
	cur, ok := f.rows[s.ID]
	if !ok || cur.IsPublished {
		return repository.ErrShowNotFound
	}
	cp := *s
	f.rows[s.ID] = &cp
	return nil
}

func (f *fakeShowStore) SetPublished(_ context.Context, id uint64, published bool) error {
	s, ok := f.rows[id]
	if !ok {
		return repository.ErrShowNotFound
	}
	s.IsPublished = published
	return nil
}

func (f *fakeShowStore) SetDisbursed(_ context.Context, id uint64) (bool, error) {
	s, ok := f.rows[id]
	if !ok || s.IsDisbursed {
		return false, nil
	}
	s.IsDisbursed = true
	return true, nil
}

func (f *fakeShowStore) ListPublished(context.Context) ([]model.Show, map[uint64]uint32, error) {
	var out []model.Show
	for _, s := range f.rows {
		if s.IsPublished {
			out = append(out, *s)
		}
	}
	return out, map[uint64]uint32{}, nil
}

func (f *fakeShowStore) ListByCreator(_ context.Context, creatorID uint64) ([]model.Show, error) {
	var out []model.Show
	for _, s := range f.rows {
		if s.CreatorID == creatorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeShowStore) ReplaceLineupTx(_ context.Context, _ *sql.Tx, showID uint64, names []string) error {
	f.lineups[showID] = names
	return nil
}

func (f *fakeShowStore) Lineup(_ context.Context, showID uint64) ([]string, error) {
	return f.lineups[showID], nil
}

func (f *fakeShowStore) CountComedians(_ context.Context, showID uint64) (int64, error) {
	return int64(len(f.lineups[showID])), nil
}

type fakeInventoryStore struct {
	rows   map[uint64]*model.TicketInventory
	locked bool // simulates the in-use guard failing
}

func (f *fakeInventoryStore) CreateTx(_ context.Context, _ *sql.Tx, showID uint64, total uint32) error {
	f.rows[showID] = &model.TicketInventory{ShowID: showID, Available: total}
	return nil
}

func (f *fakeInventoryStore) UpdateCapacityTx(_ context.Context, _ *sql.Tx, showID uint64, newTotal uint32) error {
	inv, ok := f.rows[showID]
	if !ok {
		return repository.ErrInventoryNotFound
	}
	if f.locked {
		return repository.ErrInventoryInUse
	}
	inv.Available = newTotal
	return nil
}

func (f *fakeInventoryStore) Get(_ context.Context, showID uint64) (model.TicketInventory, error) {
	if inv, ok := f.rows[showID]; ok {
		return *inv, nil
	}
	return model.TicketInventory{}, repository.ErrInventoryNotFound
}

type fakeBookingReader struct {
	nonTerminal int64
	gross       uint64
	fees        uint64
	unpaid      uint64
}

func (f fakeBookingReader) CountNonTerminalByShow(context.Context, uint64) (int64, error) {
	return f.nonTerminal, nil
}

func (f fakeBookingReader) SumConfirmedByShow(context.Context, uint64) (uint64, uint64, uint64, error) {
	return f.gross, f.fees, f.unpaid, nil
}

func (f fakeBookingReader) ListByShow(context.Context, uint64) ([]model.Booking, error) {
	return nil, nil
}

type showFixture struct {
	svc      *Service
	shows    *fakeShowStore
	inv      *fakeInventoryStore
	bookings *fakeBookingReader
	now      time.Time
}

func newShowFixture(t *testing.T) *showFixture {
	t.Helper()
	f := &showFixture{
		shows:    newFakeShowStore(),
		inv:      &fakeInventoryStore{rows: map[uint64]*model.TicketInventory{}},
		bookings: &fakeBookingReader{},
		now:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(fakeTx{}, f.shows, f.inv, f.bookings)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *showFixture) validInput() Input {
	return Input{
		Title:            "Friday Night Laughs",
		Venue:            "The Basement",
		StartsAt:         f.now.Add(72 * time.Hour),
		TicketPriceCents: 1800,
		TotalTickets:     40,
		Comedians:        []string{"Jo Banks", "Sam Reyes"},
	}
}

func TestCreateShow(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)
	assert.False(t, s.IsPublished, "new shows start as drafts")

	inv, err := f.inv.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), inv.Available)

	lineup, _ := f.shows.Lineup(ctx, s.ID)
	assert.Equal(t, []string{"Jo Banks", "Sam Reyes"}, lineup)
}

func TestCreateShowValidation(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	in := f.validInput()
	in.Title = "   "
	_, err := f.svc.Create(ctx, 9, in)
	assert.ErrorIs(t, err, ErrInvalidTitle)

	in = f.validInput()
	in.TotalTickets = 0
	_, err = f.svc.Create(ctx, 9, in)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	in = f.validInput()
	bad := 1.5
	in.CustomFeePercent = &bad
	_, err = f.svc.Create(ctx, 9, in)
	assert.ErrorIs(t, err, ErrInvalidFeePercent)

	in = f.validInput()
	in.TicketPriceCents = maxTicketPriceCents + 1
	_, err = f.svc.Create(ctx, 9, in)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	in = f.validInput()
	in.TicketPriceCents = maxTicketPriceCents
	_, err = f.svc.Create(ctx, 9, in)
	assert.NoError(t, err, "cap itself is allowed")
}

func TestUpdateShow(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)

	in := f.validInput()
	in.Title = "Friday Night Laughs II"
	in.TotalTickets = 60
	got, err := f.svc.Update(ctx, 9, model.RoleOrganizer, s.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Friday Night Laughs II", got.Title)

	inv, _ := f.inv.Get(ctx, s.ID)
	assert.Equal(t, uint32(60), inv.Available, "inventory resized with capacity")
}

func TestUpdateShowAuthorization(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, 10, model.RoleOrganizer, s.ID, f.validInput())
	assert.ErrorIs(t, err, repository.ErrForbidden, "another organizer cannot edit")

	_, err = f.svc.Update(ctx, 10, model.RoleAdmin, s.ID, f.validInput())
	assert.NoError(t, err, "admins can edit any show")
}

func TestUpdatePublishedShowRefused(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, 9, model.RoleOrganizer, s.ID, f.validInput())
	assert.ErrorIs(t, err, ErrPublished)
}

func TestUpdateCapacityLockedWhileReserved(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)

	f.inv.locked = true
	in := f.validInput()
	in.TotalTickets = 10
	_, err = f.svc.Update(ctx, 9, model.RoleOrganizer, s.ID, in)
	assert.ErrorIs(t, err, ErrCapacityLocked)

	// Same capacity skips the resize entirely.
	_, err = f.svc.Update(ctx, 9, model.RoleOrganizer, s.ID, f.validInput())
	assert.NoError(t, err)
}

func TestPublishGuards(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	in := f.validInput()
	in.Comedians = nil
	s, err := f.svc.Create(ctx, 9, in)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, 9, model.RoleOrganizer, s.ID)
	assert.ErrorIs(t, err, ErrNoComedians)

	in.Comedians = []string{"Jo Banks"}
	in.StartsAt = f.now.Add(-time.Hour)
	past, err := f.svc.Create(ctx, 9, in)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, 9, model.RoleOrganizer, past.ID)
	assert.ErrorIs(t, err, ErrPastShow)
}

func TestPublishAndRepublishIdempotent(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)

	got, err := f.svc.Publish(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)

	again, err := f.svc.Publish(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPublished)
}

func TestUnpublishBlockedByActiveBookings(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)

	f.bookings.nonTerminal = 2
	_, err = f.svc.Unpublish(ctx, 9, model.RoleOrganizer, s.ID)
	assert.ErrorIs(t, err, ErrHasActiveBookings)

	f.bookings.nonTerminal = 0
	got, err := f.svc.Unpublish(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)
}

func TestDisburse(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	in := f.validInput()
	s, err := f.svc.Create(ctx, 9, in)
	require.NoError(t, err)

	_, err = f.svc.Disburse(ctx, s.ID)
	assert.ErrorIs(t, err, ErrShowNotEnded)

	// 10000 gross, of which 2000 collected at the door; 1200 platform fees.
	f.now = in.StartsAt.Add(time.Hour)
	f.bookings.gross = 10000
	f.bookings.fees = 1200
	f.bookings.unpaid = 2000

	d, err := f.svc.Disburse(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), d.GrossCents)
	assert.Equal(t, uint64(1200), d.PlatformFeeCents)
	assert.Equal(t, uint64(2000), d.DoorCents)
	assert.Equal(t, uint64(6800), d.NetPayoutCents)

	_, err = f.svc.Disburse(ctx, s.ID)
	assert.ErrorIs(t, err, ErrAlreadyDisbursed)
}

func TestGetHidesDrafts(t *testing.T) {
	f := newShowFixture(t)
	ctx := context.Background()

	s, err := f.svc.Create(ctx, 9, f.validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, 0, "", s.ID)
	assert.ErrorIs(t, err, repository.ErrShowNotFound, "anonymous users cannot see drafts")

	d, err := f.svc.Get(ctx, 9, model.RoleOrganizer, s.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), d.Available)
	assert.Len(t, d.Comedians, 2)
}
