package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laughtrack/comedy-ticketing/internal/booking"
	"github.com/laughtrack/comedy-ticketing/internal/middleware"
	"github.com/laughtrack/comedy-ticketing/internal/model"
)

type fakeBookingService struct {
	createErr error
	created   model.Booking
	byID      map[uint64]model.Booking
}

func (f *fakeBookingService) Create(_ context.Context, userID, showID uint64, qty uint32) (model.Booking, error) {
	if f.createErr != nil {
		return model.Booking{}, f.createErr
	}
	b := f.created
	b.UserID = userID
	b.ShowID = showID
	b.Quantity = qty
	return b, nil
}

func (f *fakeBookingService) Get(_ context.Context, id uint64) (model.Booking, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return model.Booking{}, booking.ErrNotFound
}

func (f *fakeBookingService) ListForUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.byID {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingService) ConfirmUnpaid(_ context.Context, bookingID uint64) (model.Booking, error) {
	b, ok := f.byID[bookingID]
	if !ok {
		return model.Booking{}, booking.ErrNotFound
	}
	if b.Status != model.BookingPending {
		return model.Booking{}, booking.ErrNotPending
	}
	b.Status = model.BookingConfirmedUnpaid
	return b, nil
}

func bookingCtx(method, target, body string, userID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxRole, role)
	return c, rec
}

func TestBookingCreate(t *testing.T) {
	svc := &fakeBookingService{created: model.Booking{
		ID: 42, Status: model.BookingPending, OrderRef: "order_key1_xy",
		TotalAmountCents: 5000, PlatformFeeCents: 500, BookingFeeCents: 100,
	}}
	h := NewBookingHandler(svc)

	c, rec := bookingCtx(http.MethodPost, "/v1/bookings", `{"show_id":1,"quantity":2}`, 7, model.RoleAudience)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp bookingResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(42), resp.ID)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "order_key1_xy", resp.OrderRef)
	assert.Equal(t, uint32(2), resp.Quantity)
}

func TestBookingCreateSoldOut(t *testing.T) {
	h := NewBookingHandler(&fakeBookingService{createErr: booking.ErrSoldOut})

	c, rec := bookingCtx(http.MethodPost, "/v1/bookings", `{"show_id":1,"quantity":2}`, 7, model.RoleAudience)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SOLD_OUT", resp["code"], "sold out is distinguishable from validation errors")
}

func TestBookingCreateValidation(t *testing.T) {
	h := NewBookingHandler(&fakeBookingService{createErr: booking.ErrInvalidQuantity})
	c, rec := bookingCtx(http.MethodPost, "/v1/bookings", `{"show_id":1,"quantity":0}`, 7, model.RoleAudience)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewBookingHandler(&fakeBookingService{createErr: booking.ErrDuplicateBooking})
	c, rec = bookingCtx(http.MethodPost, "/v1/bookings", `{"show_id":1,"quantity":1}`, 7, model.RoleAudience)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingGetOwnership(t *testing.T) {
	svc := &fakeBookingService{byID: map[uint64]model.Booking{
		5: {ID: 5, UserID: 7, Status: model.BookingConfirmed},
	}}
	h := NewBookingHandler(svc)

	get := func(userID uint64, role string) *httptest.ResponseRecorder {
		c, rec := bookingCtx(http.MethodGet, "/v1/bookings/5", "", userID, role)
		c.SetParamNames("id")
		c.SetParamValues("5")
		require.NoError(t, h.Get(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, get(7, model.RoleAudience).Code, "owner sees own booking")
	assert.Equal(t, http.StatusNotFound, get(8, model.RoleAudience).Code, "other audience members get 404")
	assert.Equal(t, http.StatusOK, get(99, model.RoleAdmin).Code, "admins see any booking")
}

func TestBookingConfirmUnpaid(t *testing.T) {
	svc := &fakeBookingService{byID: map[uint64]model.Booking{
		5: {ID: 5, UserID: 7, Status: model.BookingPending},
		6: {ID: 6, UserID: 7, Status: model.BookingConfirmed},
	}}
	h := NewBookingHandler(svc)

	confirm := func(id string) *httptest.ResponseRecorder {
		c, rec := bookingCtx(http.MethodPost, "/v1/bookings/"+id+"/confirm-unpaid", "", 1, model.RoleAdmin)
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, h.ConfirmUnpaid(c))
		return rec
	}

	rec := confirm("5")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp bookingResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED_UNPAID", resp.Status)

	assert.Equal(t, http.StatusConflict, confirm("6").Code, "already confirmed")
	assert.Equal(t, http.StatusNotFound, confirm("999").Code)
}
