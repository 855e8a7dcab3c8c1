package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/laughtrack/comedy-ticketing/internal/booking"
	"github.com/laughtrack/comedy-ticketing/internal/middleware"
	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
)

// BookingService is the booking operations surface the handler needs.
// Defined here so tests can substitute a fake.
type BookingService interface {
	Create(ctx context.Context, userID, showID uint64, qty uint32) (model.Booking, error)
	Get(ctx context.Context, id uint64) (model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ConfirmUnpaid(ctx context.Context, bookingID uint64) (model.Booking, error)
}

// BookingHandler serves the booking endpoints.
type BookingHandler struct {
	Svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler { return &BookingHandler{Svc: svc} }

type createBookingReq struct {
	ShowID   uint64 `json:"show_id"`
	Quantity uint32 `json:"quantity"`
}

type bookingResp struct {
	ID               uint64  `json:"id"`
	ShowID           uint64  `json:"show_id"`
	UserID           uint64  `json:"user_id"`
	Quantity         uint32  `json:"quantity"`
	TotalAmountCents uint32  `json:"total_amount_cents"`
	PlatformFeeCents uint32  `json:"platform_fee_cents"`
	BookingFeeCents  uint32  `json:"booking_fee_cents"`
	Status           string  `json:"status"`
	OrderRef         string  `json:"order_ref"`
	PaymentID        *string `json:"payment_id,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:               b.ID,
		ShowID:           b.ShowID,
		UserID:           b.UserID,
		Quantity:         b.Quantity,
		TotalAmountCents: b.TotalAmountCents,
		PlatformFeeCents: b.PlatformFeeCents,
		BookingFeeCents:  b.BookingFeeCents,
		Status:           string(b.Status),
		OrderRef:         b.OrderRef,
		PaymentID:        b.PaymentID,
		CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create reserves tickets and opens a checkout. 409 with code SOLD_OUT
// distinguishes exhausted inventory from plain validation errors so the
// client can offer a different show instead of a retry.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	b, err := h.Svc.Create(c.Request().Context(), middleware.UserID(c), req.ShowID, req.Quantity)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, toBookingResp(b))
	case errors.Is(err, booking.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": "sold out", "code": "SOLD_OUT"})
	case errors.Is(err, booking.ErrDuplicateBooking):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": "DUPLICATE_BOOKING"})
	case errors.Is(err, booking.ErrInvalidQuantity),
		errors.Is(err, booking.ErrShowNotBookable),
		errors.Is(err, booking.ErrAmountTooLarge):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	default:
		c.Logger().Errorf("create booking: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
}

// Get returns one booking. Audience members only see their own; organizers
// and admins may inspect any booking.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		c.Logger().Errorf("get booking: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get booking failed"})
	}
	role := middleware.Role(c)
	if role == model.RoleAudience && b.UserID != middleware.UserID(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// ListMine returns the caller's bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	bs, err := h.Svc.ListForUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		c.Logger().Errorf("list bookings: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// ConfirmUnpaid is the admin door-sale override: a pending booking is
// confirmed without gateway payment.
func (h *BookingHandler) ConfirmUnpaid(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.ConfirmUnpaid(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, toBookingResp(b))
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrNotPending):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("confirm unpaid: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
	}
}
