package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/laughtrack/comedy-ticketing/internal/middleware"
	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
	"github.com/laughtrack/comedy-ticketing/internal/show"
)

// ShowHandler serves public browsing and organizer show management.
type ShowHandler struct {
	Svc *show.Service
}

func NewShowHandler(svc *show.Service) *ShowHandler { return &ShowHandler{Svc: svc} }

type showReq struct {
	Title            string   `json:"title"`
	Venue            string   `json:"venue"`
	StartsAt         string   `json:"starts_at"` // RFC 3339
	TicketPriceCents uint32   `json:"ticket_price_cents"`
	TotalTickets     uint32   `json:"total_tickets"`
	CustomFeePercent *float64 `json:"custom_fee_percent"`
	Comedians        []string `json:"comedians"`
}

func (r showReq) toInput() (show.Input, error) {
	startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
	if err != nil {
		return show.Input{}, err
	}
	return show.Input{
		Title:            r.Title,
		Venue:            r.Venue,
		StartsAt:         startsAt,
		TicketPriceCents: r.TicketPriceCents,
		TotalTickets:     r.TotalTickets,
		CustomFeePercent: r.CustomFeePercent,
		Comedians:        r.Comedians,
	}, nil
}

type showResp struct {
	ID               uint64   `json:"id"`
	CreatorID        uint64   `json:"creator_id"`
	Title            string   `json:"title"`
	Venue            string   `json:"venue"`
	StartsAt         string   `json:"starts_at"`
	TicketPriceCents uint32   `json:"ticket_price_cents"`
	TotalTickets     uint32   `json:"total_tickets"`
	IsPublished      bool     `json:"is_published"`
	IsDisbursed      bool     `json:"is_disbursed"`
	CustomFeePercent *float64 `json:"custom_fee_percent,omitempty"`
	Available        *uint32  `json:"available,omitempty"`
	Comedians        []string `json:"comedians,omitempty"`
}

func toShowResp(s model.Show) showResp {
	return showResp{
		ID:               s.ID,
		CreatorID:        s.CreatorID,
		Title:            s.Title,
		Venue:            s.Venue,
		StartsAt:         s.StartsAt.UTC().Format(time.RFC3339),
		TicketPriceCents: s.TicketPriceCents,
		TotalTickets:     s.TotalTickets,
		IsPublished:      s.IsPublished,
		IsDisbursed:      s.IsDisbursed,
		CustomFeePercent: s.CustomFeePercent,
	}
}

// showError maps show-service errors to HTTP responses.
func showError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, show.ErrInvalidTitle),
		errors.Is(err, show.ErrInvalidCapacity),
		errors.Is(err, show.ErrInvalidPrice),
		errors.Is(err, show.ErrInvalidFeePercent),
		errors.Is(err, show.ErrNoComedians),
		errors.Is(err, show.ErrPastShow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, show.ErrPublished),
		errors.Is(err, show.ErrCapacityLocked),
		errors.Is(err, show.ErrHasActiveBookings),
		errors.Is(err, show.ErrShowNotEnded),
		errors.Is(err, show.ErrAlreadyDisbursed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		c.Logger().Errorf("show handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func showIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// ListPublished is the public marketplace listing: published shows with
// live availability, soonest first.
func (h *ShowHandler) ListPublished(c echo.Context) error {
	shows, avail, err := h.Svc.ListPublished(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list shows: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list shows failed"})
	}
	out := make([]showResp, 0, len(shows))
	for _, s := range shows {
		r := toShowResp(s)
		if a, ok := avail[s.ID]; ok {
			r.Available = &a
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": out})
}

// Get returns one show with lineup and availability. Drafts 404 for anyone
// but their creator and admins.
func (h *ShowHandler) Get(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	d, err := h.Svc.Get(c.Request().Context(), middleware.UserID(c), middleware.Role(c), id)
	if err != nil {
		return showError(c, err)
	}
	r := toShowResp(d.Show)
	r.Available = &d.Available
	r.Comedians = d.Comedians
	return c.JSON(http.StatusOK, r)
}

// Create registers a draft show for the calling organizer.
func (h *ShowHandler) Create(c echo.Context) error {
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	s, err := h.Svc.Create(c.Request().Context(), middleware.UserID(c), in)
	if err != nil {
		return showError(c, err)
	}
	r := toShowResp(s)
	r.Comedians = in.Comedians
	return c.JSON(http.StatusCreated, r)
}

// Update edits an unpublished show.
func (h *ShowHandler) Update(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var req showReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC 3339"})
	}
	s, err := h.Svc.Update(c.Request().Context(), middleware.UserID(c), middleware.Role(c), id, in)
	if err != nil {
		return showError(c, err)
	}
	return c.JSON(http.StatusOK, toShowResp(s))
}

// Publish puts a show on sale.
func (h *ShowHandler) Publish(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	s, err := h.Svc.Publish(c.Request().Context(), middleware.UserID(c), middleware.Role(c), id)
	if err != nil {
		return showError(c, err)
	}
	return c.JSON(http.StatusOK, toShowResp(s))
}

// Unpublish takes a show off sale.
func (h *ShowHandler) Unpublish(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	s, err := h.Svc.Unpublish(c.Request().Context(), middleware.UserID(c), middleware.Role(c), id)
	if err != nil {
		return showError(c, err)
	}
	return c.JSON(http.StatusOK, toShowResp(s))
}

// ListMine returns the organizer's shows, drafts included.
func (h *ShowHandler) ListMine(c echo.Context) error {
	shows, err := h.Svc.ListMine(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		c.Logger().Errorf("list my shows: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list shows failed"})
	}
	out := make([]showResp, 0, len(shows))
	for _, s := range shows {
		out = append(out, toShowResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": out})
}

// Bookings lists a show's bookings for its organizer or an admin.
func (h *ShowHandler) Bookings(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	bs, err := h.Svc.Bookings(c.Request().Context(), middleware.UserID(c), middleware.Role(c), id)
	if err != nil {
		return showError(c, err)
	}
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Disburse reconciles a finished show's payout. Admin only.
func (h *ShowHandler) Disburse(c echo.Context) error {
	id, err := showIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	d, err := h.Svc.Disburse(c.Request().Context(), id)
	if err != nil {
		return showError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
