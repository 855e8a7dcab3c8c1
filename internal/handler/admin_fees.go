package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/laughtrack/comedy-ticketing/internal/fee"
	"github.com/laughtrack/comedy-ticketing/internal/model"
	"github.com/laughtrack/comedy-ticketing/internal/repository"
)

// FeeConfigHandler serves the admin fee-configuration endpoints.
type FeeConfigHandler struct {
	Repo *repository.FeeConfigRepo
}

func NewFeeConfigHandler(repo *repository.FeeConfigRepo) *FeeConfigHandler {
	return &FeeConfigHandler{Repo: repo}
}

type feeConfigReq struct {
	Version           uint32          `json:"version"` // version the admin read
	DefaultFeePercent float64         `json:"default_fee_percent"`
	BookingFeePercent float64         `json:"booking_fee_percent"`
	Slabs             []model.FeeSlab `json:"slabs"`
}

// Get returns the current fee configuration including its version, which
// the admin must echo back on update.
func (h *FeeConfigHandler) Get(c echo.Context) error {
	cfg, err := h.Repo.Get(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("get fee config: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get fee config failed"})
	}
	return c.JSON(http.StatusOK, cfg)
}

// Update replaces the whole fee configuration. The slab set is validated as
// a whole and every problem is reported at once; a stale version is a 409.
func (h *FeeConfigHandler) Update(c echo.Context) error {
	var req feeConfigReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.DefaultFeePercent < 0 || req.DefaultFeePercent > 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "default_fee_percent outside [0,1]"})
	}
	if req.BookingFeePercent < 0 || req.BookingFeePercent > 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_fee_percent outside [0,1]"})
	}
	if err := fee.ValidateSlabs(req.Slabs); err != nil {
		var verr *fee.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "invalid fee slabs",
				"issues": verr.Issues,
			})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	cfg, err := h.Repo.Replace(c.Request().Context(), model.PlatformConfig{
		DefaultFeePercent: req.DefaultFeePercent,
		BookingFeePercent: req.BookingFeePercent,
		Slabs:             req.Slabs,
	}, req.Version)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, cfg)
	case errors.Is(err, repository.ErrVersionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "configuration changed, re-read and retry", "code": "VERSION_CONFLICT"})
	default:
		c.Logger().Errorf("update fee config: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update fee config failed"})
	}
}
