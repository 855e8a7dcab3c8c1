package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/laughtrack/comedy-ticketing/internal/booking"
	"github.com/laughtrack/comedy-ticketing/internal/payment"
)

// maxWebhookBody bounds how much of a webhook request is read. Gateway
// payloads are a few hundred bytes.
const maxWebhookBody = 1 << 20

// PaymentReconciler is the slice of the booking service the webhook drives.
type PaymentReconciler interface {
	ProcessPaymentSuccess(ctx context.Context, orderRef, paymentID string) error
	ProcessPaymentFailure(ctx context.Context, orderRef string) error
}

// WebhookHandler receives asynchronous payment notifications from the
// gateway.
type WebhookHandler struct {
	Gateway *payment.Client
	Svc     PaymentReconciler
}

func NewWebhookHandler(gw *payment.Client, svc PaymentReconciler) *WebhookHandler {
	return &WebhookHandler{Gateway: gw, Svc: svc}
}

// HandlePayment verifies and dispatches one webhook delivery. The signature
// is checked against the exact raw body before any parsing; missing or
// invalid signatures fail closed with 400. Unknown event types are
// acknowledged with 200 so the gateway stops retrying them, and replays of
// known events are safe because reconciliation is idempotent.
func (h *WebhookHandler) HandlePayment(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	if !h.Gateway.VerifySignature(body, c.Request().Header.Get("X-Signature")) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payload"})
	}

	ctx := c.Request().Context()
	switch ev.Event {
	case payment.EventPaymentCaptured:
		err = h.Svc.ProcessPaymentSuccess(ctx, ev.OrderRef, ev.PaymentID)
	case payment.EventPaymentFailed:
		err = h.Svc.ProcessPaymentFailure(ctx, ev.OrderRef)
	default:
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}

	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown order reference"})
	default:
		c.Logger().Errorf("webhook %s for %s: %v", ev.Event, ev.OrderRef, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
}
