// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking reaches a confirmed
// state. It carries enough for downstream consumers (notifications, payout
// accounting, analytics) to act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	OrderRef         string `json:"order_ref"`
	UserID           uint64 `json:"user_id"`
	ShowID           uint64 `json:"show_id"`
	ShowTitle        string `json:"show_title"`
	Venue            string `json:"venue"`
	StartsAt         string `json:"starts_at"`
	Quantity         uint32 `json:"quantity"`
	TotalAmountCents uint32 `json:"total_amount_cents"`
	PlatformFeeCents uint32 `json:"platform_fee_cents"`
	PaidAtDoor       bool   `json:"paid_at_door"`
	ConfirmedAt      string `json:"confirmed_at"`
}
