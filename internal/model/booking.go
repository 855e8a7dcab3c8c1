package model

import "time"

// BookingStatus enumerates the booking lifecycle. PENDING is the only
// non-terminal status; every transition out of PENDING is final.
type BookingStatus string

const (
	BookingPending         BookingStatus = "PENDING"
	BookingConfirmed       BookingStatus = "CONFIRMED"
	BookingConfirmedUnpaid BookingStatus = "CONFIRMED_UNPAID"
	BookingCancelled       BookingStatus = "CANCELLED"
	BookingFailed          BookingStatus = "FAILED"
)

// Terminal reports whether no further transition is permitted from s.
func (s BookingStatus) Terminal() bool {
	return s != BookingPending
}

// Booking records a user's ticket purchase for a show. OrderRef is the
// payment-gateway order identifier minted at creation and is the key used
// by webhook reconciliation; PaymentID is set once the gateway reports a
// captured payment. Fee fields are snapshots of the configuration that was
// in effect when the booking was created and are never recomputed.
type Booking struct {
	ID               uint64
	ShowID           uint64
	UserID           uint64
	Quantity         uint32
	TotalAmountCents uint32
	PlatformFeeCents uint32
	BookingFeeCents  uint32
	Status           BookingStatus
	OrderRef         string
	PaymentID        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
