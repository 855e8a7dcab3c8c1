package model

import "time"

// Show represents a scheduled comedy show listed on the marketplace.
// Money fields are integer minor-currency units (cents). A show becomes
// bookable once IsPublished is true and StartsAt is in the future.
//
// Fields:
//
//	ID               – primary key identifier.
//	CreatorID        – user ID of the organizer who owns the show.
//	Title            – name of the show.
//	Venue            – free-text venue description.
//	StartsAt         – UTC start time; must be strictly future at publish time.
//	TicketPriceCents – price of a single ticket in cents.
//	TotalTickets     – capacity; must be positive once published.
//	IsPublished      – whether the show is visible and bookable.
//	IsDisbursed      – whether organizer payout has been reconciled.
//	CustomFeePercent – optional per-show platform fee override in [0,1];
//	                   nil means the configured fee slabs apply.
type Show struct {
	ID               uint64
	CreatorID        uint64
	Title            string
	Venue            string
	StartsAt         time.Time
	TicketPriceCents uint32
	TotalTickets     uint32
	IsPublished      bool
	IsDisbursed      bool
	CustomFeePercent *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Comedian is a lineup entry for a show. Publication requires at least one.
type Comedian struct {
	ID     uint64
	ShowID uint64
	Name   string
}
