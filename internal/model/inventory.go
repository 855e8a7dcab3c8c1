package model

import "time"

// TicketInventory is the per-show ticket ledger, one row per show. The row
// is the sole arbiter of capacity under concurrent demand: every mutation
// is a guarded conditional UPDATE, never an in-process lock.
//
// Invariants: Available >= 0, Locked >= 0, and
// Available + Locked <= Show.TotalTickets at all times. Tickets move
// Available -> Locked on reservation, Locked -> gone on commit, and
// Locked -> Available on release.
type TicketInventory struct {
	ShowID    uint64
	Available uint32
	Locked    uint32
	UpdatedAt time.Time
}
