// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish failure scenarios: ErrForbidden maps to HTTP 403,
// ErrInsufficientInventory is the oversell guard firing, ErrVersionConflict
// signals a lost optimistic-concurrency race on the platform config.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInventoryNotFound is returned when a show has no ticket_inventory row.
var ErrInventoryNotFound = errors.New("inventory not found")

// ErrInsufficientInventory is returned when a reservation asks for more
// tickets than are available. The guarded UPDATE leaves the row untouched.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrInventoryInUse is returned when a capacity change is attempted while
// tickets are locked or already sold.
var ErrInventoryInUse = errors.New("inventory in use")

// ErrVersionConflict is returned when a platform-config replace loses the
// optimistic version check to a concurrent admin write.
var ErrVersionConflict = errors.New("config version conflict")

// ErrActiveBookingExists is returned when inserting a booking violates the
// one-PENDING-booking-per-user-per-show unique key.
var ErrActiveBookingExists = errors.New("user already has a pending booking for this show")

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (errno 1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
