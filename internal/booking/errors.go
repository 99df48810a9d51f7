// Package booking owns the reservation lifecycle: admission checks
// (date-range availability for dwellings, seat capacity for
// sessions), the PENDING → CONFIRMED/CANCELLED state machine and the
// post-commit notification events. Every rejection here is a typed,
// user-visible error detected before any write; a failed admission
// never leaves partial state behind.
package booking

import (
	"errors"
	"fmt"
)

// Validation and admission sentinels. Handlers translate these into
// 400-level responses with the error text as the message.
var (
	// ErrInvalidStay is returned when the checkout instant is not
	// strictly after the check-in instant.
	ErrInvalidStay = errors.New("check-out must be after check-in")

	// ErrStayInPast is returned when either end of the proposed stay
	// is not in the future at submission time.
	ErrStayInPast = errors.New("stay dates must be in the future")

	// ErrDateOverlap is returned when the proposed date range
	// overlaps an existing non-cancelled booking for the dwelling.
	ErrDateOverlap = errors.New("dates overlap an existing booking")

	// ErrOwnListing is returned when a host attempts to book their
	// own listing.
	ErrOwnListing = errors.New("cannot book your own listing")

	// ErrListingInactive is returned when the listing or session does
	// not currently accept bookings.
	ErrListingInactive = errors.New("listing is not accepting bookings")

	// ErrKindMismatch is returned when a dwelling operation targets
	// an experience or vice versa.
	ErrKindMismatch = errors.New("operation does not match resource kind")

	// ErrTooManyGuests is returned when the guest count exceeds the
	// dwelling capacity.
	ErrTooManyGuests = errors.New("guest count exceeds listing capacity")

	// ErrSessionStarted is returned when booking or cancelling a
	// session whose start time has passed.
	ErrSessionStarted = errors.New("session has already started")

	// ErrAlreadyConfirmed and ErrAlreadyCancelled guard repeated
	// state transitions.
	ErrAlreadyConfirmed = errors.New("booking is already confirmed")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
)

// CapacityError rejects a seat request that would push a session
// over its capacity. Remaining carries the precomputed free-seat
// count so the client can offer a smaller quantity.
type CapacityError struct {
	Remaining uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough slots, %d remaining", e.Remaining)
}
