package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
// PENDING is the initial state; CONFIRMED and CANCELLED are
// reachable from PENDING, and CANCELLED additionally from
// CONFIRMED. CANCELLED is terminal.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// BookingKind distinguishes date-range dwelling bookings from
// seat-count session bookings sharing the same base record.
type BookingKind string

const (
	BookingDwelling BookingKind = "DWELLING"
	BookingSession  BookingKind = "SESSION"
)

// Booking is a reservation against either a dwelling's date range
// or a session's seats, as stored in the `bookings` table. The
// dwelling-specific fields (CheckIn, CheckOut, Guests) and the
// session-specific fields (SessionID, Quantity) are nullable and
// populated according to Kind. TotalCents is fixed at creation and
// never changes afterwards. Paid is independent of Status and only
// becomes true through a successful settlement.
//
// Fields:
//  ID         – primary key identifier.
//  Kind       – DWELLING or SESSION.
//  ResourceID – resource being booked.
//  SessionID  – session reference for SESSION bookings (nullable).
//  CustomerID – guest who created the booking.
//  CheckIn    – check-in instant for DWELLING bookings (nullable).
//  CheckOut   – check-out instant, exclusive (nullable).
//  Guests     – guest count for DWELLING bookings (nullable).
//  Quantity   – seats requested for SESSION bookings (nullable).
//  TotalCents – total price in minor currency units, immutable.
//  Status     – PENDING, CONFIRMED or CANCELLED.
//  Paid       – set once by a successful payment for this booking.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Booking struct {
	ID         uint64        // bookings.id
	Kind       BookingKind   // bookings.kind
	ResourceID uint64        // bookings.resource_id
	SessionID  *uint64       // bookings.session_id (nullable)
	CustomerID uint64        // bookings.customer_id
	CheckIn    *time.Time    // bookings.check_in (nullable)
	CheckOut   *time.Time    // bookings.check_out (nullable)
	Guests     *uint32       // bookings.guests (nullable)
	Quantity   *uint32       // bookings.quantity (nullable)
	TotalCents uint32        // bookings.total_cents
	Status     BookingStatus // bookings.status
	Paid       bool          // bookings.paid
	CreatedAt  time.Time     // bookings.created_at
	UpdatedAt  time.Time     // bookings.updated_at
}
