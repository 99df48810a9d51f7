package model

import "time"

// ResourceKind distinguishes the two bookable resource kinds. A
// DWELLING is reserved by date range; an EXPERIENCE exposes one or
// more fixed-capacity sessions reserved by seat count.
type ResourceKind string

const (
	KindDwelling   ResourceKind = "DWELLING"
	KindExperience ResourceKind = "EXPERIENCE"
)

// Resource is the shared base record for both resource kinds as
// stored in the `resources` table. Price semantics depend on the
// kind: per night for dwellings, per seat for experience sessions.
// Capacity is the maximum guest count for a dwelling and the seat
// limit inherited by every session of an experience.
//
// Fields:
//  ID         – primary key identifier.
//  HostID     – user who owns and manages the listing.
//  Kind       – DWELLING or EXPERIENCE.
//  Name       – display name of the listing.
//  Description– free-text description shown to guests.
//  PriceCents – price per unit (night or seat) in minor currency units.
//  Capacity   – maximum guests / seats per session.
//  Lat, Lng   – geolocation of the listing.
//  IsActive   – whether the listing accepts new bookings.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Resource struct {
	ID          uint64       // resources.id
	HostID      uint64       // resources.host_id
	Kind        ResourceKind // resources.kind
	Name        string       // resources.name
	Description string       // resources.description
	PriceCents  uint32       // resources.price_cents
	Capacity    uint32       // resources.capacity
	Lat         float64      // resources.lat
	Lng         float64      // resources.lng
	IsActive    bool         // resources.is_active
	CreatedAt   time.Time    // resources.created_at
	UpdatedAt   time.Time    // resources.updated_at
}
