package model

import "time"

// SessionStatus reflects whether a session can still accept seats.
// It is derived from the booked counter: a session whose counter
// reaches the resource capacity becomes FULL and reverts to ACTIVE
// when a cancellation drops the counter below capacity again.
type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionFull   SessionStatus = "FULL"
)

// Session is a time-boxed occurrence of an EXPERIENCE resource as
// stored in the `sessions` table. Seat capacity is inherited from
// the owning resource; only BookedParticipants is tracked here.
// The counter is mutated exclusively inside booking transactions
// that hold a row lock on the session.
//
// Fields:
//  ID                 – primary key identifier.
//  ResourceID         – owning EXPERIENCE resource.
//  StartsAt           – when the session begins.
//  EndsAt             – when the session ends (after StartsAt).
//  BookedParticipants – seats taken by non-cancelled bookings.
//  Status             – ACTIVE or FULL, derived from the counter.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Session struct {
	ID                 uint64        // sessions.id
	ResourceID         uint64        // sessions.resource_id
	StartsAt           time.Time     // sessions.starts_at
	EndsAt             time.Time     // sessions.ends_at
	BookedParticipants uint32        // sessions.booked_participants
	Status             SessionStatus // sessions.status
	CreatedAt          time.Time     // sessions.created_at
	UpdatedAt          time.Time     // sessions.updated_at
}
