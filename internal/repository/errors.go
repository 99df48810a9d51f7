// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios with errors.Is. For example, ErrForbidden indicates that
// the current user is not authorized to act on a record owned by
// someone else, while the various not-found sentinels map to HTTP 404
// responses.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a record they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed
// because of conflicting state, such as confirming a booking that
// has already been cancelled. Handlers should translate this into
// an HTTP 400 or 409 response.
var ErrConflict = errors.New("conflict")

// Not-found sentinels, one per aggregate. Repositories return these
// instead of sql.ErrNoRows so callers do not depend on database/sql
// internals.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrUserNotFound     = errors.New("user not found")
)
