package model

import "time"

// User is the read-only projection of an application user consumed
// by this service. Account management (registration, credentials,
// profile editing) lives in a separate identity service; here users
// are only looked up to authorize actions and to address
// notifications by display name.
//
// Fields:
//  ID          – primary key identifier of the user.
//  Email       – unique email address.
//  DisplayName – name shown in notifications.
//  Role        – role name (e.g. GUEST or HOST).
//  IsActive    – whether the account is active.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type User struct {
	ID          uint64    // users.id
	Email       string    // users.email
	DisplayName string    // users.display_name
	Role        string    // users.role
	IsActive    bool      // users.is_active
	CreatedAt   time.Time // users.created_at
	UpdatedAt   time.Time // users.updated_at
}
