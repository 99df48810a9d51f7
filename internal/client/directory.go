package client

import (
	"context"
	"fmt"

	"github.com/quanvu/homestay-reservation/internal/repository"
)

// LocalDirectory resolves display names from the local users table.
// It is the fallback when no profile service is configured; the
// identity service replicates users into this database, so the read
// model is authoritative enough for notification text.
type LocalDirectory struct {
	users *repository.UserRepo
}

// NewLocalDirectory constructs a LocalDirectory over the given repo.
func NewLocalDirectory(users *repository.UserRepo) *LocalDirectory {
	return &LocalDirectory{users: users}
}

// DisplayName resolves a user ID to a display name, degrading to a
// generic label when the user is unknown.
func (d *LocalDirectory) DisplayName(ctx context.Context, userID uint64) string {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil || u.DisplayName == "" {
		return fmt.Sprintf("Guest #%d", userID)
	}
	return u.DisplayName
}
