package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanvu/homestay-reservation/internal/model"
)

// ResourceRepo provides read access to bookable listings. Listing
// management (create, edit, photos, amenities) belongs to the
// catalog service; this service only reads resources to run
// admission checks and price computations, so no mutating methods
// are exposed here.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *ResourceRepo) DB() *sql.DB { return r.db }

const resourceColumns = `id, host_id, kind, name, description, price_cents, capacity, lat, lng, is_active, created_at, updated_at`

func scanResource(row *sql.Row) (*model.Resource, error) {
	var res model.Resource
	err := row.Scan(
		&res.ID, &res.HostID, &res.Kind, &res.Name, &res.Description,
		&res.PriceCents, &res.Capacity, &res.Lat, &res.Lng, &res.IsActive,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

// GetByID loads a single resource outside of any transaction. It
// returns ErrResourceNotFound when no row exists.
func (r *ResourceRepo) GetByID(ctx context.Context, id uint64) (*model.Resource, error) {
	const q = `SELECT ` + resourceColumns + ` FROM resources WHERE id = ?`
	return scanResource(r.db.QueryRowContext(ctx, q, id))
}

// LockByIDTx loads a resource within the given transaction and takes
// an exclusive row lock on it. Booking admission uses this lock to
// serialize concurrent create/cancel requests for the same listing:
// the overlap check (or seat-counter update) and the subsequent
// insert happen under the same lock, so two overlapping requests can
// never both pass the check.
func (r *ResourceRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Resource, error) {
	const q = `SELECT ` + resourceColumns + ` FROM resources WHERE id = ? FOR UPDATE`
	var res model.Resource
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.HostID, &res.Kind, &res.Name, &res.Description,
		&res.PriceCents, &res.Capacity, &res.Lat, &res.Lng, &res.IsActive,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListActive returns active listings, optionally filtered by kind.
// Results are ordered by creation time descending for browse pages.
func (r *ResourceRepo) ListActive(ctx context.Context, kind model.ResourceKind, limit, offset int) ([]model.Resource, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE is_active = 1`
	args := make([]interface{}, 0, 3)
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(kind))
	}
	q += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Resource, 0)
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(
			&res.ID, &res.HostID, &res.Kind, &res.Name, &res.Description,
			&res.PriceCents, &res.Capacity, &res.Lat, &res.Lng, &res.IsActive,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
