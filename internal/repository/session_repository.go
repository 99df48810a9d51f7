package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanvu/homestay-reservation/internal/model"
)

// SessionRepo provides data access to experience sessions. The
// booked-participants counter on a session is only ever written
// through SetBookedTx under a row lock acquired by LockByIDTx, so
// the read-modify-write of the counter is a single atomic unit.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, resource_id, starts_at, ends_at, booked_participants, status, created_at, updated_at`

// GetByID loads a single session. It returns ErrSessionNotFound when
// no row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	var s model.Session
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.ResourceID, &s.StartsAt, &s.EndsAt,
		&s.BookedParticipants, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LockByIDTx loads a session within the given transaction and takes
// an exclusive row lock on it. All counter mutations for the session
// must happen while this lock is held.
func (r *SessionRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? FOR UPDATE`
	var s model.Session
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.ResourceID, &s.StartsAt, &s.EndsAt,
		&s.BookedParticipants, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SetBookedTx writes an absolute booked-participants count and the
// derived status for a session. Callers compute the new count from a
// locked read, so the update is written as an absolute value rather
// than a relative delta.
func (r *SessionRepo) SetBookedTx(ctx context.Context, tx *sql.Tx, id uint64, booked uint32, status model.SessionStatus) error {
	const q = `UPDATE sessions SET booked_participants = ?, status = ? WHERE id = ?`
	result, err := tx.ExecContext(ctx, q, booked, string(status), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByResource returns all sessions of an experience ordered by
// start time. Past sessions are included so hosts can review them;
// browse handlers may filter on the client side.
func (r *SessionRepo) ListByResource(ctx context.Context, resourceID uint64) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE resource_id = ? ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(
			&s.ID, &s.ResourceID, &s.StartsAt, &s.EndsAt,
			&s.BookedParticipants, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
