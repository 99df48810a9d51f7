package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quanvu/homestay-reservation/internal/model"
)

// BookingRepo provides CRUD operations for bookings. Writes that
// must be atomic with an admission check or a counter update take an
// explicit *sql.Tx; the caller owns commit and rollback. All
// timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, kind, resource_id, session_id, customer_id, check_in, check_out, guests, quantity, total_cents, status, paid, created_at, updated_at`

func scanBooking(scan func(dest ...interface{}) error) (*model.Booking, error) {
	var (
		b         model.Booking
		sessionID sql.NullInt64
		checkIn   sql.NullTime
		checkOut  sql.NullTime
		guests    sql.NullInt64
		quantity  sql.NullInt64
	)
	err := scan(
		&b.ID, &b.Kind, &b.ResourceID, &sessionID, &b.CustomerID,
		&checkIn, &checkOut, &guests, &quantity,
		&b.TotalCents, &b.Status, &b.Paid, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		v := uint64(sessionID.Int64)
		b.SessionID = &v
	}
	if checkIn.Valid {
		t := checkIn.Time.UTC()
		b.CheckIn = &t
	}
	if checkOut.Valid {
		t := checkOut.Time.UTC()
		b.CheckOut = &t
	}
	if guests.Valid {
		v := uint32(guests.Int64)
		b.Guests = &v
	}
	if quantity.Valid {
		v := uint32(quantity.Int64)
		b.Quantity = &v
	}
	return &b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record. The caller must commit or rollback. Status should
// be a valid enumeration ('PENDING','CONFIRMED','CANCELLED').
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (kind, resource_id, session_id, customer_id, check_in, check_out, guests, quantity, total_cents, status, paid)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var (
		sessionID interface{}
		checkIn   interface{}
		checkOut  interface{}
		guests    interface{}
		quantity  interface{}
	)
	if b.SessionID != nil {
		sessionID = *b.SessionID
	}
	if b.CheckIn != nil {
		checkIn = b.CheckIn.UTC()
	}
	if b.CheckOut != nil {
		checkOut = b.CheckOut.UTC()
	}
	if b.Guests != nil {
		guests = *b.Guests
	}
	if b.Quantity != nil {
		quantity = *b.Quantity
	}
	result, err := tx.ExecContext(ctx, q,
		string(b.Kind), b.ResourceID, sessionID, b.CustomerID,
		checkIn, checkOut, guests, quantity,
		b.TotalCents, string(b.Status), b.Paid,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	created, err := scanBooking(tx.QueryRowContext(ctx, sel, b.ID).Scan)
	if err != nil {
		return err
	}
	*b = *created
	return nil
}

// HasOverlapTx reports whether any non-cancelled dwelling booking for
// the resource overlaps the half-open interval [checkIn, checkOut).
// Touching boundaries (an existing checkout equal to the proposed
// check-in, or vice versa) do not count as overlap. The caller must
// hold the resource row lock so the check and the following insert
// form one atomic unit.
func (r *BookingRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, resourceID uint64, checkIn, checkOut time.Time) (bool, error) {
	const q = `SELECT EXISTS (
	             SELECT 1 FROM bookings
	             WHERE resource_id = ? AND kind = 'DWELLING' AND status <> 'CANCELLED'
	               AND check_in < ? AND ? < check_out
	           )`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, resourceID, checkOut.UTC(), checkIn.UTC()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID loads a single booking. It returns ErrBookingNotFound when
// no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// LockByIDTx loads a booking within the given transaction and takes
// an exclusive row lock on it. State transitions load the booking
// through this method so that concurrent transitions for the same
// booking serialize.
func (r *BookingRepo) LockByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// UpdateStatusTx sets the booking status within a transaction.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(status), id)
	return err
}

// MarkPaidTx sets the paid flag together with the status decided by
// the settlement policy. It is called by the callback reconciler in
// the same transaction as the payment update so that the two commit
// or roll back together.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	const q = `UPDATE bookings SET paid = 1, status = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, string(status), id)
	return err
}

// BookingDetail is a booking enriched with its listing name for
// display to customers.
type BookingDetail struct {
	model.Booking
	ResourceName string `json:"resource_name"`
}

// ListByCustomer returns all bookings created by the given user,
// newest first, along with the listing name.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.kind, b.resource_id, b.session_id, b.customer_id,
	                  b.check_in, b.check_out, b.guests, b.quantity,
	                  b.total_cents, b.status, b.paid, b.created_at, b.updated_at,
	                  r.name
	           FROM bookings b
	           JOIN resources r ON r.id = b.resource_id
	           WHERE b.customer_id = ?
	           ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var (
			d         BookingDetail
			sessionID sql.NullInt64
			checkIn   sql.NullTime
			checkOut  sql.NullTime
			guests    sql.NullInt64
			quantity  sql.NullInt64
		)
		if err := rows.Scan(
			&d.ID, &d.Kind, &d.ResourceID, &sessionID, &d.CustomerID,
			&checkIn, &checkOut, &guests, &quantity,
			&d.TotalCents, &d.Status, &d.Paid, &d.CreatedAt, &d.UpdatedAt,
			&d.ResourceName,
		); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			v := uint64(sessionID.Int64)
			d.SessionID = &v
		}
		if checkIn.Valid {
			t := checkIn.Time.UTC()
			d.CheckIn = &t
		}
		if checkOut.Valid {
			t := checkOut.Time.UTC()
			d.CheckOut = &t
		}
		if guests.Valid {
			v := uint32(guests.Int64)
			d.Guests = &v
		}
		if quantity.Valid {
			v := uint32(quantity.Int64)
			d.Quantity = &v
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStalePending returns the IDs and customer IDs of unpaid PENDING
// bookings created before the cutoff. The background sweep cancels
// them through the regular cancellation path, so only identifiers
// are needed here.
func (r *BookingRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE status = 'PENDING' AND paid = 0 AND created_at < ?`
	rows, err := r.db.QueryContext(ctx, q, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
