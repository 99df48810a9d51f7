package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanvu/homestay-reservation/internal/model"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewService(db,
		repository.NewResourceRepo(db),
		repository.NewSessionRepo(db),
		repository.NewBookingRepo(db),
		nil, nil,
	)
	return svc, mock
}

var (
	resourceCols = []string{"id", "host_id", "kind", "name", "description", "price_cents", "capacity", "lat", "lng", "is_active", "created_at", "updated_at"}
	sessionCols  = []string{"id", "resource_id", "starts_at", "ends_at", "booked_participants", "status", "created_at", "updated_at"}
	bookingCols  = []string{"id", "kind", "resource_id", "session_id", "customer_id", "check_in", "check_out", "guests", "quantity", "total_cents", "status", "paid", "created_at", "updated_at"}
)

func resourceRow(id, hostID uint64, kind model.ResourceKind, priceCents, capacity uint32, active bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(resourceCols).
		AddRow(id, hostID, string(kind), "Lakeside cabin", "", priceCents, capacity, 21.03, 105.85, active, now, now)
}

func sessionRow(id, resourceID uint64, startsAt time.Time, booked uint32, status model.SessionStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(sessionCols).
		AddRow(id, resourceID, startsAt, startsAt.Add(2*time.Hour), booked, string(status), now, now)
}

const (
	lockResourceQ = `SELECT (.+) FROM resources WHERE id = \? FOR UPDATE`
	getResourceQ  = `SELECT (.+) FROM resources WHERE id = \?$`
	lockSessionQ  = `SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`
	lockBookingQ  = `SELECT (.+) FROM bookings WHERE id = \? FOR UPDATE`
	getBookingQ   = `SELECT (.+) FROM bookings WHERE id = \?$`
)

func TestCreateSessionBookingRejectsOverCapacity(t *testing.T) {
	svc, mock := newTestService(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSessionQ).WithArgs(uint64(4)).
		WillReturnRows(sessionRow(4, 7, startsAt, 8, model.SessionActive))
	mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindExperience, 2500, 10, true))
	mock.ExpectRollback()

	_, err := svc.CreateSessionBooking(context.Background(), 2, CreateSessionInput{SessionID: 4, Quantity: 3})

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, uint32(2), capErr.Remaining)
	assert.EqualError(t, err, "not enough slots, 2 remaining")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionBookingFillsToCapacity(t *testing.T) {
	svc, mock := newTestService(t)
	startsAt := time.Now().UTC().Add(48 * time.Hour)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockSessionQ).WithArgs(uint64(4)).
		WillReturnRows(sessionRow(4, 7, startsAt, 8, model.SessionActive))
	mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindExperience, 2500, 10, true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectQuery(getBookingQ).WithArgs(uint64(31)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(31, "SESSION", 7, 4, 2, nil, nil, nil, 2, 5000, "PENDING", false, now, now))
	// Counter goes to capacity, so the session flips to FULL.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET booked_participants = ?, status = ? WHERE id = ?")).
		WithArgs(uint32(10), "FULL", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.CreateSessionBooking(context.Background(), 2, CreateSessionInput{SessionID: 4, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, uint32(5000), b.TotalCents)
	require.NotNil(t, b.Quantity)
	assert.Equal(t, uint32(2), *b.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSessionBookingRejectsStartedSession(t *testing.T) {
	svc, mock := newTestService(t)
	startsAt := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSessionQ).WithArgs(uint64(4)).
		WillReturnRows(sessionRow(4, 7, startsAt, 0, model.SessionActive))
	mock.ExpectRollback()

	_, err := svc.CreateSessionBooking(context.Background(), 2, CreateSessionInput{SessionID: 4, Quantity: 1})
	assert.ErrorIs(t, err, ErrSessionStarted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDwellingBookingRejectsOverlap(t *testing.T) {
	svc, mock := newTestService(t)
	checkIn := time.Now().UTC().Add(72 * time.Hour)
	checkOut := checkIn.Add(48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindDwelling, 5000, 4, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := svc.CreateDwellingBooking(context.Background(), 2, CreateDwellingInput{
		ResourceID: 7, CheckIn: checkIn, CheckOut: checkOut, Guests: 2,
	})
	assert.ErrorIs(t, err, ErrDateOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDwellingBookingPricesPerNight(t *testing.T) {
	svc, mock := newTestService(t)
	checkIn := time.Now().UTC().Add(72 * time.Hour)
	checkOut := checkIn.Add(3 * 24 * time.Hour)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindDwelling, 5000, 4, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectQuery(getBookingQ).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(40, "DWELLING", 7, nil, 2, checkIn, checkOut, 2, nil, 15000, "PENDING", false, now, now))
	mock.ExpectCommit()

	b, err := svc.CreateDwellingBooking(context.Background(), 2, CreateDwellingInput{
		ResourceID: 7, CheckIn: checkIn, CheckOut: checkOut, Guests: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(15000), b.TotalCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDwellingBookingRejectsOwnListing(t *testing.T) {
	svc, mock := newTestService(t)
	checkIn := time.Now().UTC().Add(72 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(lockResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 2, model.KindDwelling, 5000, 4, true))
	mock.ExpectRollback()

	_, err := svc.CreateDwellingBooking(context.Background(), 2, CreateDwellingInput{
		ResourceID: 7, CheckIn: checkIn, CheckOut: checkIn.Add(24 * time.Hour), Guests: 1,
	})
	assert.ErrorIs(t, err, ErrOwnListing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelSessionBookingReleasesSeats(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(31)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(31, "SESSION", 7, 4, 2, nil, nil, nil, 2, 5000, "PENDING", false, now, now))
	mock.ExpectQuery(lockSessionQ).WithArgs(uint64(4)).
		WillReturnRows(sessionRow(4, 7, now.Add(48*time.Hour), 10, model.SessionFull))
	mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindExperience, 2500, 10, true))
	// Dropping below capacity flips the session back to ACTIVE.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET booked_participants = ?, status = ? WHERE id = ?")).
		WithArgs(uint32(8), "ACTIVE", uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ?")).
		WithArgs("CANCELLED", uint64(31)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Post-commit resource read for the host notification.
	mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindExperience, 2500, 10, true))

	b, err := svc.Cancel(context.Background(), 2, 31)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRejectsForeignBooking(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(31)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(31, "SESSION", 7, 4, 2, nil, nil, nil, 2, 5000, "PENDING", false, now, now))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), 99, 31)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmRequiresHost(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(40, "DWELLING", 7, nil, 2, now, now.Add(24*time.Hour), 2, nil, 5000, "PENDING", false, now, now))
	mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
		WillReturnRows(resourceRow(7, 1, model.KindDwelling, 5000, 4, true))
	mock.ExpectRollback()

	_, err := svc.Confirm(context.Background(), 5, 40)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmRejectsRepeatAndCancelled(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now().UTC()

	for _, tc := range []struct {
		status string
		want   error
	}{
		{"CONFIRMED", ErrAlreadyConfirmed},
		{"CANCELLED", ErrAlreadyCancelled},
	} {
		mock.ExpectBegin()
		mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
			WillReturnRows(sqlmock.NewRows(bookingCols).
				AddRow(40, "DWELLING", 7, nil, 2, now, now.Add(24*time.Hour), 2, nil, 5000, tc.status, false, now, now))
		mock.ExpectQuery(getResourceQ).WithArgs(uint64(7)).
			WillReturnRows(resourceRow(7, 1, model.KindDwelling, 5000, 4, true))
		mock.ExpectRollback()

		_, err := svc.Confirm(context.Background(), 1, 40)
		assert.ErrorIs(t, err, tc.want)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
