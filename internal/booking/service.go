package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quanvu/homestay-reservation/internal/model"
	"github.com/quanvu/homestay-reservation/internal/queue"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

// Notifier publishes a notification event after a transaction has
// committed. Failures are logged and ignored; notification delivery
// is at-least-once on the broker side and never part of the booking
// transaction.
type Notifier func(ctx context.Context, event queue.NotificationEvent) error

// ProfileDirectory resolves a user ID to a display name for
// notification text. Implementations are expected to degrade to a
// generic label rather than fail.
type ProfileDirectory interface {
	DisplayName(ctx context.Context, userID uint64) string
}

// Service drives the booking state machine. Every operation takes
// the acting user explicitly; nothing is read from ambient request
// state. All mutations run inside a single transaction holding a row
// lock on the dwelling resource or session, so concurrent admission
// checks for the same resource serialize.
type Service struct {
	db        *sql.DB
	resources *repository.ResourceRepo
	sessions  *repository.SessionRepo
	bookings  *repository.BookingRepo
	notify    Notifier
	profiles  ProfileDirectory
	log       *logrus.Entry
}

// NewService constructs a booking Service. notify and profiles may
// be nil, in which case events are dropped and generic display names
// are used (useful in tests).
func NewService(db *sql.DB, resources *repository.ResourceRepo, sessions *repository.SessionRepo, bookings *repository.BookingRepo, notify Notifier, profiles ProfileDirectory) *Service {
	if db == nil || resources == nil || sessions == nil || bookings == nil {
		panic("nil dependency passed to booking.NewService")
	}
	return &Service{
		db:        db,
		resources: resources,
		sessions:  sessions,
		bookings:  bookings,
		notify:    notify,
		profiles:  profiles,
		log:       logrus.WithField("component", "booking"),
	}
}

// CreateDwellingInput carries the parameters of a date-range booking
// request.
type CreateDwellingInput struct {
	ResourceID uint64
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     uint32
}

// CreateDwellingBooking admits and creates a PENDING booking for a
// dwelling. The availability check and the insert run under a row
// lock on the resource, so two concurrent requests for overlapping
// dates cannot both succeed. Total price is the nightly price times
// the number of nights.
func (s *Service) CreateDwellingBooking(ctx context.Context, actorID uint64, in CreateDwellingInput) (*model.Booking, error) {
	if err := ValidateStay(in.CheckIn, in.CheckOut, time.Now().UTC()); err != nil {
		return nil, err
	}
	if in.Guests == 0 {
		in.Guests = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.resources.LockByIDTx(ctx, tx, in.ResourceID)
	if err != nil {
		return nil, err
	}
	if res.Kind != model.KindDwelling {
		return nil, ErrKindMismatch
	}
	if res.HostID == actorID {
		return nil, ErrOwnListing
	}
	if !res.IsActive {
		return nil, ErrListingInactive
	}
	if in.Guests > res.Capacity {
		return nil, ErrTooManyGuests
	}

	overlap, err := s.bookings.HasOverlapTx(ctx, tx, res.ID, in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrDateOverlap
	}

	nights := Nights(in.CheckIn, in.CheckOut)
	checkIn := in.CheckIn.UTC()
	checkOut := in.CheckOut.UTC()
	b := &model.Booking{
		Kind:       model.BookingDwelling,
		ResourceID: res.ID,
		CustomerID: actorID,
		CheckIn:    &checkIn,
		CheckOut:   &checkOut,
		Guests:     &in.Guests,
		TotalCents: res.PriceCents * nights,
		Status:     model.BookingPending,
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.publish(ctx, queue.NotificationEvent{
		RecipientID: res.HostID,
		Type:        queue.NotifyBookingRequested,
		Title:       "New booking request",
		Message: fmt.Sprintf("%s requested %s for %d night(s), %d guest(s)",
			s.displayName(ctx, actorID), res.Name, nights, in.Guests),
		ReferenceID: b.ID,
	})
	return b, nil
}

// CreateSessionInput carries the parameters of a seat booking
// request against an experience session.
type CreateSessionInput struct {
	SessionID uint64
	Quantity  uint32
}

// CreateSessionBooking admits and creates a PENDING booking for
// seats on a session. The capacity check, the booking insert and the
// counter update run under a row lock on the session, so the
// read-modify-write of the counter is one atomic unit. A request
// that would exceed capacity fails with a CapacityError carrying the
// remaining seat count; a session whose counter reaches capacity is
// marked FULL.
func (s *Service) CreateSessionBooking(ctx context.Context, actorID uint64, in CreateSessionInput) (*model.Booking, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := s.sessions.LockByIDTx(ctx, tx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.StartsAt.After(time.Now().UTC()) {
		return nil, ErrSessionStarted
	}
	res, err := s.resources.GetByID(ctx, sess.ResourceID)
	if err != nil {
		return nil, err
	}
	if res.Kind != model.KindExperience {
		return nil, ErrKindMismatch
	}
	if res.HostID == actorID {
		return nil, ErrOwnListing
	}
	if !res.IsActive {
		return nil, ErrListingInactive
	}

	remaining := uint32(0)
	if res.Capacity > sess.BookedParticipants {
		remaining = res.Capacity - sess.BookedParticipants
	}
	if in.Quantity > remaining {
		return nil, &CapacityError{Remaining: remaining}
	}

	newBooked := sess.BookedParticipants + in.Quantity
	status := model.SessionActive
	if newBooked >= res.Capacity {
		status = model.SessionFull
	}

	b := &model.Booking{
		Kind:       model.BookingSession,
		ResourceID: res.ID,
		SessionID:  &sess.ID,
		CustomerID: actorID,
		Quantity:   &in.Quantity,
		TotalCents: res.PriceCents * in.Quantity,
		Status:     model.BookingPending,
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := s.sessions.SetBookedTx(ctx, tx, sess.ID, newBooked, status); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.publish(ctx, queue.NotificationEvent{
		RecipientID: res.HostID,
		Type:        queue.NotifyBookingRequested,
		Title:       "New booking request",
		Message: fmt.Sprintf("%s booked %d seat(s) for %s",
			s.displayName(ctx, actorID), in.Quantity, res.Name),
		ReferenceID: b.ID,
	})
	return b, nil
}

// Confirm moves a PENDING booking to CONFIRMED on behalf of the
// host. Confirming an already confirmed or cancelled booking is
// rejected. A guest-facing notification is emitted after commit.
func (s *Service) Confirm(ctx context.Context, actorID, bookingID uint64) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.LockByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	res, err := s.resources.GetByID(ctx, b.ResourceID)
	if err != nil {
		return nil, err
	}
	if res.HostID != actorID {
		return nil, repository.ErrForbidden
	}
	switch b.Status {
	case model.BookingConfirmed:
		return nil, ErrAlreadyConfirmed
	case model.BookingCancelled:
		return nil, ErrAlreadyCancelled
	}
	if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingConfirmed); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.Status = model.BookingConfirmed

	s.publish(ctx, queue.NotificationEvent{
		RecipientID: b.CustomerID,
		Type:        queue.NotifyBookingConfirmed,
		Title:       "Booking confirmed",
		Message:     fmt.Sprintf("Your booking for %s was confirmed by the host", res.Name),
		ReferenceID: b.ID,
	})
	return b, nil
}

// Cancel moves a booking to CANCELLED on behalf of its customer and
// releases what the booking held: the date range becomes available
// again implicitly (cancelled bookings are excluded from the overlap
// test), and a session booking returns its seats to the counter,
// flipping a FULL session back to ACTIVE when it drops below
// capacity. Cancelling twice is rejected.
func (s *Service) Cancel(ctx context.Context, actorID, bookingID uint64) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.LockByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actorID {
		return nil, repository.ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}

	if b.Kind == model.BookingSession && b.SessionID != nil && b.Quantity != nil {
		sess, err := s.sessions.LockByIDTx(ctx, tx, *b.SessionID)
		if err != nil {
			return nil, err
		}
		res, err := s.resources.GetByID(ctx, sess.ResourceID)
		if err != nil {
			return nil, err
		}
		newBooked := uint32(0)
		if sess.BookedParticipants > *b.Quantity {
			newBooked = sess.BookedParticipants - *b.Quantity
		}
		status := model.SessionFull
		if newBooked < res.Capacity {
			status = model.SessionActive
		}
		if err := s.sessions.SetBookedTx(ctx, tx, sess.ID, newBooked, status); err != nil {
			return nil, err
		}
	}

	if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.Status = model.BookingCancelled

	res, err := s.resources.GetByID(ctx, b.ResourceID)
	if err == nil {
		s.publish(ctx, queue.NotificationEvent{
			RecipientID: res.HostID,
			Type:        queue.NotifyBookingCancelled,
			Title:       "Booking cancelled",
			Message: fmt.Sprintf("%s cancelled their booking for %s",
				s.displayName(ctx, b.CustomerID), res.Name),
			ReferenceID: b.ID,
		})
	}
	return b, nil
}

// Get returns a booking visible to the acting user: its customer or
// the host of the booked listing.
func (s *Service) Get(ctx context.Context, actorID, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actorID {
		res, err := s.resources.GetByID(ctx, b.ResourceID)
		if err != nil {
			return nil, err
		}
		if res.HostID != actorID {
			return nil, repository.ErrForbidden
		}
	}
	return b, nil
}

// ListForCustomer returns the acting user's bookings, newest first.
func (s *Service) ListForCustomer(ctx context.Context, actorID uint64) ([]repository.BookingDetail, error) {
	return s.bookings.ListByCustomer(ctx, actorID)
}

// SweepStalePending cancels unpaid PENDING bookings older than
// maxAge through the regular cancellation path, releasing their date
// ranges and seats. It is invoked by a periodic background job. The
// sweep is best-effort; individual failures are logged and skipped.
func (s *Service) SweepStalePending(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	stale, err := s.bookings.ListStalePending(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Warn("stale-pending sweep: list failed")
		return 0
	}
	cancelled := 0
	for _, b := range stale {
		if _, err := s.Cancel(ctx, b.CustomerID, b.ID); err != nil {
			s.log.WithError(err).WithField("booking_id", b.ID).Warn("stale-pending sweep: cancel failed")
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		s.log.WithField("cancelled", cancelled).Info("stale-pending sweep completed")
	}
	return cancelled
}

func (s *Service) displayName(ctx context.Context, userID uint64) string {
	if s.profiles == nil {
		return fmt.Sprintf("Guest #%d", userID)
	}
	return s.profiles.DisplayName(ctx, userID)
}

func (s *Service) publish(ctx context.Context, ev queue.NotificationEvent) {
	if s.notify == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.notify(ctx, ev); err != nil {
		s.log.WithError(err).WithField("type", ev.Type).Warn("notification publish failed")
	}
}
