package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quanvu/homestay-reservation/internal/booking"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

// BookingHandler exposes the booking state machine over HTTP. All
// routes assume JWT authentication has already run; the acting user
// is read from the context and passed explicitly into every service
// call.
type BookingHandler struct {
	svc *booking.Service
}

// NewBookingHandler constructs a BookingHandler. The service must be non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{svc: svc}
}

// bookingError translates service and repository sentinels into
// HTTP responses. Admission rejections are user-visible 400s with
// the error text as the message; unknown errors become opaque 500s.
func bookingError(c echo.Context, err error) error {
	var capErr *booking.CapacityError
	switch {
	case errors.Is(err, repository.ErrResourceNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &capErr),
		errors.Is(err, booking.ErrInvalidStay),
		errors.Is(err, booking.ErrStayInPast),
		errors.Is(err, booking.ErrDateOverlap),
		errors.Is(err, booking.ErrOwnListing),
		errors.Is(err, booking.ErrListingInactive),
		errors.Is(err, booking.ErrKindMismatch),
		errors.Is(err, booking.ErrTooManyGuests),
		errors.Is(err, booking.ErrSessionStarted),
		errors.Is(err, booking.ErrAlreadyConfirmed),
		errors.Is(err, booking.ErrAlreadyCancelled):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

type createDwellingRequest struct {
	CheckIn  string `json:"check_in" validate:"required"`
	CheckOut string `json:"check_out" validate:"required"`
	Guests   uint32 `json:"guests" validate:"gte=1"`
}

// CreateDwellingBooking handles POST /v1/listings/:id/bookings. It
// admits a date-range request against a dwelling and creates a
// PENDING booking. Overlapping dates are rejected with 400 before
// anything is written.
func (h *BookingHandler) CreateDwellingBooking(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resourceID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body createDwellingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	checkIn, err := time.Parse(time.RFC3339, body.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_in must be RFC3339"})
	}
	checkOut, err := time.Parse(time.RFC3339, body.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "check_out must be RFC3339"})
	}

	b, err := h.svc.CreateDwellingBooking(c.Request().Context(), actor, booking.CreateDwellingInput{
		ResourceID: resourceID,
		CheckIn:    checkIn.UTC(),
		CheckOut:   checkOut.UTC(),
		Guests:     body.Guests,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

type createSessionRequest struct {
	Quantity uint32 `json:"quantity" validate:"gte=1"`
}

// CreateSessionBooking handles POST /v1/sessions/:id/bookings. It
// admits a seat request against an experience session and creates a
// PENDING booking. A request exceeding the remaining capacity is
// rejected with a remaining-seats hint.
func (h *BookingHandler) CreateSessionBooking(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body createSessionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	b, err := h.svc.CreateSessionBooking(c.Request().Context(), actor, booking.CreateSessionInput{
		SessionID: sessionID,
		Quantity:  body.Quantity,
	})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

// Confirm handles POST /v1/bookings/:id/confirm. Only the host of
// the booked listing may confirm; repeated confirms and confirms of
// cancelled bookings are rejected.
func (h *BookingHandler) Confirm(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	b, err := h.svc.Confirm(c.Request().Context(), actor, bookingID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Cancel handles DELETE /v1/bookings/:id. Only the booking's
// customer may cancel. Cancelling releases the held date range or
// session seats in the same transaction.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	b, err := h.svc.Cancel(c.Request().Context(), actor, bookingID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// Get handles GET /v1/bookings/:id for the booking's customer or
// the listing's host.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	b, err := h.svc.Get(c.Request().Context(), actor, bookingID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// List handles GET /v1/my-bookings. Returns the acting user's
// bookings, newest first, with listing names.
func (h *BookingHandler) List(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.svc.ListForCustomer(c.Request().Context(), actor)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
