package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/quanvu/homestay-reservation/internal/payment"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

// PaymentHandler exposes checkout creation and the two gateway
// callback endpoints. The return endpoint serves the end user's
// browser and redirects to a frontend page; the IPN endpoint serves
// the gateway's server-to-server delivery and answers with the
// gateway's expected JSON shape.
type PaymentHandler struct {
	svc *payment.Service
	log *logrus.Entry
}

// NewPaymentHandler constructs a PaymentHandler. The service must be non-nil.
func NewPaymentHandler(svc *payment.Service) *PaymentHandler {
	if svc == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{svc: svc, log: logrus.WithField("component", "payment_handler")}
}

// CreateCheckout handles POST /v1/bookings/:id/checkout. It creates a
// PENDING payment for the booking and returns the signed gateway
// redirect URL the client should send the user to.
func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	out, err := h.svc.CreateCheckout(c.Request().Context(), actor, bookingID, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, payment.ErrAlreadyPaid), errors.Is(err, payment.ErrBookingNotPayable):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		h.log.WithError(err).Error("checkout failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, out)
}

// Return handles GET /v1/payments/vnpay/return, the browser leg of
// the gateway callback. The outcome is applied (or recognized as a
// duplicate of the IPN delivery) and the user is redirected to the
// success or failure page. A bad signature gets a plain 400 with no
// detail.
func (h *PaymentHandler) Return(c echo.Context) error {
	res, err := h.svc.HandleCallback(c.Request().Context(), c.QueryParams())
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, payment.ErrMissingTxnRef) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid callback"})
		}
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown transaction"})
		}
		h.log.WithError(err).Error("return callback failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.Redirect(http.StatusFound, h.svc.RedirectURL(res))
}

// IPN handles GET /v1/payments/vnpay/ipn, the server-to-server leg of
// the gateway callback. The gateway expects a 200 with RspCode/Message
// in the body; it retries on anything else, so processing errors are
// reported in-band.
func (h *PaymentHandler) IPN(c echo.Context) error {
	res, err := h.svc.HandleCallback(c.Request().Context(), c.QueryParams())
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidSignature):
			return c.JSON(http.StatusOK, echo.Map{"RspCode": "97", "Message": "Invalid signature"})
		case errors.Is(err, payment.ErrMissingTxnRef), errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusOK, echo.Map{"RspCode": "01", "Message": "Order not found"})
		}
		h.log.WithError(err).Error("ipn callback failed")
		return c.JSON(http.StatusOK, echo.Map{"RspCode": "99", "Message": "Unknown error"})
	}
	if res.AlreadyProcessed {
		return c.JSON(http.StatusOK, echo.Map{"RspCode": "02", "Message": "Order already confirmed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"RspCode": "00", "Message": "Confirm success"})
}

// GetByBooking handles GET /v1/bookings/:id/payment and returns the
// latest payment recorded for the booking, for the customer or host.
func (h *PaymentHandler) GetByBooking(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	p, err := h.svc.GetForBooking(c.Request().Context(), actor, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound), errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": p})
}
