package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/quanvu/homestay-reservation/internal/model"
	"github.com/quanvu/homestay-reservation/internal/queue"
	"github.com/quanvu/homestay-reservation/internal/repository"
)

// Sentinel errors surfaced by the settlement flow.
var (
	// ErrInvalidSignature rejects a callback whose signature does not
	// verify. Nothing is mutated and no detail beyond a generic
	// failure is leaked to the caller.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAlreadyPaid rejects a checkout for a booking that has
	// already been settled.
	ErrAlreadyPaid = errors.New("booking is already paid")

	// ErrBookingNotPayable rejects a checkout for a booking that is
	// not in the PENDING state.
	ErrBookingNotPayable = errors.New("booking cannot be paid in its current state")

	// ErrMissingTxnRef rejects a callback without a transaction
	// reference.
	ErrMissingTxnRef = errors.New("missing transaction reference")
)

// Notifier publishes a notification event after a settlement
// transaction has committed.
type Notifier func(ctx context.Context, event queue.NotificationEvent) error

// Service is the settlement gateway adapter and callback reconciler.
// Checkout creation and callback resolution each run in a single
// transaction covering the payment row and the booking mutation, so
// the pair commits or rolls back together.
type Service struct {
	db       *sql.DB
	payments *repository.PaymentRepo
	bookings *repository.BookingRepo
	cfg      GatewayConfig
	notify   Notifier
	log      *logrus.Entry
	now      func() time.Time
}

// NewService constructs a payment Service. notify may be nil, in
// which case settlement events are dropped (useful in tests).
func NewService(db *sql.DB, payments *repository.PaymentRepo, bookings *repository.BookingRepo, cfg GatewayConfig, notify Notifier) *Service {
	if db == nil || payments == nil || bookings == nil {
		panic("nil dependency passed to payment.NewService")
	}
	if cfg.PaymentExpiry <= 0 {
		cfg.PaymentExpiry = 15 * time.Minute
	}
	return &Service{
		db:       db,
		payments: payments,
		bookings: bookings,
		cfg:      cfg,
		notify:   notify,
		log:      logrus.WithField("component", "payment"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Checkout is the result of creating a settlement redirect.
type Checkout struct {
	PayURL string `json:"pay_url"`
	TxnRef string `json:"txn_ref"`
}

// CreateCheckout persists a PENDING payment for the booking and
// builds the signed gateway redirect URL. The transaction reference
// is generated before the redirect is issued and is unique across
// all payments; the payment amount is fixed to the booking total at
// creation time.
func (s *Service) CreateCheckout(ctx context.Context, actorID, bookingID uint64, clientIP string) (*Checkout, error) {
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
	if b.Paid {
		return nil, ErrAlreadyPaid
	}
	if b.Status != model.BookingPending {
		return nil, ErrBookingNotPayable
	}

	txnRef := uuid.NewString()
	p := &model.Payment{
		BookingID:   b.ID,
		PayerID:     actorID,
		AmountCents: b.TotalCents,
		Method:      "VNPAY",
		Status:      model.PaymentPending,
		TxnRef:      txnRef,
	}
	if err := s.payments.CreateTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	createdAt := s.now().In(gatewayZone)
	params := url.Values{}
	params.Set("vnp_Version", protocolVersion)
	params.Set("vnp_Command", commandPay)
	params.Set("vnp_TmnCode", s.cfg.TmnCode)
	// Amount is the price in minor units scaled by 100, as an
	// integer with no fractional part.
	params.Set("vnp_Amount", strconv.FormatUint(uint64(b.TotalCents)*100, 10))
	params.Set("vnp_CurrCode", currencyCode)
	params.Set("vnp_TxnRef", txnRef)
	params.Set("vnp_OrderInfo", fmt.Sprintf("Payment for booking #%d", b.ID))
	params.Set("vnp_OrderType", orderType)
	params.Set("vnp_Locale", defaultLocale)
	params.Set("vnp_ReturnUrl", s.cfg.ReturnURL)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_CreateDate", createdAt.Format(payDateLayout))
	params.Set("vnp_ExpireDate", createdAt.Add(s.cfg.PaymentExpiry).Format(payDateLayout))

	return &Checkout{
		PayURL: buildPayURL(s.cfg.PayURL, params, s.cfg.HashSecret),
		TxnRef: txnRef,
	}, nil
}

// GetForBooking returns the latest payment recorded for a booking.
// Only the booking's customer may read it.
func (s *Service) GetForBooking(ctx context.Context, actorID, bookingID uint64) (*model.Payment, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actorID {
		return nil, repository.ErrForbidden
	}
	return s.payments.GetByBookingID(ctx, bookingID)
}

// CallbackResult reports the outcome of reconciling one gateway
// callback delivery.
type CallbackResult struct {
	TxnRef           string
	Success          bool
	AlreadyProcessed bool
	ResponseCode     string
}

// RedirectURL returns the frontend destination for the end user
// after the callback has been processed, carrying the transaction
// reference as a query parameter.
func (s *Service) RedirectURL(r *CallbackResult) string {
	page := s.cfg.FailurePage
	if r.Success {
		page = s.cfg.SuccessPage
	}
	return page + "?txnRef=" + url.QueryEscape(r.TxnRef)
}

// HandleCallback verifies and applies one inbound gateway
// notification. The signature is checked before anything else; a
// mismatch mutates nothing. The payment is looked up by vnp_TxnRef
// under a row lock so duplicate deliveries serialize: a payment that
// is no longer PENDING has its gateway metadata recorded but no
// state transition re-applied. On the success response code the
// payment becomes SUCCESS and the owning booking is marked paid (and
// confirmed, unless it was cancelled meanwhile) in the same
// transaction; any other code resolves the payment FAILED and leaves
// the booking untouched.
func (s *Service) HandleCallback(ctx context.Context, query url.Values) (*CallbackResult, error) {
	if !verifySignature(query, s.cfg.HashSecret) {
		s.log.WithField("txn_ref", query.Get("vnp_TxnRef")).Warn("callback signature mismatch")
		return nil, ErrInvalidSignature
	}
	txnRef := query.Get("vnp_TxnRef")
	if txnRef == "" {
		return nil, ErrMissingTxnRef
	}

	meta := repository.GatewayResult{
		GatewayTxnNo: query.Get("vnp_TransactionNo"),
		BankCode:     query.Get("vnp_BankCode"),
		CardType:     query.Get("vnp_CardType"),
		ResponseCode: query.Get("vnp_ResponseCode"),
		SettledAt:    parsePayDate(query.Get("vnp_PayDate")),
	}
	success := meta.ResponseCode == ResponseCodeSuccess

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

	p, err := s.payments.GetByTxnRefTx(ctx, tx, txnRef)
	if err != nil {
		return nil, err
	}

	// Duplicate delivery: the payment was already resolved. Record
	// the gateway fields and acknowledge without re-applying the
	// booking side effect.
	if p.Status != model.PaymentPending {
		if err := s.payments.RecordGatewayMetadataTx(ctx, tx, p.ID, meta); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return &CallbackResult{
			TxnRef:           txnRef,
			Success:          p.Status == model.PaymentSuccess,
			AlreadyProcessed: true,
			ResponseCode:     meta.ResponseCode,
		}, nil
	}

	status := model.PaymentFailed
	if success {
		status = model.PaymentSuccess
	}
	if err := s.payments.ResolveTx(ctx, tx, p.ID, status, meta); err != nil {
		return nil, err
	}

	var confirmedBooking *model.Booking
	if success {
		b, err := s.bookings.LockByIDTx(ctx, tx, p.BookingID)
		if err != nil {
			return nil, err
		}
		// Successful settlement also confirms a live booking; a
		// booking cancelled in the meantime keeps its status but the
		// paid flag is still recorded for refund handling.
		newStatus := model.BookingConfirmed
		if b.Status == model.BookingCancelled {
			newStatus = model.BookingCancelled
		}
		if err := s.bookings.MarkPaidTx(ctx, tx, b.ID, newStatus); err != nil {
			return nil, err
		}
		if newStatus == model.BookingConfirmed && b.Status != model.BookingConfirmed {
			confirmedBooking = b
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	outcome := "failed"
	if success {
		outcome = "settled"
	}
	s.publish(ctx, queue.NotificationEvent{
		RecipientID: p.PayerID,
		Type:        queue.NotifyPaymentSettled,
		Title:       "Payment " + outcome,
		Message:     fmt.Sprintf("Payment %s for booking #%d %s", txnRef, p.BookingID, outcome),
		ReferenceID: p.BookingID,
	})
	if confirmedBooking != nil {
		s.publish(ctx, queue.NotificationEvent{
			RecipientID: confirmedBooking.CustomerID,
			Type:        queue.NotifyBookingConfirmed,
			Title:       "Booking confirmed",
			Message:     fmt.Sprintf("Your booking #%d is confirmed and paid", confirmedBooking.ID),
			ReferenceID: confirmedBooking.ID,
		})
	}

	return &CallbackResult{
		TxnRef:       txnRef,
		Success:      success,
		ResponseCode: meta.ResponseCode,
	}, nil
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
