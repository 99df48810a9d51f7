package payment

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quanvu/homestay-reservation/internal/repository"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewService(db,
		repository.NewPaymentRepo(db),
		repository.NewBookingRepo(db),
		GatewayConfig{
			TmnCode:     "DEMO01",
			HashSecret:  testSecret,
			PayURL:      "https://pay.example.com/vpcpay.html",
			ReturnURL:   "https://api.example.com/v1/payments/vnpay/return",
			SuccessPage: "https://app.example.com/payment/success",
			FailurePage: "https://app.example.com/payment/failure",
		}, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	}
	return svc, mock
}

var (
	bookingCols = []string{"id", "kind", "resource_id", "session_id", "customer_id", "check_in", "check_out", "guests", "quantity", "total_cents", "status", "paid", "created_at", "updated_at"}
	paymentCols = []string{"id", "booking_id", "payer_id", "amount_cents", "method", "status", "txn_ref", "gateway_txn_no", "bank_code", "card_type", "response_code", "settled_at", "created_at", "updated_at"}
)

const (
	lockBookingQ = `SELECT (.+) FROM bookings WHERE id = \? FOR UPDATE`
	lockPaymentQ = `SELECT (.+) FROM payments WHERE txn_ref = \? FOR UPDATE`
)

func bookingRow(id uint64, status string, paid bool, totalCents uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookingCols).
		AddRow(id, "DWELLING", 7, nil, 2, now, now.Add(48*time.Hour), 2, nil, totalCents, status, paid, now, now)
}

func paymentRow(id, bookingID uint64, status, txnRef string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(paymentCols).
		AddRow(id, bookingID, 2, 15000, "VNPAY", status, txnRef, nil, nil, nil, nil, nil, now, now)
}

// signedCallback builds a gateway callback query with a valid
// signature, the way the gateway would deliver it.
func signedCallback(txnRef, responseCode string) url.Values {
	q := url.Values{}
	q.Set("vnp_TmnCode", "DEMO01")
	q.Set("vnp_Amount", "1500000")
	q.Set("vnp_TxnRef", txnRef)
	q.Set("vnp_ResponseCode", responseCode)
	q.Set("vnp_TransactionNo", "14422574")
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_CardType", "ATM")
	q.Set("vnp_PayDate", "20260830170500")
	q.Set(secureHashParam, hashParams(q, testSecret))
	return q
}

func TestCreateCheckoutBuildsSignedRedirect(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
		WillReturnRows(bookingRow(40, "PENDING", false, 15000))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	out, err := svc.CreateCheckout(context.Background(), 2, 40, "203.0.113.9")
	require.NoError(t, err)
	require.NotEmpty(t, out.TxnRef)
	require.True(t, strings.HasPrefix(out.PayURL, "https://pay.example.com/vpcpay.html?"))

	u, err := url.Parse(out.PayURL)
	require.NoError(t, err)
	q := u.Query()

	// Amount is minor units times 100.
	assert.Equal(t, strconv.Itoa(15000*100), q.Get("vnp_Amount"))
	assert.Equal(t, "VND", q.Get("vnp_CurrCode"))
	assert.Equal(t, out.TxnRef, q.Get("vnp_TxnRef"))
	assert.Equal(t, "2.1.0", q.Get("vnp_Version"))
	assert.True(t, verifySignature(q, testSecret))

	// Create and expire dates are gateway wall-clock (GMT+7), 15
	// minutes apart.
	created, err := time.ParseInLocation(payDateLayout, q.Get("vnp_CreateDate"), gatewayZone)
	require.NoError(t, err)
	expires, err := time.ParseInLocation(payDateLayout, q.Get("vnp_ExpireDate"), gatewayZone)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, expires.Sub(created))
	assert.True(t, created.Equal(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutRejectsPaidAndNonPending(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status string
		paid   bool
		want   error
	}{
		{"already paid", "CONFIRMED", true, ErrAlreadyPaid},
		{"cancelled", "CANCELLED", false, ErrBookingNotPayable},
		{"confirmed unpaid", "CONFIRMED", false, ErrBookingNotPayable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectBegin()
			mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
				WillReturnRows(bookingRow(40, tc.status, tc.paid, 15000))
			mock.ExpectRollback()

			_, err := svc.CreateCheckout(context.Background(), 2, 40, "203.0.113.9")
			assert.ErrorIs(t, err, tc.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateCheckoutRejectsForeignBooking(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
		WillReturnRows(bookingRow(40, "PENDING", false, 15000))
	mock.ExpectRollback()

	_, err := svc.CreateCheckout(context.Background(), 99, 40, "203.0.113.9")
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackSuccessSettlesPaymentAndBooking(t *testing.T) {
	svc, mock := newTestService(t)
	cb := signedCallback("abc-123", ResponseCodeSuccess)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPaymentQ).WithArgs("abc-123").
		WillReturnRows(paymentRow(9, 40, "PENDING", "abc-123"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
		WillReturnRows(bookingRow(40, "PENDING", false, 15000))
	// Success marks the booking paid and confirms it in the same
	// transaction as the payment update.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET paid = 1, status = ? WHERE id = ?")).
		WithArgs("CONFIRMED", uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, "abc-123", res.TxnRef)
	assert.Equal(t, ResponseCodeSuccess, res.ResponseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackSuccessKeepsCancelledBookingCancelled(t *testing.T) {
	svc, mock := newTestService(t)
	cb := signedCallback("abc-123", ResponseCodeSuccess)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPaymentQ).WithArgs("abc-123").
		WillReturnRows(paymentRow(9, 40, "PENDING", "abc-123"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(lockBookingQ).WithArgs(uint64(40)).
		WillReturnRows(bookingRow(40, "CANCELLED", false, 15000))
	// The paid flag is still recorded for refund handling, but the
	// cancellation stands.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET paid = 1, status = ? WHERE id = ?")).
		WithArgs("CANCELLED", uint64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackFailureLeavesBookingUntouched(t *testing.T) {
	svc, mock := newTestService(t)
	cb := signedCallback("abc-123", "24") // customer cancelled at the gateway

	mock.ExpectBegin()
	mock.ExpectQuery(lockPaymentQ).WithArgs("abc-123").
		WillReturnRows(paymentRow(9, 40, "PENDING", "abc-123"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "24", res.ResponseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackDuplicateDeliveryIsIdempotent(t *testing.T) {
	svc, mock := newTestService(t)
	cb := signedCallback("abc-123", ResponseCodeSuccess)

	mock.ExpectBegin()
	mock.ExpectQuery(lockPaymentQ).WithArgs("abc-123").
		WillReturnRows(paymentRow(9, 40, "SUCCESS", "abc-123"))
	// Metadata is refreshed but no booking mutation is re-applied.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.AlreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackRejectsBadSignatureWithoutTouchingDB(t *testing.T) {
	svc, mock := newTestService(t)
	cb := signedCallback("abc-123", ResponseCodeSuccess)
	cb.Set("vnp_Amount", "9900000")

	_, err := svc.HandleCallback(context.Background(), cb)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallbackRejectsMissingTxnRef(t *testing.T) {
	svc, mock := newTestService(t)
	q := url.Values{}
	q.Set("vnp_ResponseCode", ResponseCodeSuccess)
	q.Set(secureHashParam, hashParams(url.Values{"vnp_ResponseCode": {ResponseCodeSuccess}}, testSecret))

	_, err := svc.HandleCallback(context.Background(), q)
	assert.ErrorIs(t, err, ErrMissingTxnRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedirectURL(t *testing.T) {
	svc, _ := newTestService(t)

	ok := svc.RedirectURL(&CallbackResult{TxnRef: "abc-123", Success: true})
	assert.Equal(t, "https://app.example.com/payment/success?txnRef=abc-123", ok)

	bad := svc.RedirectURL(&CallbackResult{TxnRef: "abc-123", Success: false})
	assert.Equal(t, "https://app.example.com/payment/failure?txnRef=abc-123", bad)
}
