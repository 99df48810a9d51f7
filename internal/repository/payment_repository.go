package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quanvu/homestay-reservation/internal/model"
)

// PaymentRepo provides data access to the payments table. A payment
// row is created PENDING when a checkout redirect is issued and
// resolved exactly once by the gateway callback; both writes happen
// inside transactions owned by the payment service so they stay
// atomic with the associated booking mutation.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

const paymentColumns = `id, booking_id, payer_id, amount_cents, method, status, txn_ref, gateway_txn_no, bank_code, card_type, response_code, settled_at, created_at, updated_at`

func scanPayment(scan func(dest ...interface{}) error) (*model.Payment, error) {
	var (
		p            model.Payment
		gatewayTxnNo sql.NullString
		bankCode     sql.NullString
		cardType     sql.NullString
		responseCode sql.NullString
		settledAt    sql.NullTime
	)
	err := scan(
		&p.ID, &p.BookingID, &p.PayerID, &p.AmountCents, &p.Method,
		&p.Status, &p.TxnRef, &gatewayTxnNo, &bankCode, &cardType,
		&responseCode, &settledAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayTxnNo.Valid {
		v := gatewayTxnNo.String
		p.GatewayTxnNo = &v
	}
	if bankCode.Valid {
		v := bankCode.String
		p.BankCode = &v
	}
	if cardType.Valid {
		v := cardType.String
		p.CardType = &v
	}
	if responseCode.Valid {
		v := responseCode.String
		p.ResponseCode = &v
	}
	if settledAt.Valid {
		t := settledAt.Time.UTC()
		p.SettledAt = &t
	}
	return &p, nil
}

// CreateTx inserts a new PENDING payment within the given transaction
// and populates the generated ID on the record. The txn_ref column
// carries a UNIQUE constraint, so a duplicate reference fails the
// insert rather than silently aliasing two payments.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, payer_id, amount_cents, method, status, txn_ref)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		p.BookingID, p.PayerID, p.AmountCents, p.Method, string(p.Status), p.TxnRef,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByTxnRefTx loads a payment by its transaction reference within
// the given transaction and takes an exclusive row lock on it, so a
// duplicate gateway delivery for the same reference serializes
// behind the first one. Returns ErrPaymentNotFound when absent.
func (r *PaymentRepo) GetByTxnRefTx(ctx context.Context, tx *sql.Tx, txnRef string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE txn_ref = ? FOR UPDATE`
	p, err := scanPayment(tx.QueryRowContext(ctx, q, txnRef).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetByBookingID returns the most recent payment for a booking, or
// ErrPaymentNotFound when the booking has no payment yet.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ? ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, q, bookingID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// GatewayResult carries the metadata fields a gateway callback
// reports for a payment. All fields are optional; absent values are
// stored as NULL.
type GatewayResult struct {
	GatewayTxnNo string
	BankCode     string
	CardType     string
	ResponseCode string
	SettledAt    *time.Time
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ResolveTx moves a payment to its terminal status and records the
// gateway metadata in one statement within the given transaction.
func (r *PaymentRepo) ResolveTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PaymentStatus, res GatewayResult) error {
	const q = `UPDATE payments
	           SET status = ?, gateway_txn_no = ?, bank_code = ?, card_type = ?, response_code = ?, settled_at = ?
	           WHERE id = ?`
	var settled interface{}
	if res.SettledAt != nil {
		settled = res.SettledAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q,
		string(status),
		nullableStr(res.GatewayTxnNo), nullableStr(res.BankCode),
		nullableStr(res.CardType), nullableStr(res.ResponseCode),
		settled, id,
	)
	return err
}

// RecordGatewayMetadataTx stores gateway metadata on a payment that
// has already been resolved, without touching its status. Used when
// the gateway redelivers a callback for a settled payment: the
// delivery is acknowledged but no state transition is re-applied.
func (r *PaymentRepo) RecordGatewayMetadataTx(ctx context.Context, tx *sql.Tx, id uint64, res GatewayResult) error {
	const q = `UPDATE payments
	           SET gateway_txn_no = ?, bank_code = ?, card_type = ?, response_code = ?, settled_at = ?
	           WHERE id = ?`
	var settled interface{}
	if res.SettledAt != nil {
		settled = res.SettledAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q,
		nullableStr(res.GatewayTxnNo), nullableStr(res.BankCode),
		nullableStr(res.CardType), nullableStr(res.ResponseCode),
		settled, id,
	)
	return err
}
