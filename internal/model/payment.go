package model

import "time"

// PaymentStatus enumerates payment outcomes. A payment is created
// PENDING when the redirect URL is issued and resolved to SUCCESS
// or FAILED exactly once by the gateway callback.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Payment records one settlement attempt for a booking as stored
// in the `payments` table. TxnRef is generated locally before the
// outbound redirect and is unique across all payments; the gateway
// echoes it back in the callback so the two sides can be matched.
// The gateway-assigned fields are nullable and written only by the
// callback reconciler.
//
// Fields:
//  ID           – primary key identifier.
//  BookingID    – booking this payment settles.
//  PayerID      – user who initiated the checkout.
//  AmountCents  – amount in minor units; equals the booking total.
//  Method       – payment method label (e.g. VNPAY).
//  Status       – PENDING, SUCCESS or FAILED.
//  TxnRef       – locally generated unique transaction reference.
//  GatewayTxnNo – transaction number assigned by the gateway.
//  BankCode     – bank code reported by the gateway.
//  CardType     – card type reported by the gateway.
//  ResponseCode – raw gateway response code ("00" on success).
//  SettledAt    – settlement instant reported by the gateway.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Payment struct {
	ID           uint64        // payments.id
	BookingID    uint64        // payments.booking_id
	PayerID      uint64        // payments.payer_id
	AmountCents  uint32        // payments.amount_cents
	Method       string        // payments.method
	Status       PaymentStatus // payments.status
	TxnRef       string        // payments.txn_ref (unique)
	GatewayTxnNo *string       // payments.gateway_txn_no (nullable)
	BankCode     *string       // payments.bank_code (nullable)
	CardType     *string       // payments.card_type (nullable)
	ResponseCode *string       // payments.response_code (nullable)
	SettledAt    *time.Time    // payments.settled_at (nullable)
	CreatedAt    time.Time     // payments.created_at
	UpdatedAt    time.Time     // payments.updated_at
}
