// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification types understood by the downstream dispatcher. Each
// value selects a template on the notification side; this service
// only fills in the recipient and the reference.
const (
	NotifyBookingRequested = "BOOKING_REQUESTED" // host: a guest asked to book
	NotifyBookingConfirmed = "BOOKING_CONFIRMED" // guest: the host or a payment confirmed
	NotifyBookingCancelled = "BOOKING_CANCELLED" // host: the guest cancelled
	NotifyPaymentSettled   = "PAYMENT_SETTLED"   // guest: settlement outcome recorded
)

// NotificationEvent is published after a booking or payment
// transaction commits. It carries enough information for the
// notification service to deliver a message without querying the
// primary database. Delivery is fire-and-forget: a publish failure
// never rolls back the transaction that produced the event.
type NotificationEvent struct {
	EventID     string `json:"event_id"`     // unique per publish, for consumer-side dedup
	RecipientID uint64 `json:"recipient_id"` // user the notification addresses
	Type        string `json:"type"`         // one of the Notify* constants
	Title       string `json:"title"`        // short human-readable headline
	Message     string `json:"message"`      // full notification body
	ReferenceID uint64 `json:"reference_id"` // booking or payment the event refers to
	CreatedAt   string `json:"created_at"`   // RFC3339 publish time
}
