// Package workflow defines the hand-off of reconciled deposits to the
// downstream workflow system.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventDepositCaptured is the envelope type of a captured deposit.
const EventDepositCaptured = "deposit.captured"

// Dispatcher enqueues completion events. A nil error means the event is
// enqueued; delivery downstream is at-least-once.
type Dispatcher interface {
	Push(ctx context.Context, payload string, paymentID int64) error
}

// Envelope is the message written to queue-backed dispatchers.
type Envelope struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	PaymentID  int64     `json:"payment_id"`
	Payload    string    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewEnvelope wraps a payload for paymentID.
func NewEnvelope(payload string, paymentID int64, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.New(),
		Type:       EventDepositCaptured,
		PaymentID:  paymentID,
		Payload:    payload,
		EnqueuedAt: now.UTC(),
	}
}
