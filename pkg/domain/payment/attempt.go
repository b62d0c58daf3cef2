package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the lifecycle state of a provider attempt.
type AttemptStatus string

const (
	// StatusPending means a checkout session exists and awaits its outcome.
	StatusPending AttemptStatus = "pending"
	// StatusCaptured means the provider confirmed the payment. Terminal.
	StatusCaptured AttemptStatus = "captured"
)

// ErrAlreadyCaptured is returned when capturing an attempt that is not pending.
var ErrAlreadyCaptured = errors.New("attempt already captured")

// Attempt is one record in a payment's attempt history. A session starts with
// a pending record; its capture appends a second record for the same session.
type Attempt struct {
	ID               uuid.UUID
	SessionReference string
	Status           AttemptStatus
	CreatedAt        time.Time
	Settlement       *Settlement
}

// Settlement holds the facts the provider reports when a payment is captured.
type Settlement struct {
	MaskedCardNumber string
	ECI              string
	ExpMonth         int
	ExpYear          int
	IssuerCountry    string
	AcquirerRef      string
	SubscriptionID   *string
	TokenID          *string
	TransactionFee   int
	FeeID            int
	TransactionID    int64
	PaymentType      PaymentType
	WalletName       string
	Digest           string
	CompletedAt      time.Time
}

// NewPendingAttempt records a freshly created checkout session.
func NewPendingAttempt(sessionReference string, now time.Time) Attempt {
	return Attempt{
		ID:               uuid.New(),
		SessionReference: sessionReference,
		Status:           StatusPending,
		CreatedAt:        now.UTC(),
	}
}

// Capture returns the captured record that completes this pending attempt.
// The receiver itself is left untouched.
func (a *Attempt) Capture(s Settlement, now time.Time) (Attempt, error) {
	if a.Status != StatusPending {
		return Attempt{}, ErrAlreadyCaptured
	}
	return Attempt{
		ID:               uuid.New(),
		SessionReference: a.SessionReference,
		Status:           StatusCaptured,
		CreatedAt:        now.UTC(),
		Settlement:       &s,
	}, nil
}
