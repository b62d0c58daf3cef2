// Package payment holds the deposit payment aggregate and its append-only
// list of provider attempts.
package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/deposit/pkg/currency"
	"github.com/google/uuid"
)

// Provider identifies the hosted checkout gateway a payment goes through.
type Provider string

// ProviderBambora is the only gateway in use.
const ProviderBambora Provider = "bambora"

var (
	// ErrInvalidAmount is returned when a payment amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrMissingAccountingGroup is returned when a payment has no accounting group.
	ErrMissingAccountingGroup = errors.New("accounting group is required")
	// ErrMissingCreator is returned when a payment has no creator.
	ErrMissingCreator = errors.New("creator is required")
	// ErrPaymentNotFound is returned when no payment exists for an identifier.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPendingNotFound is returned when a payment has no attempt awaiting an outcome.
	ErrPendingNotFound = errors.New("pending payment not found")
	// ErrAmountMismatch is returned when a callback's amount or currency differs from the stored payment.
	ErrAmountMismatch = errors.New("amount/currency validation failed")
	// ErrIntegrity is returned when a callback digest does not verify.
	ErrIntegrity = errors.New("integrity check failed")
)

// Payment is a deposit initiated by a user. Amount and Currency never change
// after creation; they are what a provider callback has to match.
type Payment struct {
	ID              int64
	Amount          int64
	Currency        string
	AccountingGroup string
	PolicyReference string
	CreatedBy       uuid.UUID
	Provider        Provider
	CreatedAt       time.Time
	Attempts        []Attempt
}

// New validates and builds a payment that has not been stored yet (ID is zero).
func New(
	amount int64,
	currencyCode string,
	accountingGroup string,
	policyReference string,
	createdBy uuid.UUID,
	now time.Time,
) (*Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	meta, err := currency.ByAlpha(currencyCode)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(accountingGroup) == "" {
		return nil, ErrMissingAccountingGroup
	}
	if createdBy == uuid.Nil {
		return nil, ErrMissingCreator
	}
	return &Payment{
		Amount:          amount,
		Currency:        meta.Alpha,
		AccountingGroup: accountingGroup,
		PolicyReference: policyReference,
		CreatedBy:       createdBy,
		Provider:        ProviderBambora,
		CreatedAt:       now.UTC(),
	}, nil
}

// Matches reports whether amount and currency agree with the stored payment.
// Currency is compared without regard to case.
func (p *Payment) Matches(amount int64, currencyCode string) bool {
	return p.Amount == amount && strings.EqualFold(p.Currency, currencyCode)
}

// Append adds an attempt record. Records are never reordered or removed.
func (p *Payment) Append(a Attempt) {
	p.Attempts = append(p.Attempts, a)
}

// PendingAttempt returns the newest pending attempt whose session has not
// been captured yet.
func (p *Payment) PendingAttempt() (*Attempt, bool) {
	for i := len(p.Attempts) - 1; i >= 0; i-- {
		a := &p.Attempts[i]
		if a.Status != StatusPending {
			continue
		}
		if _, captured := p.CapturedAttempt(a.SessionReference); captured {
			return nil, false
		}
		return a, true
	}
	return nil, false
}

// CapturedAttempt returns the captured record for a session, if any.
func (p *Payment) CapturedAttempt(sessionReference string) (*Attempt, bool) {
	for i := range p.Attempts {
		a := &p.Attempts[i]
		if a.Status == StatusCaptured && a.SessionReference == sessionReference {
			return a, true
		}
	}
	return nil, false
}

// CapturedByTransaction returns the captured record carrying the given
// provider transaction id.
func (p *Payment) CapturedByTransaction(txnID int64) (*Attempt, bool) {
	for i := range p.Attempts {
		a := &p.Attempts[i]
		if a.Status == StatusCaptured && a.Settlement != nil && a.Settlement.TransactionID == txnID {
			return a, true
		}
	}
	return nil, false
}

// Reference is the human readable order reference shown to the payer.
func (p *Payment) Reference(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, p.ID)
}
