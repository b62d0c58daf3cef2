package payment

import (
	"context"

	"github.com/amirasaad/deposit/pkg/domain/payment"
)

// Repository is the durable home of payments and their attempt records.
type Repository interface {
	// Create stores a new payment and assigns its ID.
	Create(ctx context.Context, p *payment.Payment) error

	// Get loads a payment with its attempts in creation order.
	// A missing payment yields domain.ErrNotFound.
	Get(ctx context.Context, id int64) (*payment.Payment, error)

	// AppendAttempt adds an attempt record to a payment. Records are unique
	// on (payment, session reference, status): appending a record that
	// already exists is a no-op reported as created=false, so concurrent
	// duplicates produce at most one record.
	AppendAttempt(ctx context.Context, paymentID int64, a payment.Attempt) (created bool, err error)
}
