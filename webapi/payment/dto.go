package payment

import (
	"time"

	"github.com/amirasaad/deposit/pkg/currency"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/shopspring/decimal"
)

// CreateRequest is the body of POST /api/v1/payments.
type CreateRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,len=3,alpha"`
	AccountingGroup string          `json:"accounting_group" validate:"required,max=32"`
	PolicyReference string          `json:"policy_reference" validate:"omitempty,max=64"`
}

// AttemptDTO is one provider attempt as shown to the payment's creator.
type AttemptDTO struct {
	SessionReference string     `json:"session_reference"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	TransactionID    *int64     `json:"transaction_id,omitempty"`
	PaymentType      string     `json:"payment_type,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// PaymentDTO is a payment as shown to its creator.
type PaymentDTO struct {
	ID              int64        `json:"id"`
	Amount          string       `json:"amount"`
	AmountMinor     int64        `json:"amount_minor"`
	Currency        string       `json:"currency"`
	AccountingGroup string       `json:"accounting_group"`
	PolicyReference string       `json:"policy_reference,omitempty"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	Attempts        []AttemptDTO `json:"attempts"`
}

// CallbackAck acknowledges a processed callback without internal identifiers.
type CallbackAck struct {
	Replayed bool `json:"replayed"`
}

func paymentStatus(p *payment.Payment) string {
	for _, a := range p.Attempts {
		if a.Status == payment.StatusCaptured {
			return string(payment.StatusCaptured)
		}
	}
	if _, ok := p.PendingAttempt(); ok {
		return string(payment.StatusPending)
	}
	return "created"
}

func toPaymentDTO(p *payment.Payment) PaymentDTO {
	amount := decimal.NewFromInt(p.Amount).String()
	if meta, err := currency.ByAlpha(p.Currency); err == nil {
		amount = meta.FromMinorUnits(p.Amount).StringFixed(int32(meta.Decimals))
	}
	dto := PaymentDTO{
		ID:              p.ID,
		Amount:          amount,
		AmountMinor:     p.Amount,
		Currency:        p.Currency,
		AccountingGroup: p.AccountingGroup,
		PolicyReference: p.PolicyReference,
		Status:          paymentStatus(p),
		CreatedAt:       p.CreatedAt,
		Attempts:        make([]AttemptDTO, 0, len(p.Attempts)),
	}
	for _, a := range p.Attempts {
		ad := AttemptDTO{
			SessionReference: a.SessionReference,
			Status:           string(a.Status),
			CreatedAt:        a.CreatedAt,
		}
		if s := a.Settlement; s != nil {
			txn, completed := s.TransactionID, s.CompletedAt
			ad.TransactionID = &txn
			ad.CompletedAt = &completed
			ad.PaymentType = s.PaymentType.String()
		}
		dto.Attempts = append(dto.Attempts, ad)
	}
	return dto
}
