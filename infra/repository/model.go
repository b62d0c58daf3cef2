package repository

import (
	"time"

	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/google/uuid"
)

// Payment represents a payment record in the database.
type Payment struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	Amount          int64     `gorm:"not null"`
	Currency        string    `gorm:"type:varchar(3);not null"`
	AccountingGroup string    `gorm:"type:varchar(64);not null"`
	PolicyReference string    `gorm:"type:varchar(128);not null"`
	CreatedBy       uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider        string    `gorm:"type:varchar(32);not null"`
	CreatedAt       time.Time
	Attempts        []PaymentAttempt `gorm:"foreignKey:PaymentID"`
}

// TableName specifies the table name for the Payment model.
func (Payment) TableName() string {
	return "payments"
}

// PaymentAttempt is one append-only attempt row. Seq orders the rows of a
// payment; the composite unique index is the idempotency key of appends.
type PaymentAttempt struct {
	Seq              int64     `gorm:"primaryKey;autoIncrement"`
	AttemptID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	PaymentID        int64     `gorm:"not null;uniqueIndex:uq_payment_attempts_session_status,priority:1"`
	SessionReference string    `gorm:"type:text;not null;uniqueIndex:uq_payment_attempts_session_status,priority:2"`
	Status           string    `gorm:"type:varchar(16);not null;uniqueIndex:uq_payment_attempts_session_status,priority:3"`
	CreatedAt        time.Time

	// Settlement facts, set on captured rows only.
	MaskedCardNumber *string    `gorm:"type:text"`
	ECI              *string    `gorm:"column:eci;type:text"`
	ExpMonth         *int       `gorm:"column:exp_month"`
	ExpYear          *int       `gorm:"column:exp_year"`
	IssuerCountry    *string    `gorm:"type:text"`
	AcquirerRef      *string    `gorm:"type:text"`
	SubscriptionID   *string    `gorm:"column:subscription_id;type:text"`
	TokenID          *string    `gorm:"column:token_id;type:text"`
	TransactionFee   *int       `gorm:"column:transaction_fee"`
	FeeID            *int       `gorm:"column:fee_id"`
	TransactionID    *int64     `gorm:"column:transaction_id;index"`
	PaymentType      *int       `gorm:"column:payment_type"`
	WalletName       *string    `gorm:"type:text"`
	Digest           *string    `gorm:"type:text"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
}

// TableName specifies the table name for the PaymentAttempt model.
func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}

func mapPaymentToModel(p *payment.Payment) Payment {
	m := Payment{
		ID:              p.ID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		AccountingGroup: p.AccountingGroup,
		PolicyReference: p.PolicyReference,
		CreatedBy:       p.CreatedBy,
		Provider:        string(p.Provider),
		CreatedAt:       p.CreatedAt,
	}
	for _, a := range p.Attempts {
		m.Attempts = append(m.Attempts, mapAttemptToModel(p.ID, a))
	}
	return m
}

func mapModelToPayment(m *Payment) *payment.Payment {
	p := &payment.Payment{
		ID:              m.ID,
		Amount:          m.Amount,
		Currency:        m.Currency,
		AccountingGroup: m.AccountingGroup,
		PolicyReference: m.PolicyReference,
		CreatedBy:       m.CreatedBy,
		Provider:        payment.Provider(m.Provider),
		CreatedAt:       m.CreatedAt.UTC(),
	}
	for i := range m.Attempts {
		p.Attempts = append(p.Attempts, mapModelToAttempt(&m.Attempts[i]))
	}
	return p
}

func mapAttemptToModel(paymentID int64, a payment.Attempt) PaymentAttempt {
	m := PaymentAttempt{
		AttemptID:        a.ID,
		PaymentID:        paymentID,
		SessionReference: a.SessionReference,
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt,
	}
	if s := a.Settlement; s != nil {
		pt := int(s.PaymentType)
		completed := s.CompletedAt
		m.MaskedCardNumber = &s.MaskedCardNumber
		m.ECI = &s.ECI
		m.ExpMonth = &s.ExpMonth
		m.ExpYear = &s.ExpYear
		m.IssuerCountry = &s.IssuerCountry
		m.AcquirerRef = &s.AcquirerRef
		m.SubscriptionID = s.SubscriptionID
		m.TokenID = s.TokenID
		m.TransactionFee = &s.TransactionFee
		m.FeeID = &s.FeeID
		m.TransactionID = &s.TransactionID
		m.PaymentType = &pt
		m.WalletName = &s.WalletName
		m.Digest = &s.Digest
		m.CompletedAt = &completed
	}
	return m
}

func mapModelToAttempt(m *PaymentAttempt) payment.Attempt {
	a := payment.Attempt{
		ID:               m.AttemptID,
		SessionReference: m.SessionReference,
		Status:           payment.AttemptStatus(m.Status),
		CreatedAt:        m.CreatedAt.UTC(),
	}
	if a.Status != payment.StatusCaptured {
		return a
	}
	s := payment.Settlement{
		MaskedCardNumber: deref(m.MaskedCardNumber),
		ECI:              deref(m.ECI),
		ExpMonth:         deref(m.ExpMonth),
		ExpYear:          deref(m.ExpYear),
		IssuerCountry:    deref(m.IssuerCountry),
		AcquirerRef:      deref(m.AcquirerRef),
		SubscriptionID:   m.SubscriptionID,
		TokenID:          m.TokenID,
		TransactionFee:   deref(m.TransactionFee),
		FeeID:            deref(m.FeeID),
		TransactionID:    deref(m.TransactionID),
		PaymentType:      payment.PaymentType(deref(m.PaymentType)),
		WalletName:       deref(m.WalletName),
		Digest:           deref(m.Digest),
	}
	if m.CompletedAt != nil {
		s.CompletedAt = m.CompletedAt.UTC()
	}
	a.Settlement = &s
	return a
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
