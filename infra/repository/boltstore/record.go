package boltstore

import (
	"time"

	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/google/uuid"
)

// record is the stored document; it keeps the on-disk shape independent of
// the domain types.
type record struct {
	ID              int64           `json:"id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	AccountingGroup string          `json:"accounting_group"`
	PolicyReference string          `json:"policy_reference"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	Provider        string          `json:"provider"`
	CreatedAt       time.Time       `json:"created_at"`
	Attempts        []attemptRecord `json:"attempts"`
}

type attemptRecord struct {
	ID               uuid.UUID         `json:"id"`
	SessionReference string            `json:"session_reference"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	Settlement       *settlementRecord `json:"settlement,omitempty"`
}

type settlementRecord struct {
	MaskedCardNumber string    `json:"masked_card_number"`
	ECI              string    `json:"eci"`
	ExpMonth         int       `json:"exp_month"`
	ExpYear          int       `json:"exp_year"`
	IssuerCountry    string    `json:"issuer_country"`
	AcquirerRef      string    `json:"acquirer_ref"`
	SubscriptionID   *string   `json:"subscription_id,omitempty"`
	TokenID          *string   `json:"token_id,omitempty"`
	TransactionFee   int       `json:"transaction_fee"`
	FeeID            int       `json:"fee_id"`
	TransactionID    int64     `json:"transaction_id"`
	PaymentType      int       `json:"payment_type"`
	WalletName       string    `json:"wallet_name"`
	Digest           string    `json:"digest"`
	CompletedAt      time.Time `json:"completed_at"`
}

func toRecord(p *payment.Payment) record {
	r := record{
		ID:              p.ID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		AccountingGroup: p.AccountingGroup,
		PolicyReference: p.PolicyReference,
		CreatedBy:       p.CreatedBy,
		Provider:        string(p.Provider),
		CreatedAt:       p.CreatedAt,
		Attempts:        make([]attemptRecord, 0, len(p.Attempts)),
	}
	for _, a := range p.Attempts {
		ar := attemptRecord{
			ID:               a.ID,
			SessionReference: a.SessionReference,
			Status:           string(a.Status),
			CreatedAt:        a.CreatedAt,
		}
		if s := a.Settlement; s != nil {
			ar.Settlement = &settlementRecord{
				MaskedCardNumber: s.MaskedCardNumber,
				ECI:              s.ECI,
				ExpMonth:         s.ExpMonth,
				ExpYear:          s.ExpYear,
				IssuerCountry:    s.IssuerCountry,
				AcquirerRef:      s.AcquirerRef,
				SubscriptionID:   s.SubscriptionID,
				TokenID:          s.TokenID,
				TransactionFee:   s.TransactionFee,
				FeeID:            s.FeeID,
				TransactionID:    s.TransactionID,
				PaymentType:      int(s.PaymentType),
				WalletName:       s.WalletName,
				Digest:           s.Digest,
				CompletedAt:      s.CompletedAt,
			}
		}
		r.Attempts = append(r.Attempts, ar)
	}
	return r
}

func (r *record) toPayment() *payment.Payment {
	p := &payment.Payment{
		ID:              r.ID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		AccountingGroup: r.AccountingGroup,
		PolicyReference: r.PolicyReference,
		CreatedBy:       r.CreatedBy,
		Provider:        payment.Provider(r.Provider),
		CreatedAt:       r.CreatedAt,
	}
	for _, ar := range r.Attempts {
		a := payment.Attempt{
			ID:               ar.ID,
			SessionReference: ar.SessionReference,
			Status:           payment.AttemptStatus(ar.Status),
			CreatedAt:        ar.CreatedAt,
		}
		if s := ar.Settlement; s != nil {
			a.Settlement = &payment.Settlement{
				MaskedCardNumber: s.MaskedCardNumber,
				ECI:              s.ECI,
				ExpMonth:         s.ExpMonth,
				ExpYear:          s.ExpYear,
				IssuerCountry:    s.IssuerCountry,
				AcquirerRef:      s.AcquirerRef,
				SubscriptionID:   s.SubscriptionID,
				TokenID:          s.TokenID,
				TransactionFee:   s.TransactionFee,
				FeeID:            s.FeeID,
				TransactionID:    s.TransactionID,
				PaymentType:      payment.PaymentType(s.PaymentType),
				WalletName:       s.WalletName,
				Digest:           s.Digest,
				CompletedAt:      s.CompletedAt,
			}
		}
		p.Attempts = append(p.Attempts, a)
	}
	return p
}
