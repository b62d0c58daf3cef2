// Package deposit provides the deposit use cases: starting a hosted checkout
// for a new payment and reconciling the provider's completion callbacks.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/currency"
	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrCheckoutUnavailable is returned when the provider did not open a session.
var ErrCheckoutUnavailable = errors.New("checkout is unavailable")

// SessionInitiator opens hosted checkout sessions. bambora.Client implements it.
type SessionInitiator interface {
	CreateSession(ctx context.Context, req bambora.SessionRequest) (*bambora.SessionResponse, error)
}

// Limits decides whether a creator may deposit an amount.
type Limits interface {
	Check(ctx context.Context, creator uuid.UUID, amount int64, currencyCode string) error
}

// StaticLimits bounds every deposit by the same minor-unit range.
type StaticLimits struct {
	Min int64
	Max int64
}

// Check implements Limits.
func (l StaticLimits) Check(_ context.Context, _ uuid.UUID, amount int64, currencyCode string) error {
	if l.Min > 0 && amount < l.Min {
		return domain.NewValidationError(fmt.Sprintf("amount is below the minimum deposit of %d %s minor units", l.Min, currencyCode))
	}
	if l.Max > 0 && amount > l.Max {
		return domain.NewValidationError(fmt.Sprintf("amount exceeds the maximum deposit of %d %s minor units", l.Max, currencyCode))
	}
	return nil
}

// SessionOptions are the fixed parts of every checkout session.
type SessionOptions struct {
	AcceptURL  string
	CancelURL  string
	Language   string
	SourceType string
}

// CreateRequest asks for a new deposit in major units.
type CreateRequest struct {
	Amount          decimal.Decimal
	Currency        string
	AccountingGroup string
	PolicyReference string
}

// CreateResult is returned once the checkout session is open.
type CreateResult struct {
	PaymentID   int64  `json:"payment_id"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// Service starts deposits and reads them back.
type Service struct {
	repo      repo.Repository
	initiator SessionInitiator
	keys      KeyResolver
	limits    Limits
	opts      SessionOptions
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a deposit Service.
func New(
	r repo.Repository,
	initiator SessionInitiator,
	keys KeyResolver,
	limits Limits,
	opts SessionOptions,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if limits == nil {
		limits = StaticLimits{}
	}
	return &Service{
		repo:      r,
		initiator: initiator,
		keys:      keys,
		limits:    limits,
		opts:      opts,
		logger:    logger.With("service", "deposit"),
		now:       time.Now,
	}
}

// Create stores a new payment for creator and opens a checkout session for
// it. When the provider refuses, the payment stays without attempts and
// ErrCheckoutUnavailable is returned.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, req CreateRequest) (*CreateResult, error) {
	meta, err := currency.ByAlpha(req.Currency)
	if err != nil {
		return nil, domain.NewValidationError("currency is not supported")
	}
	amount, err := meta.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	gk, err := s.keys.For(req.AccountingGroup)
	if err != nil {
		return nil, domain.NewValidationError("accounting group is not configured")
	}
	if err := s.limits.Check(ctx, creator, amount, meta.Alpha); err != nil {
		return nil, err
	}

	p, err := payment.New(amount, meta.Alpha, req.AccountingGroup, req.PolicyReference, creator, s.now())
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	log := s.logger.With("payment_id", p.ID, "creator", creator)

	resp, err := s.initiator.CreateSession(ctx, bambora.SessionRequest{
		AcceptURL:  s.opts.AcceptURL,
		Amount:     amount,
		CancelURL:  s.opts.CancelURL,
		Language:   s.opts.Language,
		Currency:   meta.Alpha,
		PaymentID:  p.ID,
		SourceType: s.opts.SourceType,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("❌ Checkout session request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if resp == nil || !resp.IsSuccess {
		log.Warn("⚠️ Checkout session refused by provider")
		return nil, ErrCheckoutUnavailable
	}

	if _, err := s.repo.AppendAttempt(ctx, p.ID, payment.NewPendingAttempt(resp.URL, s.now())); err != nil {
		return nil, fmt.Errorf("append pending attempt: %w", err)
	}
	log.Info("✅ Checkout session opened", "amount", amount, "currency", meta.Alpha)

	return &CreateResult{
		PaymentID:   p.ID,
		Reference:   p.Reference(gk.ReferencePrefix),
		CheckoutURL: resp.URL,
	}, nil
}

// Get returns a payment to its creator. Payments of other users are
// reported as not found.
func (s *Service) Get(ctx context.Context, requester uuid.UUID, id int64) (*payment.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(payment.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if p.CreatedBy != requester {
		return nil, domain.NotFound(payment.ErrPaymentNotFound)
	}
	return p, nil
}
