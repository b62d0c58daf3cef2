package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
	"github.com/amirasaad/deposit/pkg/workflow"
	"golang.org/x/sync/singleflight"
)

// KeyResolver returns the callback key of an accounting group.
// bambora.KeyRing implements it.
type KeyResolver interface {
	For(accountingGroup string) (bambora.GroupKey, error)
}

// Outcome is the result of a successful reconciliation.
type Outcome struct {
	PaymentID        int64  `json:"payment_id"`
	SessionReference string `json:"session_reference"`
	Replayed         bool   `json:"replayed"`
	Message          string `json:"message"`
}

const (
	msgCaptured = "payment captured"
	msgReplayed = "payment already captured"

	sharedRunTimeout = 30 * time.Second
)

// Reconciler settles provider callbacks against stored payments.
type Reconciler struct {
	repo       repo.Repository
	dispatcher workflow.Dispatcher
	keys       KeyResolver
	logger     *slog.Logger
	now        func() time.Time
	inflight   singleflight.Group
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	r repo.Repository,
	dispatcher workflow.Dispatcher,
	keys KeyResolver,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:       r,
		dispatcher: dispatcher,
		keys:       keys,
		logger:     logger.With("handler", "bambora_callback"),
		now:        time.Now,
	}
}

// Reconcile validates a decoded callback, checks it against the stored
// payment, records the capture and pushes the completion event.
//
// Identical deliveries that arrive concurrently in this process share one
// reconciliation. A delivery for an already captured session succeeds with
// Replayed set and pushes the event again.
func (r *Reconciler) Reconcile(ctx context.Context, cb *bambora.Callback) (*Outcome, error) {
	if cb == nil {
		return nil, domain.NewValidationError("callback is required")
	}
	if err := cb.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d:%s", cb.OrderID, strings.ToLower(cb.Hash))
	ch := r.inflight.DoChan(key, func() (any, error) {
		// Joined callers must not inherit the first caller's cancellation.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedRunTimeout)
		defer cancel()
		return r.reconcile(shared, cb)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*Outcome)
		if res.Shared {
			r.logger.Debug("🔁 [SHARED] Concurrent delivery coalesced", "payment_id", cb.OrderID)
		}
		return &out, nil
	}
}

func (r *Reconciler) reconcile(ctx context.Context, cb *bambora.Callback) (*Outcome, error) {
	log := r.logger.With("payment_id", cb.OrderID, "txn_id", cb.TxnID)

	p, err := r.repo.Get(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("⚠️ Callback for unknown payment")
			return nil, domain.NotFound(payment.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}

	if !p.Matches(cb.Amount, cb.CurrencyCode()) {
		log.Warn("⚠️ Callback amount or currency does not match payment",
			"amount", cb.Amount, "currency", cb.CurrencyCode())
		return nil, domain.Conflict(payment.ErrAmountMismatch)
	}

	gk, err := r.keys.For(p.AccountingGroup)
	if err != nil {
		log.Error("❌ No callback key for accounting group", "group", p.AccountingGroup)
		return nil, fmt.Errorf("resolve callback key: %w", err)
	}
	if !bambora.Verify(gk.MD5Key, cb.HashParams, cb.Hash) {
		log.Warn("⚠️ Callback digest mismatch")
		return nil, domain.Conflict(payment.ErrIntegrity)
	}

	pending, ok := p.PendingAttempt()
	if !ok {
		if captured, done := p.CapturedByTransaction(cb.TxnID); done {
			log.Info("🔁 [SKIP] Callback already reconciled", "session", captured.SessionReference)
			return r.complete(ctx, cb, p.ID, captured.SessionReference, true)
		}
		log.Warn("⚠️ No pending attempt for callback")
		return nil, domain.NotFound(payment.ErrPendingNotFound)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	captured, err := pending.Capture(cb.Settlement(), r.now())
	if err != nil {
		return nil, fmt.Errorf("capture attempt: %w", err)
	}
	created, err := r.repo.AppendAttempt(ctx, p.ID, captured)
	if err != nil {
		return nil, fmt.Errorf("append captured attempt: %w", err)
	}
	if !created {
		log.Info("🔁 [SKIP] Capture recorded by a concurrent delivery", "session", captured.SessionReference)
	} else {
		log.Info("✅ Payment captured", "session", captured.SessionReference)
	}
	return r.complete(ctx, cb, p.ID, captured.SessionReference, !created)
}

func (r *Reconciler) complete(
	ctx context.Context,
	cb *bambora.Callback,
	paymentID int64,
	session string,
	replayed bool,
) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.dispatcher.Push(ctx, cb.JSON(), paymentID); err != nil {
		r.logger.Error("❌ Failed to push completion event", "payment_id", paymentID, "error", err)
		return nil, fmt.Errorf("push completion event: %w", err)
	}
	msg := msgCaptured
	if replayed {
		msg = msgReplayed
	}
	return &Outcome{
		PaymentID:        paymentID,
		SessionReference: session,
		Replayed:         replayed,
		Message:          msg,
	}, nil
}
