package deposit_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/amirasaad/deposit/infra/repository/boltstore"
	"github.com/amirasaad/deposit/infra/workflow"
	"github.com/amirasaad/deposit/internal/fixtures/mocks"
	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/amirasaad/deposit/pkg/service/deposit"
	"github.com/amirasaad/deposit/pkg/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	pensionKey = "s3cr3t"
	txnID      = int64(81234567)
)

var (
	now  = time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	keys = bambora.KeyRing{"PENSION": {MD5Key: pensionKey, ReferencePrefix: "DEP-"}}
)

// callbackFields returns the provider's notification for payment 555, signed
// with key after the overrides are applied.
func callbackFields(key string, overrides ...bambora.Field) bambora.Fields {
	f := bambora.Fields{
		{Key: bambora.ParamTxnID, Value: "81234567"},
		{Key: bambora.ParamOrderID, Value: "555"},
		{Key: bambora.ParamReference, Value: "ACQ-1"},
		{Key: bambora.ParamAmount, Value: "10000"},
		{Key: bambora.ParamCurrency, Value: "208"},
		{Key: bambora.ParamDate, Value: "20240229"},
		{Key: bambora.ParamTime, Value: "0000"},
		{Key: bambora.ParamFeeID, Value: "3"},
		{Key: bambora.ParamTxnFee, Value: "0"},
		{Key: bambora.ParamPaymentType, Value: "1"},
		{Key: bambora.ParamCardNo, Value: "457199XXXXXX1234"},
	}
	for _, o := range overrides {
		for i := range f {
			if f[i].Key == o.Key {
				f[i].Value = o.Value
			}
		}
	}
	return append(f, bambora.Field{Key: bambora.ParamHash, Value: bambora.Digest(key, f.HashParams())})
}

func decode(t *testing.T, f bambora.Fields) *bambora.Callback {
	t.Helper()
	cb, err := bambora.Decode(f)
	require.NoError(t, err)
	return cb
}

func pendingPayment(t *testing.T) *payment.Payment {
	t.Helper()
	p, err := payment.New(10000, "dkk", "PENSION", "POL-1", uuid.New(), now)
	require.NoError(t, err)
	p.ID = 555
	p.Append(payment.NewPendingAttempt("S1", now))
	return p
}

func capturedS1(a payment.Attempt) bool {
	return a.Status == payment.StatusCaptured &&
		a.SessionReference == "S1" &&
		a.Settlement != nil &&
		a.Settlement.TransactionID == txnID &&
		a.Settlement.MaskedCardNumber == "457199XXXXXX1234" &&
		a.Settlement.IssuerCountry == bambora.DefaultIssuerCountry
}

func newReconciler(t *testing.T) (*deposit.Reconciler, *mocks.MockPaymentRepository, *mocks.MockDispatcher) {
	t.Helper()
	repo := mocks.NewMockPaymentRepository(t)
	dispatcher := mocks.NewMockDispatcher(t)
	return deposit.NewReconciler(repo, dispatcher, keys, testutils.DiscardLogger()), repo, dispatcher
}

func TestReconcile_CapturesPendingAttempt(t *testing.T) {
	t.Parallel()
	r, repo, dispatcher := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey))

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()
	repo.On("AppendAttempt", mock.Anything, int64(555), mock.MatchedBy(capturedS1)).Return(true, nil).Once()
	dispatcher.On("Push", mock.Anything, cb.JSON(), int64(555)).Return(nil).Once()

	out, err := r.Reconcile(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, int64(555), out.PaymentID)
	assert.Equal(t, "S1", out.SessionReference)
	assert.False(t, out.Replayed)
	assert.Equal(t, "payment captured", out.Message)
}

func TestReconcile_AmountMismatch(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey, bambora.Field{Key: bambora.ParamAmount, Value: "9999"}))

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()

	_, err := r.Reconcile(context.Background(), cb)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, err, payment.ErrAmountMismatch)
	assert.Equal(t, "amount/currency validation failed", err.Error())
	repo.AssertNotCalled(t, "AppendAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_CurrencyMismatch(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey, bambora.Field{Key: bambora.ParamCurrency, Value: "978"}))

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()

	_, err := r.Reconcile(context.Background(), cb)
	assert.ErrorIs(t, err, payment.ErrAmountMismatch)
}

func TestReconcile_TamperedCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields func() bambora.Fields
	}{
		{
			name: "field changed after signing",
			fields: func() bambora.Fields {
				f := callbackFields(pensionKey)
				for i := range f {
					if f[i].Key == bambora.ParamCardNo {
						f[i].Value = "000000XXXXXX0000"
					}
				}
				return f
			},
		},
		{
			name:   "signed with another key",
			fields: func() bambora.Fields { return callbackFields("not-the-key") },
		},
		{
			name: "extra parameter appended",
			fields: func() bambora.Fields {
				f := callbackFields(pensionKey)
				return append(f[:len(f)-1:len(f)-1], bambora.Field{Key: "foo", Value: "bar"}, f[len(f)-1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, repo, _ := newReconciler(t)
			repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()

			_, err := r.Reconcile(context.Background(), decode(t, tt.fields()))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConflict)
			assert.ErrorIs(t, err, payment.ErrIntegrity)
			assert.Equal(t, "integrity check failed", err.Error())
		})
	}
}

func TestReconcile_UnknownPayment(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)
	repo.On("Get", mock.Anything, int64(555)).Return(nil, domain.ErrNotFound).Once()

	_, err := r.Reconcile(context.Background(), decode(t, callbackFields(pensionKey)))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
}

func TestReconcile_NoPendingAttempt(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)

	p := pendingPayment(t)
	p.Attempts = nil
	repo.On("Get", mock.Anything, int64(555)).Return(p, nil).Once()

	_, err := r.Reconcile(context.Background(), decode(t, callbackFields(pensionKey)))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, payment.ErrPendingNotFound)
	assert.Equal(t, "pending payment not found", err.Error())
}

func TestReconcile_ReplayOfCapturedSession(t *testing.T) {
	t.Parallel()
	r, repo, dispatcher := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey))

	p := pendingPayment(t)
	captured, err := p.Attempts[0].Capture(cb.Settlement(), now)
	require.NoError(t, err)
	p.Append(captured)

	repo.On("Get", mock.Anything, int64(555)).Return(p, nil).Once()
	dispatcher.On("Push", mock.Anything, cb.JSON(), int64(555)).Return(nil).Once()

	out, err := r.Reconcile(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.Equal(t, "S1", out.SessionReference)
	assert.Equal(t, "payment already captured", out.Message)
	repo.AssertNotCalled(t, "AppendAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_CapturedByOtherTransaction(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)

	p := pendingPayment(t)
	captured, err := p.Attempts[0].Capture(payment.Settlement{TransactionID: 1}, now)
	require.NoError(t, err)
	p.Append(captured)
	repo.On("Get", mock.Anything, int64(555)).Return(p, nil).Once()

	_, err = r.Reconcile(context.Background(), decode(t, callbackFields(pensionKey)))
	assert.ErrorIs(t, err, payment.ErrPendingNotFound)
}

func TestReconcile_ConcurrentAppendIsReplay(t *testing.T) {
	t.Parallel()
	r, repo, dispatcher := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey))

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()
	repo.On("AppendAttempt", mock.Anything, int64(555), mock.MatchedBy(capturedS1)).Return(false, nil).Once()
	dispatcher.On("Push", mock.Anything, cb.JSON(), int64(555)).Return(nil).Once()

	out, err := r.Reconcile(context.Background(), cb)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
}

func TestReconcile_DispatchFailurePropagates(t *testing.T) {
	t.Parallel()
	r, repo, dispatcher := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey))
	boom := errors.New("queue unavailable")

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()
	repo.On("AppendAttempt", mock.Anything, int64(555), mock.Anything).Return(true, nil).Once()
	dispatcher.On("Push", mock.Anything, mock.Anything, int64(555)).Return(boom).Once()

	_, err := r.Reconcile(context.Background(), cb)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestReconcile_StoreFailurePropagates(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)
	boom := errors.New("connection reset")

	repo.On("Get", mock.Anything, int64(555)).Return(pendingPayment(t), nil).Once()
	repo.On("AppendAttempt", mock.Anything, int64(555), mock.Anything).Return(false, boom).Once()

	_, err := r.Reconcile(context.Background(), decode(t, callbackFields(pensionKey)))
	assert.ErrorIs(t, err, boom)
}

func TestReconcile_UnknownAccountingGroup(t *testing.T) {
	t.Parallel()
	r, repo, _ := newReconciler(t)

	p := pendingPayment(t)
	p.AccountingGroup = "LIFE"
	repo.On("Get", mock.Anything, int64(555)).Return(p, nil).Once()

	_, err := r.Reconcile(context.Background(), decode(t, callbackFields(pensionKey)))
	require.Error(t, err)
	assert.ErrorIs(t, err, bambora.ErrUnknownAccountingGroup)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestReconcile_InvalidCallbackNeverTouchesStore(t *testing.T) {
	t.Parallel()
	r, _, _ := newReconciler(t)

	cb := decode(t, callbackFields(pensionKey, bambora.Field{Key: bambora.ParamAmount, Value: "0"}))
	_, err := r.Reconcile(context.Background(), cb)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.Reconcile(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReconcile_CanceledContext(t *testing.T) {
	t.Parallel()
	r, _, _ := newReconciler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Reconcile(ctx, decode(t, callbackFields(pensionKey)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_ConcurrentDuplicatesCaptureOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := boltstore.New(filepath.Join(t.TempDir(), "deposit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	p, err := payment.New(10000, "DKK", "PENSION", "POL-1", uuid.New(), now)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, p))
	_, err = store.AppendAttempt(ctx, p.ID, payment.NewPendingAttempt("S1", now))
	require.NoError(t, err)

	dispatcher := workflow.NewWithMemory(testutils.DiscardLogger())
	r := deposit.NewReconciler(store, dispatcher, keys, testutils.DiscardLogger())

	orderID := bambora.Field{Key: bambora.ParamOrderID, Value: "1"}
	cb := decode(t, callbackFields(pensionKey, orderID))
	require.Equal(t, p.ID, cb.OrderID)

	const deliveries = 8
	var wg sync.WaitGroup
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Reconcile(ctx, cb)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	stored, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	var captured int
	for _, a := range stored.Attempts {
		if a.Status == payment.StatusCaptured {
			captured++
		}
	}
	assert.Equal(t, 1, captured)
	assert.NotEmpty(t, dispatcher.Pushed())

	// A later re-delivery is acknowledged as a replay.
	out, err := r.Reconcile(ctx, cb)
	require.NoError(t, err)
	assert.True(t, out.Replayed)
}

func TestReconcile_JoinedCallerSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()
	r, repo, dispatcher := newReconciler(t)
	cb := decode(t, callbackFields(pensionKey))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	repo.On("Get", mock.Anything, int64(555)).Run(func(args mock.Arguments) {
		once.Do(func() { close(entered) })
		select {
		case <-release:
		case <-args.Get(0).(context.Context).Done():
		}
	}).Return(pendingPayment(t), nil)
	repo.On("AppendAttempt", mock.Anything, int64(555), mock.MatchedBy(capturedS1)).Return(true, nil)
	dispatcher.On("Push", mock.Anything, cb.JSON(), int64(555)).Return(nil)

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(first, cb)
		firstErr <- err
	}()
	<-entered

	type result struct {
		out *deposit.Outcome
		err error
	}
	second := make(chan result, 1)
	go func() {
		out, err := r.Reconcile(context.Background(), cb)
		second <- result{out, err}
	}()
	// Let the second delivery join the in-flight run.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, int64(555), res.out.PaymentID)
	assert.Equal(t, "payment captured", res.out.Message)
}
