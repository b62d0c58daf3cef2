package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/config"
	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/amirasaad/deposit/pkg/middleware"
	"github.com/amirasaad/deposit/pkg/service/deposit"
	"github.com/amirasaad/deposit/pkg/testutils"
	"github.com/amirasaad/deposit/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

type fakeReconciler struct {
	got *bambora.Callback
	out *deposit.Outcome
	err error
}

func (f *fakeReconciler) Reconcile(_ context.Context, cb *bambora.Callback) (*deposit.Outcome, error) {
	f.got = cb
	return f.out, f.err
}

type fakeDeposits struct {
	creator uuid.UUID
	req     deposit.CreateRequest
	res     *deposit.CreateResult
	p       *payment.Payment
	err     error
}

func (f *fakeDeposits) Create(_ context.Context, creator uuid.UUID, req deposit.CreateRequest) (*deposit.CreateResult, error) {
	f.creator, f.req = creator, req
	return f.res, f.err
}

func (f *fakeDeposits) Get(_ context.Context, requester uuid.UUID, _ int64) (*payment.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.p == nil || f.p.CreatedBy != requester {
		return nil, domain.NotFound(payment.ErrPaymentNotFound)
	}
	return f.p, nil
}

func newTestApp(r Reconciler, d Deposits) *fiber.App {
	app := fiber.New()
	cfg := &config.App{Auth: &config.Auth{Jwt: &config.Jwt{Secret: jwtSecret}}}
	Routes(app, r, d, cfg, testutils.DiscardLogger())
	return app
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		middleware.UserIDClaim: userID.String(),
		"exp":                  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeProblem(t *testing.T, resp *http.Response) common.ProblemDetails {
	t.Helper()
	var pd common.ProblemDetails
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &pd), string(body))
	return pd
}

const callbackQuery = "txnid=81234567&orderid=555&amount=10000&currency=208&date=20240229&time=0000&paymenttype=1&hash=abc"

func TestBamboraCallback_Success(t *testing.T) {
	t.Parallel()
	r := &fakeReconciler{out: &deposit.Outcome{PaymentID: 555, SessionReference: "S1", Message: "payment captured"}}
	app := newTestApp(r, &fakeDeposits{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, CallbackPath+"?"+callbackQuery, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "payment captured")
	assert.NotContains(t, string(body), "S1", "session reference must not leak")

	require.NotNil(t, r.got)
	assert.Equal(t, int64(555), r.got.OrderID)
	assert.Equal(t, "abc", r.got.Hash)
	assert.Equal(t,
		[]string{"81234567", "555", "10000", "208", "20240229", "0000", "1"},
		r.got.HashParams, "digest values keep the received order")
}

func TestBamboraCallback_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "malformed amount",
			query:      "orderid=555&amount=ten&hash=abc",
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "malformed escape",
			query:      "orderid=%zz",
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "validation",
			query:      callbackQuery,
			err:        domain.NewValidationError("amount must be greater than zero", "hash is required"),
			wantStatus: fiber.StatusBadRequest,
			wantDetail: "amount must be greater than zero|hash is required",
		},
		{
			name:       "unknown payment",
			query:      callbackQuery,
			err:        domain.NotFound(payment.ErrPaymentNotFound),
			wantStatus: fiber.StatusNotFound,
			wantDetail: "payment not found",
		},
		{
			name:       "no pending attempt",
			query:      callbackQuery,
			err:        domain.NotFound(payment.ErrPendingNotFound),
			wantStatus: fiber.StatusNotFound,
			wantDetail: "pending payment not found",
		},
		{
			name:       "amount mismatch",
			query:      callbackQuery,
			err:        domain.Conflict(payment.ErrAmountMismatch),
			wantStatus: fiber.StatusConflict,
			wantDetail: "amount/currency validation failed",
		},
		{
			name:       "integrity",
			query:      callbackQuery,
			err:        domain.Conflict(payment.ErrIntegrity),
			wantStatus: fiber.StatusConflict,
			wantDetail: "integrity check failed",
		},
		{
			name:       "dependency failure",
			query:      callbackQuery,
			err:        errors.New("push completion event: dial tcp 10.0.0.7:6379: connection refused"),
			wantStatus: fiber.StatusInternalServerError,
			wantDetail: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(&fakeReconciler{err: tt.err}, &fakeDeposits{})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, CallbackPath+"?"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

			pd := decodeProblem(t, resp)
			assert.Equal(t, tt.wantStatus, pd.Status)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, pd.Detail)
			}
			assert.NotContains(t, pd.Detail, "10.0.0.7")
		})
	}
}

func TestCreatePayment(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	d := &fakeDeposits{res: &deposit.CreateResult{PaymentID: 555, Reference: "DEP-555", CheckoutURL: "https://checkout.test/S1"}}
	app := newTestApp(&fakeReconciler{}, d)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments",
		strings.NewReader(`{"amount":"100.00","currency":"DKK","accounting_group":"PENSION","policy_reference":"POL-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, userID))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Data deposit.CreateResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "https://checkout.test/S1", body.Data.CheckoutURL)
	assert.Equal(t, userID, d.creator)
	assert.Equal(t, "100", d.req.Amount.String())
	assert.Equal(t, "PENSION", d.req.AccountingGroup)
}

func TestCreatePayment_Failures(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	tests := []struct {
		name       string
		body       string
		auth       bool
		err        error
		wantStatus int
	}{
		{name: "no token", body: `{}`, wantStatus: fiber.StatusBadRequest},
		{name: "invalid json", body: `{`, auth: true, wantStatus: fiber.StatusBadRequest},
		{name: "missing currency", body: `{"amount":"1","accounting_group":"PENSION"}`, auth: true, wantStatus: fiber.StatusBadRequest},
		{name: "service validation", body: `{"amount":"1","currency":"DKK","accounting_group":"PENSION"}`, auth: true,
			err: domain.NewValidationError("amount is below the minimum deposit"), wantStatus: fiber.StatusBadRequest},
		{name: "checkout unavailable", body: `{"amount":"1","currency":"DKK","accounting_group":"PENSION"}`, auth: true,
			err: deposit.ErrCheckoutUnavailable, wantStatus: fiber.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			app := newTestApp(&fakeReconciler{}, &fakeDeposits{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				req.Header.Set("Authorization", bearer(t, userID))
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestGetPayment(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)

	p, err := payment.New(10050, "DKK", "PENSION", "POL-1", owner, now)
	require.NoError(t, err)
	p.ID = 555
	pending := payment.NewPendingAttempt("S1", now)
	p.Append(pending)
	captured, err := pending.Capture(payment.Settlement{TransactionID: 81234567, PaymentType: payment.PaymentTypeDankort, CompletedAt: now}, now)
	require.NoError(t, err)
	p.Append(captured)

	app := newTestApp(&fakeReconciler{}, &fakeDeposits{p: p})

	t.Run("owner", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/555", nil)
		req.Header.Set("Authorization", bearer(t, owner))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			Data PaymentDTO `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "100.50", body.Data.Amount)
		assert.Equal(t, "captured", body.Data.Status)
		require.Len(t, body.Data.Attempts, 2)
		require.NotNil(t, body.Data.Attempts[1].TransactionID)
		assert.Equal(t, int64(81234567), *body.Data.Attempts[1].TransactionID)
		assert.Equal(t, "dankort", body.Data.Attempts[1].PaymentType)
	})

	t.Run("other user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/555", nil)
		req.Header.Set("Authorization", bearer(t, uuid.New()))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/abc", nil)
		req.Header.Set("Authorization", bearer(t, owner))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
