// Package payment exposes the deposit endpoints: the provider callback and
// the authenticated creation and read routes.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/config"
	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/amirasaad/deposit/pkg/middleware"
	"github.com/amirasaad/deposit/pkg/service/deposit"
	"github.com/amirasaad/deposit/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// CallbackPath is where the provider delivers completion callbacks.
const CallbackPath = "/api/v1/payments/bambora/callback"

// Reconciler settles decoded callbacks.
type Reconciler interface {
	Reconcile(ctx context.Context, cb *bambora.Callback) (*deposit.Outcome, error)
}

// Deposits starts and reads deposits on behalf of a user.
type Deposits interface {
	Create(ctx context.Context, creator uuid.UUID, req deposit.CreateRequest) (*deposit.CreateResult, error)
	Get(ctx context.Context, requester uuid.UUID, id int64) (*payment.Payment, error)
}

// Routes registers the payment routes.
func Routes(
	app *fiber.App,
	reconciler Reconciler,
	deposits Deposits,
	cfg *config.App,
	logger *slog.Logger,
) {
	if logger == nil {
		logger = slog.Default()
	}
	var jwtCfg *config.Jwt
	if cfg != nil && cfg.Auth != nil {
		jwtCfg = cfg.Auth.Jwt
	}
	app.Get(CallbackPath, BamboraCallback(reconciler, logger))
	app.Post("/api/v1/payments", middleware.JwtProtected(jwtCfg), CreatePayment(deposits))
	app.Get("/api/v1/payments/:id", middleware.JwtProtected(jwtCfg), GetPayment(deposits))
}

// BamboraCallback returns a Fiber handler for provider completion callbacks.
// @Summary Bambora completion callback
// @Description Verifies and records a captured deposit. Parameters are read in received order.
// @Tags payments
// @Produce json
// @Success 200 {object} common.Response "Payment captured"
// @Failure 400 {object} common.ProblemDetails "Malformed or invalid callback"
// @Failure 404 {object} common.ProblemDetails "Payment or pending attempt not found"
// @Failure 409 {object} common.ProblemDetails "Amount or integrity check failed"
// @Failure 500 {object} common.ProblemDetails "Internal server error"
// @Router /api/v1/payments/bambora/callback [get]
func BamboraCallback(reconciler Reconciler, logger *slog.Logger) fiber.Handler {
	log := logger.With("handler", "bambora_callback_http")
	return func(c *fiber.Ctx) error {
		fields, err := bambora.ParseQuery(string(c.Request().URI().QueryString()))
		if err != nil {
			return callbackProblem(c, fmt.Errorf("%w: %v", bambora.ErrMalformedCallback, err))
		}
		cb, err := bambora.Decode(fields)
		if err != nil {
			log.Warn("⚠️ Rejected malformed callback", "error", err)
			return callbackProblem(c, err)
		}
		out, err := reconciler.Reconcile(c.UserContext(), cb)
		if err != nil {
			if common.ErrorToStatusCode(err) >= fiber.StatusInternalServerError {
				log.Error("❌ Callback reconciliation failed", "payment_id", cb.OrderID, "error", err)
			}
			return callbackProblem(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, out.Message, CallbackAck{Replayed: out.Replayed})
	}
}

func callbackProblem(c *fiber.Ctx, err error) error {
	return common.ProblemDetailsJSON(c, utils.StatusMessage(common.ErrorToStatusCode(err)), err)
}

// CreatePayment returns a Fiber handler that starts a deposit.
// @Summary Start a deposit
// @Description Creates a payment and opens a hosted checkout session for it.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Deposit request"
// @Success 201 {object} common.Response "Checkout session opened"
// @Failure 400 {object} common.ProblemDetails "Invalid request"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 502 {object} common.ProblemDetails "Checkout unavailable"
// @Router /api/v1/payments [post]
// @Security Bearer
func CreatePayment(deposits Deposits) fiber.Handler {
	return func(c *fiber.Ctx) error {
		creator, err := middleware.CurrentUserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		input, err := common.BindAndValidate[CreateRequest](c)
		if input == nil {
			return err
		}
		res, err := deposits.Create(c.UserContext(), creator, deposit.CreateRequest{
			Amount:          input.Amount,
			Currency:        input.Currency,
			AccountingGroup: input.AccountingGroup,
			PolicyReference: input.PolicyReference,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to start deposit", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Checkout session opened", res)
	}
}

// GetPayment returns a Fiber handler that reads one of the caller's payments.
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} common.Response "Payment fetched"
// @Failure 400 {object} common.ProblemDetails "Invalid payment ID"
// @Failure 401 {object} common.ProblemDetails "Unauthorized"
// @Failure 404 {object} common.ProblemDetails "Payment not found"
// @Router /api/v1/payments/{id} [get]
// @Security Bearer
func GetPayment(deposits Deposits) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requester, err := middleware.CurrentUserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
		}
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return common.ProblemDetailsJSON(c, "Invalid payment ID", domain.NewValidationError("payment id must be a positive integer"))
		}
		p, err := deposits.Get(c.UserContext(), requester, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to get payment", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Payment fetched", toPaymentDTO(p))
	}
}
