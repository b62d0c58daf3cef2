package bambora

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/deposit/pkg/domain"
	"github.com/amirasaad/deposit/pkg/domain/payment"
	"github.com/go-playground/validator/v10"
)

// callbackRules is the view of a Callback the pre-reconciliation rules run on.
type callbackRules struct {
	Amount      int64               `validate:"gt=0"`
	Hash        string              `validate:"required"`
	Currency    string              `validate:"required"`
	Date        *time.Time          `validate:"required"`
	Time        *time.Time          `validate:"required"`
	PaymentType payment.PaymentType `validate:"payment_type"`
	TxnFee      int                 `validate:"gte=0"`
	TxnID       int64               `validate:"gt=0"`
	OrderID     int64               `validate:"gt=0"`
}

var ruleMessages = map[string]string{
	"Amount":      "amount must be greater than zero",
	"Hash":        "hash is required",
	"Currency":    "currency is required",
	"Date":        "date is required",
	"Time":        "time is required",
	"PaymentType": "payment type is not valid",
	"TxnFee":      "transaction fee must not be negative",
	"TxnID":       "transaction id must be greater than zero",
	"OrderID":     "order id is required",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("payment_type", func(fl validator.FieldLevel) bool {
		return payment.PaymentType(fl.Field().Int()).IsDefined()
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the rules a callback must pass before the store is
// consulted. Every violated rule contributes one message to the returned
// domain.ValidationError.
func (c *Callback) Validate() error {
	err := validate.Struct(callbackRules{
		Amount:      c.Amount,
		Hash:        c.Hash,
		Currency:    c.CurrencyCode(),
		Date:        c.Date,
		Time:        c.Time,
		PaymentType: c.PaymentType,
		TxnFee:      c.TxnFee,
		TxnID:       c.TxnID,
		OrderID:     c.OrderID,
	})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate callback: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := ruleMessages[fe.StructField()]
		if !ok {
			msg = fe.Error()
		}
		msgs = append(msgs, msg)
	}
	return domain.NewValidationError(msgs...)
}
