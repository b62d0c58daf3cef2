package bambora

import (
	"encoding/json"
	"time"

	"github.com/amirasaad/deposit/pkg/currency"
	"github.com/amirasaad/deposit/pkg/domain/payment"
)

// Callback query parameter names.
const (
	ParamAmount         = "amount"
	ParamCardNo         = "cardno"
	ParamCurrency       = "currency"
	ParamDate           = "date"
	ParamECI            = "eci"
	ParamExpMonth       = "expmonth"
	ParamExpYear        = "expyear"
	ParamIssuerCountry  = "issuercountry"
	ParamHash           = "hash"
	ParamOrderID        = "orderid"
	ParamPaymentType    = "paymenttype"
	ParamReference      = "reference"
	ParamSubscriptionID = "subscriptionid"
	ParamTime           = "time"
	ParamTokenID        = "tokenid"
	ParamTxnFee         = "txnfee"
	ParamFeeID          = "feeid"
	ParamTxnID          = "txnid"
	ParamWalletName     = "walletname"
)

// Defaults substituted when the provider omits a value.
const (
	DefaultCardNo        = "NA"
	DefaultIssuerCountry = "DNK"
)

// Callback is a decoded provider notification. It is built per request and
// either turned into a captured attempt or discarded.
type Callback struct {
	OrderID        int64               `json:"orderid"`
	Amount         int64               `json:"amount"`
	Currency       *currency.Meta      `json:"currency,omitempty"`
	Date           *time.Time          `json:"date,omitempty"`
	Time           *time.Time          `json:"time,omitempty"`
	CardNo         string              `json:"cardno"`
	ECI            string              `json:"eci,omitempty"`
	ExpMonth       int                 `json:"expmonth"`
	ExpYear        int                 `json:"expyear"`
	IssuerCountry  string              `json:"issuercountry"`
	Reference      string              `json:"reference,omitempty"`
	SubscriptionID *string             `json:"subscriptionid,omitempty"`
	TokenID        *string             `json:"tokenid,omitempty"`
	TxnFee         int                 `json:"txnfee"`
	FeeID          int                 `json:"feeid"`
	TxnID          int64               `json:"txnid"`
	WalletName     string              `json:"walletname,omitempty"`
	PaymentType    payment.PaymentType `json:"paymenttype"`
	Hash           string              `json:"hash"`
	HashParams     []string            `json:"-"`
}

// CurrencyCode returns the alpha code, or "" when the callback carried none.
func (c *Callback) CurrencyCode() string {
	if c.Currency == nil {
		return ""
	}
	return c.Currency.Alpha
}

// CompletedAt combines the callback date and time. Both are provider local
// wall-clock values and are kept as UTC without conversion.
func (c *Callback) CompletedAt() time.Time {
	if c.Date == nil {
		return time.Time{}
	}
	d := *c.Date
	var h, m int
	if c.Time != nil {
		h, m = c.Time.Hour(), c.Time.Minute()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC)
}

// Settlement maps the callback onto the facts stored with a captured attempt.
func (c *Callback) Settlement() payment.Settlement {
	return payment.Settlement{
		MaskedCardNumber: c.CardNo,
		ECI:              c.ECI,
		ExpMonth:         c.ExpMonth,
		ExpYear:          c.ExpYear,
		IssuerCountry:    c.IssuerCountry,
		AcquirerRef:      c.Reference,
		SubscriptionID:   c.SubscriptionID,
		TokenID:          c.TokenID,
		TransactionFee:   c.TxnFee,
		FeeID:            c.FeeID,
		TransactionID:    c.TxnID,
		PaymentType:      c.PaymentType,
		WalletName:       c.WalletName,
		Digest:           c.Hash,
		CompletedAt:      c.CompletedAt(),
	}
}

// JSON is the serialized form handed to the workflow queue. It returns ""
// when the callback cannot be serialized.
func (c *Callback) JSON() string {
	if c == nil {
		return ""
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}
