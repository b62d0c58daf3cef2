package bambora

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/deposit/pkg/currency"
	"github.com/amirasaad/deposit/pkg/domain/payment"
)

// ErrMalformedCallback is returned when a callback parameter cannot be decoded.
var ErrMalformedCallback = errors.New("malformed callback")

const (
	dateLayout = "20060102"
	timeLayout = "1504"
)

// Decode turns the received parameters into a Callback. Any malformed value
// fails the whole decode; there is no partial result.
func Decode(fields Fields) (*Callback, error) {
	d := decoder{fields: fields}

	cb := &Callback{
		OrderID:        d.int64(ParamOrderID),
		Amount:         d.int64(ParamAmount),
		ExpMonth:       d.int(ParamExpMonth),
		ExpYear:        d.int(ParamExpYear),
		TxnFee:         d.int(ParamTxnFee),
		FeeID:          d.int(ParamFeeID),
		TxnID:          d.int64(ParamTxnID),
		PaymentType:    payment.PaymentType(d.int(ParamPaymentType)),
		Currency:       d.currency(ParamCurrency),
		Date:           d.fixed(ParamDate, dateLayout),
		Time:           d.fixed(ParamTime, timeLayout),
		CardNo:         d.stringOr(ParamCardNo, DefaultCardNo),
		ECI:            d.stringOr(ParamECI, ""),
		IssuerCountry:  d.stringOr(ParamIssuerCountry, DefaultIssuerCountry),
		Reference:      d.stringOr(ParamReference, ""),
		SubscriptionID: d.optional(ParamSubscriptionID),
		TokenID:        d.optional(ParamTokenID),
		WalletName:     d.stringOr(ParamWalletName, ""),
		Hash:           d.stringOr(ParamHash, ""),
		HashParams:     fields.HashParams(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return cb, nil
}

// decoder records the first failure and turns later reads into no-ops.
type decoder struct {
	fields Fields
	err    error
}

func (d *decoder) raw(key string) string {
	return strings.TrimSpace(d.fields.Get(key))
}

func (d *decoder) fail(key, value string, cause error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s=%q: %v", ErrMalformedCallback, key, value, cause)
	}
}

func (d *decoder) int64(key string) int64 {
	v := d.raw(key)
	if v == "" || d.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		d.fail(key, v, err)
		return 0
	}
	return n
}

func (d *decoder) int(key string) int {
	v := d.raw(key)
	if v == "" || d.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		d.fail(key, v, err)
		return 0
	}
	return n
}

func (d *decoder) currency(key string) *currency.Meta {
	v := d.raw(key)
	if v == "" || d.err != nil {
		return nil
	}
	m, err := currency.Parse(v)
	if err != nil {
		d.fail(key, v, err)
		return nil
	}
	return &m
}

// fixed parses a packed all-digit value whose width is the layout's width.
func (d *decoder) fixed(key, layout string) *time.Time {
	v := d.raw(key)
	if v == "" || d.err != nil {
		return nil
	}
	if len(v) != len(layout) || !allDigits(v) {
		d.fail(key, v, fmt.Errorf("want %d digits", len(layout)))
		return nil
	}
	t, err := time.ParseInLocation(layout, v, time.UTC)
	if err != nil {
		d.fail(key, v, err)
		return nil
	}
	return &t
}

func (d *decoder) stringOr(key, fallback string) string {
	if v := d.raw(key); v != "" {
		return d.fields.Get(key)
	}
	return fallback
}

func (d *decoder) optional(key string) *string {
	if d.raw(key) == "" {
		return nil
	}
	v := d.fields.Get(key)
	return &v
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
