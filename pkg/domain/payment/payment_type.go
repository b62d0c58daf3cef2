package payment

import "strconv"

// PaymentType is the payment instrument the provider reports on a callback.
// The zero value is an explicit "none" and is never accepted.
type PaymentType int

const (
	PaymentTypeNone               PaymentType = 0
	PaymentTypeDankort            PaymentType = 1
	PaymentTypeEDankort           PaymentType = 2
	PaymentTypeVisa               PaymentType = 3
	PaymentTypeMastercard         PaymentType = 4
	PaymentTypeJCB                PaymentType = 6
	PaymentTypeMaestro            PaymentType = 7
	PaymentTypeDinersClub         PaymentType = 8
	PaymentTypeAmericanExpress    PaymentType = 9
	PaymentTypeForbrugsforeningen PaymentType = 11
	PaymentTypeNordeaEBetaling    PaymentType = 12
	PaymentTypeDanskeNetbetaling  PaymentType = 13
	PaymentTypePayPal             PaymentType = 14
	PaymentTypeViaBill            PaymentType = 23
	PaymentTypeMobilePay          PaymentType = 29
)

var paymentTypeNames = map[PaymentType]string{
	PaymentTypeNone:               "none",
	PaymentTypeDankort:            "dankort",
	PaymentTypeEDankort:           "edankort",
	PaymentTypeVisa:               "visa",
	PaymentTypeMastercard:         "mastercard",
	PaymentTypeJCB:                "jcb",
	PaymentTypeMaestro:            "maestro",
	PaymentTypeDinersClub:         "diners_club",
	PaymentTypeAmericanExpress:    "american_express",
	PaymentTypeForbrugsforeningen: "forbrugsforeningen",
	PaymentTypeNordeaEBetaling:    "nordea_ebetaling",
	PaymentTypeDanskeNetbetaling:  "danske_netbetaling",
	PaymentTypePayPal:             "paypal",
	PaymentTypeViaBill:            "viabill",
	PaymentTypeMobilePay:          "mobilepay",
}

// IsDefined reports whether t is a known instrument other than none.
func (t PaymentType) IsDefined() bool {
	if t == PaymentTypeNone {
		return false
	}
	_, ok := paymentTypeNames[t]
	return ok
}

func (t PaymentType) String() string {
	if name, ok := paymentTypeNames[t]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}
