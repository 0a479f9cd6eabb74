package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Payload is handed to the external payment and registration collaborators.
type Payload struct {
	CheckoutID string
	// Amount is the amount due now, in cents.
	Amount          int64
	Currency        string
	Items           []PayloadItem
	Discounts       PayloadDiscounts
	AppliedCode     string
	PaymentSchedule Schedule
}

// PayloadItem is a registration line of the payload.
type PayloadItem struct {
	ProgramID   string
	ProgramName string
	AthleteID   string
	Price       decimal.Decimal
	Quantity    int
}

// PayloadDiscounts carries the discount totals of the payload.
type PayloadDiscounts struct {
	Group decimal.Decimal
	Code  decimal.Decimal
}

// Cents converts a dollar amount to integer cents, rounding half-up.
func Cents(v decimal.Decimal) int64 {
	return v.Round(2).Shift(2).IntPart()
}

// BuildPayload assembles the payload for a priced cart.
func BuildPayload(checkoutID, currency string, b Breakdown) Payload {
	p := Payload{
		CheckoutID: checkoutID,
		Amount:     Cents(b.Schedule.Initial),
		Currency:   currency,
		Items: lo.Map(b.Items, func(it CartItem, _ int) PayloadItem {
			return PayloadItem{
				ProgramID:   it.ProgramID,
				ProgramName: it.ProgramName,
				AthleteID:   it.AthleteID,
				Price:       it.Price,
				Quantity:    it.Quantity,
			}
		}),
		Discounts: PayloadDiscounts{
			Group: b.GroupTotal,
			Code:  b.CodeTotal,
		},
		PaymentSchedule: b.Schedule,
	}
	if b.CodeApplicable {
		p.AppliedCode = b.AppliedCode
	}
	return p
}
