package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
)

// ComputeInput holds everything a checkout computation needs, already loaded.
type ComputeInput struct {
	Items []CartItem
	// GroupSchedules is keyed by season id.
	GroupSchedules map[string]GroupSchedule
	// Code is the resolved applied code, if any.
	Code *discount.Definition
	Plan *plan.PaymentPlan
}

// Breakdown is the result of pricing a cart.
type Breakdown struct {
	Items        []CartItem
	Subtotal     decimal.Decimal
	GroupTotal   decimal.Decimal
	CodeTotal    decimal.Decimal
	FinalAmount  decimal.Decimal
	GroupSavings []GroupSaving

	AppliedCode  string
	CodeSeasonID string
	// CodeApplicable is false when a code was resolved but nothing in the
	// cart qualifies for it.
	CodeApplicable bool

	Schedule Schedule
}

// Compute prices a cart. It performs no I/O.
func Compute(in ComputeInput) Breakdown {
	b := Breakdown{
		Items:    in.Items,
		Subtotal: Subtotal(in.Items).Round(2),
	}

	group := ComputeGroupDiscounts(in.Items, in.GroupSchedules)
	b.GroupTotal = group.Total.Round(2)
	b.GroupSavings = group.Savings

	b.CodeTotal = decimal.Zero
	if in.Code != nil {
		b.AppliedCode = in.Code.Code
		b.CodeSeasonID = in.Code.SeasonID
		amount, ok := CodeSavings(*in.Code, in.Items)
		b.CodeApplicable = ok
		b.CodeTotal = amount.Round(2)
	}

	b.FinalAmount = floorAtZero(b.Subtotal.Sub(b.GroupTotal).Sub(b.CodeTotal)).Round(2)
	b.Schedule = BuildSchedule(b.FinalAmount, in.Plan)
	return b
}
