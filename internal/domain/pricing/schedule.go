package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/plan"
)

// ScheduleType distinguishes paying in full from paying by plan.
type ScheduleType string

const (
	ScheduleFull ScheduleType = "full"
	SchedulePlan ScheduleType = "plan"
)

// Installment is a single deferred payment.
type Installment struct {
	Number int
	Amount decimal.Decimal
	DueDay int
}

// Schedule describes how a final amount is collected.
type Schedule struct {
	Type         ScheduleType
	PlanID       string
	Initial      decimal.Decimal
	Installments []Installment
}

// Total returns Initial plus every installment.
func (s Schedule) Total() decimal.Decimal {
	total := s.Initial
	for _, in := range s.Installments {
		total = total.Add(in.Amount)
	}
	return total
}

// BuildSchedule splits finalAmount according to p, or collects it in full
// when p is nil.
//
// The upfront amount is capped at finalAmount. Installments carry the
// remaining amount divided evenly and rounded to the cent, except the last,
// which absorbs the rounding residue: 100 over three installments is 33.33,
// 33.33, 33.34 rather than three equal 33.33. The schedule therefore sums to
// finalAmount exactly instead of within a cent, and installments are not
// always equal.
//
// A plan with zero installments collects finalAmount upfront, ignoring the
// plan's initial amount. Charging only the initial amount would leave the
// rest of the total unscheduled.
func BuildSchedule(finalAmount decimal.Decimal, p *plan.PaymentPlan) Schedule {
	finalAmount = floorAtZero(finalAmount).Round(2)
	if p == nil {
		return Schedule{
			Type:         ScheduleFull,
			Initial:      finalAmount,
			Installments: []Installment{},
		}
	}

	s := Schedule{
		Type:         SchedulePlan,
		PlanID:       p.ID,
		Initial:      decimal.Min(p.Initial().Round(2), finalAmount),
		Installments: []Installment{},
	}
	n := p.Installments
	if n <= 0 {
		s.Initial = finalAmount
		return s
	}

	remaining := finalAmount.Sub(s.Initial)
	count := decimal.NewFromInt(int64(n))
	per := remaining.Div(count).Round(2)
	if per.Mul(decimal.NewFromInt(int64(n - 1))).GreaterThan(remaining) {
		per = remaining.Div(count).RoundDown(2)
	}

	due := p.DueDay()
	for i := 1; i <= n; i++ {
		amount := per
		if i == n {
			amount = remaining.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		s.Installments = append(s.Installments, Installment{
			Number: i,
			Amount: amount,
			DueDay: due,
		})
	}
	return s
}
