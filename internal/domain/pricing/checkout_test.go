package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
)

func TestCompute_SingleItemNoSeason(t *testing.T) {
	b := Compute(ComputeInput{
		Items: []CartItem{{ID: "a", Price: d("100"), Quantity: 1}},
	})

	assertDecimal(t, "100.00", b.Subtotal)
	assertDecimal(t, "0", b.GroupTotal)
	assertDecimal(t, "0", b.CodeTotal)
	assertDecimal(t, "100.00", b.FinalAmount)
	assert.Equal(t, ScheduleFull, b.Schedule.Type)
	assertDecimal(t, "100.00", b.Schedule.Initial)
	assert.Empty(t, b.Schedule.Installments)
}

func TestCompute_GroupAndCode(t *testing.T) {
	code := discount.Normalize(discount.Definition{Code: "SAVE10", AmountType: discount.AmountPercent, Amount: d("10"), Active: true})
	code.SeasonID = "s1"

	b := Compute(ComputeInput{
		Items: []CartItem{
			{ID: "a", SeasonID: "s1", Price: d("100"), Quantity: 1},
			{ID: "b", SeasonID: "s1", Price: d("150"), Quantity: 1},
		},
		GroupSchedules: map[string]GroupSchedule{
			"s1": {Amounts: map[int]decimal.Decimal{2: d("15")}},
		},
		Code: &code,
		Plan: &plan.PaymentPlan{ID: "p", InitialAmount: dp("35"), Installments: 2, PaymentDay: 15},
	})

	assertDecimal(t, "250", b.Subtotal)
	assertDecimal(t, "15", b.GroupTotal)
	assertDecimal(t, "25", b.CodeTotal)
	assertDecimal(t, "210", b.FinalAmount)
	assert.Equal(t, "SAVE10", b.AppliedCode)
	assert.Equal(t, "s1", b.CodeSeasonID)
	assert.True(t, b.CodeApplicable)

	assert.Equal(t, SchedulePlan, b.Schedule.Type)
	assertDecimal(t, "35", b.Schedule.Initial)
	require.Len(t, b.Schedule.Installments, 2)
	assertDecimal(t, "87.50", b.Schedule.Installments[0].Amount)
	assertDecimal(t, "87.50", b.Schedule.Installments[1].Amount)
}

func TestCompute_CodeForOtherSeason(t *testing.T) {
	code := discount.Normalize(discount.Definition{Code: "S1ONLY", Amount: d("20"), Active: true})
	code.SeasonID = "S1"

	b := Compute(ComputeInput{
		Items: []CartItem{{ID: "a", SeasonID: "S2", Price: d("100"), Quantity: 1}},
		Code:  &code,
	})

	assertDecimal(t, "0", b.CodeTotal)
	assert.False(t, b.CodeApplicable)
	assertDecimal(t, "100", b.FinalAmount)
}

func TestCompute_FinalNeverNegative(t *testing.T) {
	prices := []string{"0", "0.01", "5", "19.99", "100"}
	groupAmounts := []string{"0", "3", "50", "500"}
	codeAmounts := []string{"0", "1", "25", "1000"}

	for _, price := range prices {
		for _, ga := range groupAmounts {
			for _, ca := range codeAmounts {
				code := discount.Normalize(discount.Definition{Code: "X", Amount: d(ca), Active: true})
				b := Compute(ComputeInput{
					Items: []CartItem{
						{ID: "a", SeasonID: "s1", Price: d(price), Quantity: 1},
						{ID: "b", SeasonID: "s1", Price: d(price), Quantity: 2},
					},
					GroupSchedules: map[string]GroupSchedule{
						"s1": {Amounts: map[int]decimal.Decimal{1: d(ga), 2: d(ga)}},
					},
					Code: &code,
				})

				assert.False(t, b.FinalAmount.IsNegative(), "price %s group %s code %s", price, ga, ca)
				want := b.Subtotal.Sub(b.GroupTotal).Sub(b.CodeTotal)
				if want.IsNegative() {
					want = decimal.Zero
				}
				assert.True(t, want.Equal(b.FinalAmount), "price %s group %s code %s", price, ga, ca)
			}
		}
	}
}

func TestCompute_ZeroSubtotalNoPanic(t *testing.T) {
	b := Compute(ComputeInput{
		Items: []CartItem{{ID: "a", Price: decimal.Zero, Quantity: 1}},
		Plan:  &plan.PaymentPlan{Installments: 4},
	})
	assertDecimal(t, "0", b.FinalAmount)
	require.Len(t, b.Schedule.Installments, 4)
}

func TestBuildPayload(t *testing.T) {
	b := Compute(ComputeInput{
		Items: []CartItem{
			{ID: "a", ProgramID: "p1", ProgramName: "U10 Soccer", AthleteID: "ath1", SeasonID: "s1", Price: d("120.50"), Quantity: 1},
			{ID: "b", ProgramID: "p2", ProgramName: "U12 Soccer", AthleteID: "ath2", SeasonID: "s1", Price: d("99.99"), Quantity: 1},
		},
		GroupSchedules: map[string]GroupSchedule{"s1": {Amounts: map[int]decimal.Decimal{2: d("10")}}},
		Plan:           &plan.PaymentPlan{ID: "plan", InitialAmount: dp("60.495"), Installments: 2},
	})

	p := BuildPayload("chk-1", "usd", b)

	assert.Equal(t, "chk-1", p.CheckoutID)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, int64(6050), p.Amount, "amount due now in cents")
	require.Len(t, p.Items, 2)
	assert.Equal(t, "p1", p.Items[0].ProgramID)
	assert.Equal(t, "U10 Soccer", p.Items[0].ProgramName)
	assert.Equal(t, "ath1", p.Items[0].AthleteID)
	assert.Equal(t, 1, p.Items[0].Quantity)
	assertDecimal(t, "10", p.Discounts.Group)
	assertDecimal(t, "0", p.Discounts.Code)
	assert.Empty(t, p.AppliedCode)
	assert.Equal(t, SchedulePlan, p.PaymentSchedule.Type)
}

func TestCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1", 100},
		{"10.5", 1050},
		{"19.999", 2000},
		{"0.005", 1},
		{"350.00", 35000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cents(d(tt.in)), tt.in)
	}
}
