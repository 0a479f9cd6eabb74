package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

var hundred = decimal.NewFromInt(100)

// ComputeCodeDiscount returns the savings of def against subtotal.
// Fixed amounts are capped at the subtotal; percentages round half-up to the
// cent. The result is never negative.
func ComputeCodeDiscount(def discount.Definition, subtotal decimal.Decimal) decimal.Decimal {
	subtotal = floorAtZero(subtotal)
	amount := floorAtZero(def.Amount)

	switch def.AmountType {
	case discount.AmountPercent:
		v := amount.Div(hundred).Mul(subtotal).Round(2)
		return decimal.Min(v, subtotal)
	default:
		return decimal.Min(amount, subtotal)
	}
}

// EligibleItems returns the items def may discount: those in the code's
// season when it carries one, restricted to the allowed program templates.
func EligibleItems(def discount.Definition, items []CartItem) []CartItem {
	return lo.Filter(items, func(it CartItem, _ int) bool {
		if def.SeasonID != "" && it.SeasonID != def.SeasonID {
			return false
		}
		return def.AllowsTemplate(it.ProgramTemplateID)
	})
}

// CodeSavings computes the savings of an applied code against a cart.
// applicable is false when no item qualifies or the family registration
// threshold is not met.
func CodeSavings(def discount.Definition, items []CartItem) (amount decimal.Decimal, applicable bool) {
	eligible := EligibleItems(def, items)
	if len(eligible) == 0 {
		return decimal.Zero, false
	}
	if def.MinRegistrationsPerFamily > 0 && len(eligible) < def.MinRegistrationsPerFamily {
		return decimal.Zero, false
	}

	switch {
	case def.PerAdditional():
		return positionalSavings(eligible, TierSchedule(def.TierAmounts)), true
	case def.AppliesTo == discount.ScopeLineItem:
		total := decimal.Zero
		for _, it := range eligible {
			total = total.Add(ComputeCodeDiscount(def, it.Subtotal()))
		}
		return total, true
	default:
		return ComputeCodeDiscount(def, Subtotal(eligible)), true
	}
}

func positionalSavings(items []CartItem, sched GroupSchedule) decimal.Decimal {
	total := decimal.Zero
	for _, s := range applySchedule("", items, sched) {
		total = total.Add(s.Amount)
	}
	return total
}
