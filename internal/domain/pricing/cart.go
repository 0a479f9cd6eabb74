package pricing

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CartItem is a single priced registration in a cart.
type CartItem struct {
	ID                string
	ProgramID         string
	ProgramName       string
	ProgramTemplateID string
	// SeasonID is the program's season. Items without one never take part in
	// group discounts.
	SeasonID      string
	Price         decimal.Decimal
	Quantity      int
	PaymentPlanID string
	AthleteID     string
	AthleteName   string
}

// Subtotal returns Price * Quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal sums the subtotals of items.
func Subtotal(items []CartItem) decimal.Decimal {
	return lo.Reduce(items, func(sum decimal.Decimal, it CartItem, _ int) decimal.Decimal {
		return sum.Add(it.Subtotal())
	}, decimal.Zero)
}

// SeasonOrder returns the distinct non-empty season ids of items in order of
// first appearance.
func SeasonOrder(items []CartItem) []string {
	ids := lo.FilterMap(items, func(it CartItem, _ int) (string, bool) {
		return it.SeasonID, it.SeasonID != ""
	})
	return lo.Uniq(ids)
}

// GroupBySeason partitions items by season, keeping cart order within each
// group. Items without a season are dropped.
func GroupBySeason(items []CartItem) map[string][]CartItem {
	groups := make(map[string][]CartItem)
	for _, it := range items {
		if it.SeasonID == "" {
			continue
		}
		groups[it.SeasonID] = append(groups[it.SeasonID], it)
	}
	return groups
}

func floorAtZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
