package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/season"
)

// GroupSchedule maps 1-based registrant positions within a season to the
// amount taken off the registration at that position.
type GroupSchedule struct {
	Amounts map[int]decimal.Decimal
	// Tail applies to every position after the highest one in Amounts when
	// HasTail is set.
	Tail    decimal.Decimal
	HasTail bool
}

// Amount returns the configured discount for position p.
func (s GroupSchedule) Amount(p int) (decimal.Decimal, bool) {
	if v, ok := s.Amounts[p]; ok {
		return v, true
	}
	if s.HasTail && p > s.maxPosition() {
		return s.Tail, true
	}
	return decimal.Zero, false
}

// Empty reports whether the schedule discounts nothing.
func (s GroupSchedule) Empty() bool {
	return len(s.Amounts) == 0 && !s.HasTail
}

func (s GroupSchedule) maxPosition() int {
	m := 0
	for p := range s.Amounts {
		m = max(m, p)
	}
	return m
}

// SeasonSchedule returns the group schedule configured on a season record.
func SeasonSchedule(s *season.Season) GroupSchedule {
	if s == nil {
		return GroupSchedule{}
	}
	return GroupSchedule{Amounts: s.GroupDiscounts}
}

// TierSchedule turns per-additional tiers into positions 2, 3, ... with the
// last tier repeating for every later registrant.
func TierSchedule(tiers []decimal.Decimal) GroupSchedule {
	if len(tiers) == 0 {
		return GroupSchedule{}
	}
	amounts := make(map[int]decimal.Decimal, len(tiers))
	for i, t := range tiers {
		amounts[i+2] = t
	}
	return GroupSchedule{
		Amounts: amounts,
		Tail:    tiers[len(tiers)-1],
		HasTail: true,
	}
}

// GroupSaving is one positional discount applied to a cart item.
type GroupSaving struct {
	SeasonID string
	Position int
	ItemID   string
	Amount   decimal.Decimal
}

// GroupResult aggregates group savings across seasons.
type GroupResult struct {
	Total   decimal.Decimal
	Savings []GroupSaving
}

// ComputeGroupDiscounts applies each season's schedule to that season's
// items. Items are ordered by ascending unit price, so position p refers to
// the p-th cheapest registration, and a position never takes more than its
// item's own subtotal. Seasons are visited in order of first appearance.
func ComputeGroupDiscounts(items []CartItem, schedules map[string]GroupSchedule) GroupResult {
	res := GroupResult{Total: decimal.Zero, Savings: []GroupSaving{}}
	groups := GroupBySeason(items)
	for _, seasonID := range SeasonOrder(items) {
		sched, ok := schedules[seasonID]
		if !ok || sched.Empty() {
			continue
		}
		for _, s := range applySchedule(seasonID, groups[seasonID], sched) {
			res.Total = res.Total.Add(s.Amount)
			res.Savings = append(res.Savings, s)
		}
	}
	return res
}

func applySchedule(seasonID string, items []CartItem, sched GroupSchedule) []GroupSaving {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b CartItem) int {
		return a.Price.Cmp(b.Price)
	})

	var out []GroupSaving
	for i, it := range sorted {
		p := i + 1
		amount, ok := sched.Amount(p)
		if !ok {
			continue
		}
		v := decimal.Min(floorAtZero(amount), it.Subtotal())
		if v.IsZero() {
			continue
		}
		out = append(out, GroupSaving{
			SeasonID: seasonID,
			Position: p,
			ItemID:   it.ID,
			Amount:   v,
		})
	}
	return out
}
