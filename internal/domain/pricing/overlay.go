package pricing

import (
	"time"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// MergeOverlay applies the overrides present on o to a copy of global.
// The result is re-normalized so catalog invariants survive the merge.
func MergeOverlay(global discount.Definition, o season.Overlay) discount.Definition {
	merged := global.Clone()
	if o.Active != nil {
		merged.Active = *o.Active
	}
	if o.Amount != nil {
		merged.Amount = *o.Amount
	}
	if o.AmountType != nil {
		merged.AmountType = *o.AmountType
	}
	merged = discount.Normalize(merged)
	merged.SeasonID = o.SeasonID
	return merged
}

// EffectiveDiscounts merges overlays onto catalog entries and keeps the ones
// that are active and inside their date window at now. Overlays referencing
// unknown definitions are skipped. Result order follows overlays.
func EffectiveDiscounts(seasonID string, overlays []season.Overlay, catalog map[string]discount.Definition, now time.Time) []discount.Definition {
	out := make([]discount.Definition, 0, len(overlays))
	for _, o := range overlays {
		global, ok := catalog[o.DiscountID]
		if !ok {
			continue
		}
		o.SeasonID = seasonID
		merged := MergeOverlay(global, o)
		if !merged.Active || !o.InWindow(now) {
			continue
		}
		out = append(out, merged)
	}
	return out
}
