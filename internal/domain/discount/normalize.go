package discount

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// NormalizeCode returns the canonical form of a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DefaultTierAmounts returns the tiers given to a per-additional definition
// that was stored without any.
func DefaultTierAmounts() []decimal.Decimal {
	ten := decimal.NewFromInt(10)
	return []decimal.Decimal{ten, ten, ten}
}

// Normalize returns a copy of d with the catalog invariants applied.
//
// A definition whose code normalizes to SIBLING always becomes the
// per-additional variant: fixed, line_item, zero primary amount and non-empty
// tiers. Every other definition is standard and carries no tiers.
func Normalize(d Definition) Definition {
	d = d.Clone()
	d.Code = NormalizeCode(d.Code)
	if d.ID == "" {
		d.ID = PreviewID(d.Code)
	}
	if d.AmountType != AmountPercent {
		d.AmountType = AmountFixed
	}
	if d.AppliesTo != ScopeLineItem {
		d.AppliesTo = ScopeCart
	}
	if d.Amount.IsNegative() {
		d.Amount = decimal.Zero
	}
	if d.MinRegistrationsPerFamily < 0 {
		d.MinRegistrationsPerFamily = 0
	}

	if d.Code != SiblingCode {
		d.Kind = KindStandard
		d.TierAmounts = nil
		return d
	}

	d.Kind = KindPerAdditional
	d.AmountType = AmountFixed
	d.AppliesTo = ScopeLineItem
	d.Amount = decimal.Zero
	for i, t := range d.TierAmounts {
		if t.IsNegative() {
			d.TierAmounts[i] = decimal.Zero
		}
	}
	if len(d.TierAmounts) == 0 {
		d.TierAmounts = DefaultTierAmounts()
	}
	return d
}

// PreviewID returns the stable id a definition with the given code receives:
// lowercase letters and digits of any script, with every other run of
// characters collapsed into a single dash. A code without a single letter or
// digit yields an empty id.
func PreviewID(code string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(code)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// IsDuplicateCode reports whether any definition other than excludeID already
// uses code (case-insensitive).
func IsDuplicateCode(existing []Definition, code, excludeID string) bool {
	code = NormalizeCode(code)
	if code == "" {
		return false
	}
	for _, d := range existing {
		if d.ID != excludeID && NormalizeCode(d.Code) == code {
			return true
		}
	}
	return false
}

// IsDuplicateID reports whether id is already taken by another definition.
func IsDuplicateID(existing []Definition, id, excludeID string) bool {
	if id == "" {
		return false
	}
	for _, d := range existing {
		if d.ID != excludeID && d.ID == id {
			return true
		}
	}
	return false
}

// ConflictReason distinguishes the uniqueness rule a write violated.
type ConflictReason string

const (
	ConflictDuplicateCode ConflictReason = "duplicate_code"
	ConflictDuplicateID   ConflictReason = "duplicate_id"
)

// ConflictError is returned when a create or update would break code or id
// uniqueness.
type ConflictError struct {
	Reason ConflictReason
	Code   string
	ID     string
}

func (e *ConflictError) Error() string {
	if e.Reason == ConflictDuplicateID {
		return fmt.Sprintf("discount id %q already exists", e.ID)
	}
	return fmt.Sprintf("discount code %q already exists", e.Code)
}

// CheckConflicts validates candidate against the catalog. Code collisions are
// reported before id collisions.
func CheckConflicts(existing []Definition, candidate Definition, excludeID string) error {
	if IsDuplicateCode(existing, candidate.Code, excludeID) {
		return &ConflictError{Reason: ConflictDuplicateCode, Code: candidate.Code, ID: candidate.ID}
	}
	if IsDuplicateID(existing, candidate.ID, excludeID) {
		return &ConflictError{Reason: ConflictDuplicateID, Code: candidate.Code, ID: candidate.ID}
	}
	return nil
}
