package discount

import (
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// AmountType enumerates how a discount amount is interpreted.
type AmountType string

const (
	// AmountFixed subtracts a fixed monetary amount capped at the subtotal.
	AmountFixed AmountType = "fixed"
	// AmountPercent subtracts a percentage of the subtotal.
	AmountPercent AmountType = "percent"
)

// Scope enumerates what a discount is applied against.
type Scope string

const (
	// ScopeCart applies the discount once against the eligible subtotal.
	ScopeCart Scope = "cart"
	// ScopeLineItem applies the discount to every eligible line separately.
	ScopeLineItem Scope = "line_item"
)

// Kind tags the pricing policy variant of a definition.
type Kind string

const (
	// KindStandard is a plain fixed or percentage discount.
	KindStandard Kind = "standard"
	// KindPerAdditional discounts every registration beyond the first using
	// TierAmounts (2nd, 3rd, 4th and later).
	KindPerAdditional Kind = "per_additional"
)

// SiblingCode is the catalog code reserved for the per-additional policy.
const SiblingCode = "SIBLING"

// ErrNotFound is returned when a requested discount definition does not exist.
var ErrNotFound = errors.New("discount not found")

// Definition is a global, reusable discount rule.
type Definition struct {
	ID                        string
	Code                      string
	Kind                      Kind
	AmountType                AmountType
	Amount                    decimal.Decimal
	AppliesTo                 Scope
	Active                    bool
	AllowedProgramTemplateIDs []string
	TierAmounts               []decimal.Decimal
	MinRegistrationsPerFamily int
	Description               string

	// SeasonID is set only on definitions resolved for a season.
	SeasonID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PerAdditional reports whether the definition uses the per-additional policy.
func (d Definition) PerAdditional() bool {
	return d.Kind == KindPerAdditional
}

// AllowsTemplate reports whether a program built from the given template is
// eligible. An empty allow-list admits every program.
func (d Definition) AllowsTemplate(templateID string) bool {
	if len(d.AllowedProgramTemplateIDs) == 0 {
		return true
	}
	return slices.Contains(d.AllowedProgramTemplateIDs, templateID)
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	d.AllowedProgramTemplateIDs = slices.Clone(d.AllowedProgramTemplateIDs)
	d.TierAmounts = slices.Clone(d.TierAmounts)
	return d
}

// Reader provides read access to the discount catalog.
type Reader interface {
	List(ctx context.Context) ([]Definition, error)
	GetByID(ctx context.Context, id string) (*Definition, error)
}

// Repository provides read and write access to the discount catalog.
type Repository interface {
	Reader
	Create(ctx context.Context, d *Definition) error
	Update(ctx context.Context, d *Definition) error
	Delete(ctx context.Context, id string) error
}
