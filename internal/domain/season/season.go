package season

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

// Sentinel errors for season lookups.
var (
	ErrNotFound        = errors.New("season not found")
	ErrOverlayNotFound = errors.New("season overlay not found")
)

// Season is a registration period with its own discount configuration.
type Season struct {
	ID   string
	Name string

	// GroupDiscounts maps a 1-based registrant position to the amount taken
	// off that registration.
	GroupDiscounts map[int]decimal.Decimal

	// DiscountCodes are codes configured directly on the season record.
	DiscountCodes []LegacyCode
}

// LegacyCode is a code stored on the season record rather than in the
// global catalog.
type LegacyCode struct {
	Code   string
	Type   discount.AmountType
	Amount decimal.Decimal
	Active bool
}

// Definition converts the code into a standard cart-level definition tagged
// with the season.
func (c LegacyCode) Definition(seasonID string) discount.Definition {
	def := discount.Normalize(discount.Definition{
		Code:       c.Code,
		AmountType: c.Type,
		Amount:     c.Amount,
		AppliesTo:  discount.ScopeCart,
		Active:     c.Active,
	})
	def.ID = seasonID + ":" + def.ID
	def.SeasonID = seasonID
	return def
}

// Overlay references a global discount from a season and optionally
// overrides some of its fields. Nil fields inherit the global value.
type Overlay struct {
	Key            string
	SeasonID       string
	DiscountID     string
	Active         *bool
	StartDate      *time.Time
	ExpirationDate *time.Time
	Amount         *decimal.Decimal
	AmountType     *discount.AmountType
	Position       int64
	CreatedAt      time.Time
}

// InWindow reports whether now falls inside the overlay's optional date window.
func (o Overlay) InWindow(now time.Time) bool {
	if o.StartDate != nil && o.StartDate.After(now) {
		return false
	}
	if o.ExpirationDate != nil && o.ExpirationDate.Before(now) {
		return false
	}
	return true
}

// Reader provides read access to seasons and their overlays.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Season, error)
	// ListOverlays returns overlays of the season in insertion order.
	ListOverlays(ctx context.Context, seasonID string) ([]Overlay, error)
}

// Repository extends Reader with overlay management.
type Repository interface {
	Reader
	GetOverlay(ctx context.Context, seasonID, key string) (*Overlay, error)
	// SetOverlay inserts or replaces the overlay stored under o.Key. Replacing
	// keeps the original position.
	SetOverlay(ctx context.Context, o *Overlay) error
	RemoveOverlay(ctx context.Context, seasonID, key string) error
}
