package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutRecord is a submitted checkout.
type CheckoutRecord struct {
	ID          string
	Items       []CartItem
	Subtotal    decimal.Decimal
	GroupTotal  decimal.Decimal
	CodeTotal   decimal.Decimal
	FinalAmount decimal.Decimal
	AppliedCode string
	Currency    string
	Schedule    Schedule
	CreatedAt   time.Time
}

// CheckoutRepository persists submitted checkouts.
type CheckoutRepository interface {
	Create(ctx context.Context, c *CheckoutRecord) error
}
