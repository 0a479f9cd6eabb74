package plan

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested payment plan does not exist.
var ErrNotFound = errors.New("payment plan not found")

// PaymentPlan splits a checkout into an optional upfront payment followed by
// equal monthly installments.
type PaymentPlan struct {
	ID            string
	Name          string
	Active        bool
	InitialAmount *decimal.Decimal
	Installments  int
	PaymentDay    int
	SeasonID      string
	ProgramIDs    []string
}

// DueDay returns the day of month installments are due, clamped to 1..28.
func (p PaymentPlan) DueDay() int {
	switch {
	case p.PaymentDay < 1:
		return 1
	case p.PaymentDay > 28:
		return 28
	default:
		return p.PaymentDay
	}
}

// Initial returns the configured upfront amount or zero.
func (p PaymentPlan) Initial() decimal.Decimal {
	if p.InitialAmount == nil || p.InitialAmount.IsNegative() {
		return decimal.Zero
	}
	return *p.InitialAmount
}

// AppliesTo reports whether the plan may be used for a program of the given
// season. Plans without a season or program list are unrestricted.
func (p PaymentPlan) AppliesTo(seasonID, programID string) bool {
	if p.SeasonID != "" && p.SeasonID != seasonID {
		return false
	}
	if len(p.ProgramIDs) > 0 && !slices.Contains(p.ProgramIDs, programID) {
		return false
	}
	return true
}

// Repository defines read operations for payment plans.
type Repository interface {
	List(ctx context.Context) ([]PaymentPlan, error)
}
