package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyItems        = errors.New("items required")
	ErrCodeNotFound      = errors.New("discount code not found")
	ErrPlanNotFound      = errors.New("payment plan not found")
	ErrPlanInactive      = errors.New("payment plan is not active")
	ErrPlanNotApplicable = errors.New("payment plan does not apply to the selected programs")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProgramID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for program %s", e.ProgramID)
}

// ProgramNotFoundError indicates a requested program does not exist.
type ProgramNotFoundError struct {
	ProgramID string
}

func (e *ProgramNotFoundError) Error() string {
	return fmt.Sprintf("program %s not found", e.ProgramID)
}

// LoadError reports a storage failure on a read the final amount depends on.
// Checkout is not completed against partial pricing data.
type LoadError struct {
	Entity string
	ID     string
	Err    error
}

func (e *LoadError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("load %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("load %s %s: %v", e.Entity, e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
