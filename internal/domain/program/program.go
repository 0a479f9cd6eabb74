package program

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested program does not exist.
var ErrNotFound = errors.New("program not found")

// Program is a registrable offering within a season.
type Program struct {
	ID         string
	Name       string
	SeasonID   string
	TemplateID string
	Price      decimal.Decimal
}

// Repository defines read operations for programs.
type Repository interface {
	// GetByIDs returns the programs that exist among ids. Missing ids are
	// silently omitted.
	GetByIDs(ctx context.Context, ids []string) ([]Program, error)
}
