package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/league-pricing/internal/domain/pricing"
)

const createCheckoutSQL = `INSERT INTO checkouts
	(id, items, subtotal, group_total, code_total, final_amount, applied_code, currency, schedule, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

var _ pricing.CheckoutRepository = (*CheckoutRepository)(nil)

// CheckoutRepository implements pricing.CheckoutRepository backed by PostgreSQL.
type CheckoutRepository struct {
	pool *pgxpool.Pool
}

// NewCheckoutRepository returns a CheckoutRepository that uses the given pool.
func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

// Create persists a submitted checkout. Items and schedule are serialized to
// JSON for storage in JSONB columns.
func (r *CheckoutRepository) Create(ctx context.Context, c *pricing.CheckoutRecord) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling checkout items: %w", err)
	}
	scheduleJSON, err := json.Marshal(c.Schedule)
	if err != nil {
		return fmt.Errorf("marshaling checkout schedule: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx, createCheckoutSQL,
		c.ID, itemsJSON, c.Subtotal, c.GroupTotal, c.CodeTotal, c.FinalAmount,
		c.AppliedCode, c.Currency, scheduleJSON, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating checkout %q: %w", c.ID, err)
	}
	return nil
}
