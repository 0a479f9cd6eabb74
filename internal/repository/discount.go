package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

const (
	discountColumns = `id, code, kind, amount_type, amount, applies_to, active,
		allowed_program_template_ids, tier_amounts, min_registrations_per_family,
		description, created_at, updated_at`

	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at, id`

	getDiscountByIDSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	createDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateDiscountSQL = `UPDATE discounts SET code = $2, kind = $3, amount_type = $4, amount = $5,
		applies_to = $6, active = $7, allowed_program_template_ids = $8, tier_amounts = $9,
		min_registrations_per_family = $10, description = $11, updated_at = $12
		WHERE id = $1`

	upsertDiscountSQL = `INSERT INTO discounts (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, kind = EXCLUDED.kind,
			amount_type = EXCLUDED.amount_type, amount = EXCLUDED.amount,
			applies_to = EXCLUDED.applies_to, active = EXCLUDED.active,
			allowed_program_template_ids = EXCLUDED.allowed_program_template_ids,
			tier_amounts = EXCLUDED.tier_amounts,
			min_registrations_per_family = EXCLUDED.min_registrations_per_family,
			description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`

	discountCodeConstraint = "discounts_code_key"
	discountIDConstraint   = "discounts_pkey"
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Every definition read is normalized before it is returned.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// List returns the whole catalog in creation order.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Definition, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// GetByID returns a single definition.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Definition, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getDiscountByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting discount %q: %w", id, err)
	}
	return &d, nil
}

// Create inserts a new definition. Unique violations are reported as
// *discount.ConflictError.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Definition) error {
	args, err := discountArgs(d)
	if err != nil {
		return err
	}
	if _, err := conn(ctx, r.pool).Exec(ctx, createDiscountSQL, args...); err != nil {
		if cErr := discountConflict(err, d); cErr != nil {
			return cErr
		}
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// Update replaces an existing definition.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Definition) error {
	tiers, err := marshalTiers(d.TierAmounts)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, updateDiscountSQL,
		d.ID, d.Code, string(d.Kind), string(d.AmountType), d.Amount, string(d.AppliesTo), d.Active,
		nonNil(d.AllowedProgramTemplateIDs), tiers, d.MinRegistrationsPerFamily, d.Description, d.UpdatedAt,
	)
	if err != nil {
		if cErr := discountConflict(err, d); cErr != nil {
			return cErr
		}
		return fmt.Errorf("updating discount %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a definition by id. Used by bulk import.
func (r *DiscountRepository) Upsert(ctx context.Context, d *discount.Definition) error {
	args, err := discountArgs(d)
	if err != nil {
		return err
	}
	if _, err := conn(ctx, r.pool).Exec(ctx, upsertDiscountSQL, args...); err != nil {
		if cErr := discountConflict(err, d); cErr != nil {
			return cErr
		}
		return fmt.Errorf("upserting discount %q: %w", d.ID, err)
	}
	return nil
}

// Delete removes a definition.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

func discountArgs(d *discount.Definition) ([]any, error) {
	tiers, err := marshalTiers(d.TierAmounts)
	if err != nil {
		return nil, err
	}
	return []any{
		d.ID, d.Code, string(d.Kind), string(d.AmountType), d.Amount, string(d.AppliesTo), d.Active,
		nonNil(d.AllowedProgramTemplateIDs), tiers, d.MinRegistrationsPerFamily, d.Description,
		d.CreatedAt, d.UpdatedAt,
	}, nil
}

func marshalTiers(tiers []decimal.Decimal) ([]byte, error) {
	if tiers == nil {
		tiers = []decimal.Decimal{}
	}
	b, err := json.Marshal(tiers)
	if err != nil {
		return nil, fmt.Errorf("marshaling tier amounts: %w", err)
	}
	return b, nil
}

func discountConflict(err error, d *discount.Definition) error {
	name, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	var reason discount.ConflictReason
	switch name {
	case discountIDConstraint:
		reason = discount.ConflictDuplicateID
	case discountCodeConstraint:
		reason = discount.ConflictDuplicateCode
	default:
		return nil
	}
	return &discount.ConflictError{Reason: reason, Code: d.Code, ID: d.ID}
}

func scanDiscount(row pgx.CollectableRow) (discount.Definition, error) {
	var (
		d          discount.Definition
		kind       string
		amountType string
		appliesTo  string
		amount     decimal.Decimal
		tiers      []byte
	)
	err := row.Scan(
		&d.ID, &d.Code, &kind, &amountType, &amount, &appliesTo, &d.Active,
		&d.AllowedProgramTemplateIDs, &tiers, &d.MinRegistrationsPerFamily,
		&d.Description, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}
	d.Kind = discount.Kind(kind)
	d.AmountType = discount.AmountType(amountType)
	d.AppliesTo = discount.Scope(appliesTo)
	d.Amount = amount
	if len(tiers) > 0 {
		if err := json.Unmarshal(tiers, &d.TierAmounts); err != nil {
			return d, fmt.Errorf("unmarshaling tier amounts of %q: %w", d.ID, err)
		}
	}
	return discount.Normalize(d), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
