package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/plan"
)

const (
	listPaymentPlansSQL = `SELECT id, name, active, initial_amount, installments, payment_day,
		season_id, program_ids FROM payment_plans ORDER BY id`

	upsertPaymentPlanSQL = `INSERT INTO payment_plans
		(id, name, active, initial_amount, installments, payment_day, season_id, program_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active,
			initial_amount = EXCLUDED.initial_amount, installments = EXCLUDED.installments,
			payment_day = EXCLUDED.payment_day, season_id = EXCLUDED.season_id,
			program_ids = EXCLUDED.program_ids`
)

var _ plan.Repository = (*PaymentPlanRepository)(nil)

// PaymentPlanRepository implements plan.Repository backed by PostgreSQL.
type PaymentPlanRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentPlanRepository returns a PaymentPlanRepository that uses the given pool.
func NewPaymentPlanRepository(pool *pgxpool.Pool) *PaymentPlanRepository {
	return &PaymentPlanRepository{pool: pool}
}

// List returns every payment plan.
func (r *PaymentPlanRepository) List(ctx context.Context) ([]plan.PaymentPlan, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listPaymentPlansSQL)
	if err != nil {
		return nil, fmt.Errorf("listing payment plans: %w", err)
	}
	return pgx.CollectRows(rows, scanPaymentPlan)
}

// Upsert inserts or replaces a plan. Used by seeding.
func (r *PaymentPlanRepository) Upsert(ctx context.Context, p *plan.PaymentPlan) error {
	initial := decimal.NullDecimal{}
	if p.InitialAmount != nil {
		initial = decimal.NewNullDecimal(*p.InitialAmount)
	}
	_, err := conn(ctx, r.pool).Exec(ctx, upsertPaymentPlanSQL,
		p.ID, p.Name, p.Active, initial, p.Installments, p.PaymentDay, p.SeasonID, nonNil(p.ProgramIDs),
	)
	if err != nil {
		return fmt.Errorf("upserting payment plan %q: %w", p.ID, err)
	}
	return nil
}

func scanPaymentPlan(row pgx.CollectableRow) (plan.PaymentPlan, error) {
	var (
		p       plan.PaymentPlan
		initial decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Active, &initial, &p.Installments, &p.PaymentDay,
		&p.SeasonID, &p.ProgramIDs,
	)
	if initial.Valid {
		v := initial.Decimal
		p.InitialAmount = &v
	}
	return p, err
}
