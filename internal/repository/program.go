package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/program"
)

const (
	getProgramsByIDsSQL = `SELECT id, name, season_id, template_id, price
		FROM programs WHERE id = ANY($1)`

	upsertProgramSQL = `INSERT INTO programs (id, name, season_id, template_id, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, season_id = EXCLUDED.season_id,
			template_id = EXCLUDED.template_id, price = EXCLUDED.price`
)

var _ program.Repository = (*ProgramRepository)(nil)

// ProgramRepository implements program.Repository backed by PostgreSQL.
type ProgramRepository struct {
	pool *pgxpool.Pool
}

// NewProgramRepository returns a ProgramRepository that uses the given pool.
func NewProgramRepository(pool *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{pool: pool}
}

// GetByIDs returns programs matching any of the given IDs.
func (r *ProgramRepository) GetByIDs(ctx context.Context, ids []string) ([]program.Program, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProgramsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting programs by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProgram)
}

// Upsert inserts or replaces a program. Used by seeding.
func (r *ProgramRepository) Upsert(ctx context.Context, p *program.Program) error {
	_, err := conn(ctx, r.pool).Exec(ctx, upsertProgramSQL, p.ID, p.Name, p.SeasonID, p.TemplateID, p.Price)
	if err != nil {
		return fmt.Errorf("upserting program %q: %w", p.ID, err)
	}
	return nil
}

func scanProgram(row pgx.CollectableRow) (program.Program, error) {
	var (
		p     program.Program
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.SeasonID, &p.TemplateID, &price)
	p.Price = price
	return p, err
}
