package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/league-pricing/internal/domain/audit"
)

const (
	appendAuditSQL = `INSERT INTO audit_entries
		(id, action, entity_type, entity_id, before, after, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listAuditByEntitySQL = `SELECT id, action, entity_type, entity_id, before, after, actor, created_at
		FROM audit_entries
		WHERE entity_type = $1 AND ($2 = '' OR entity_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
)

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository implements audit.Repository backed by PostgreSQL.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns an AuditRepository that uses the given pool.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append stores an audit entry.
func (r *AuditRepository) Append(ctx context.Context, e *audit.Entry) error {
	_, err := conn(ctx, r.pool).Exec(ctx, appendAuditSQL,
		e.ID, string(e.Action), string(e.EntityType), e.EntityID,
		nullJSON(e.Before), nullJSON(e.After), e.Actor, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry for %s %q: %w", e.EntityType, e.EntityID, err)
	}
	return nil
}

// ListByEntity returns entries for an entity, newest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, entity audit.EntityType, entityID string, limit int) ([]audit.Entry, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listAuditByEntitySQL, string(entity), entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries for %s %q: %w", entity, entityID, err)
	}
	return pgx.CollectRows(rows, scanAuditEntry)
}

// nullJSON maps an empty snapshot to SQL NULL.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func scanAuditEntry(row pgx.CollectableRow) (audit.Entry, error) {
	var (
		e                  audit.Entry
		action, entityType string
		before, after      []byte
	)
	err := row.Scan(&e.ID, &action, &entityType, &e.EntityID, &before, &after, &e.Actor, &e.CreatedAt)
	e.Action = audit.Action(action)
	e.EntityType = audit.EntityType(entityType)
	e.Before = before
	e.After = after
	return e, err
}
