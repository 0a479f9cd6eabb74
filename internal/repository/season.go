package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

const (
	getSeasonByIDSQL = `SELECT id, name, group_discounts, discount_codes FROM seasons WHERE id = $1`

	upsertSeasonSQL = `INSERT INTO seasons (id, name, group_discounts, discount_codes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			group_discounts = EXCLUDED.group_discounts, discount_codes = EXCLUDED.discount_codes`

	overlayColumns = `season_id, key, discount_id, active, start_date, expiration_date,
		amount, amount_type, position, created_at`

	listOverlaysSQL = `SELECT ` + overlayColumns + ` FROM season_discount_overlays
		WHERE season_id = $1 ORDER BY position`

	getOverlaySQL = `SELECT ` + overlayColumns + ` FROM season_discount_overlays
		WHERE season_id = $1 AND key = $2`

	setOverlaySQL = `INSERT INTO season_discount_overlays
		(season_id, key, discount_id, active, start_date, expiration_date, amount, amount_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (season_id, key) DO UPDATE SET discount_id = EXCLUDED.discount_id,
			active = EXCLUDED.active, start_date = EXCLUDED.start_date,
			expiration_date = EXCLUDED.expiration_date, amount = EXCLUDED.amount,
			amount_type = EXCLUDED.amount_type
		RETURNING position, created_at`

	removeOverlaySQL = `DELETE FROM season_discount_overlays WHERE season_id = $1 AND key = $2`
)

var _ season.Repository = (*SeasonRepository)(nil)

// SeasonRepository implements season.Repository backed by PostgreSQL.
type SeasonRepository struct {
	pool *pgxpool.Pool
}

// NewSeasonRepository returns a SeasonRepository that uses the given pool.
func NewSeasonRepository(pool *pgxpool.Pool) *SeasonRepository {
	return &SeasonRepository{pool: pool}
}

// legacyCodeJSON is the stored form of a season-level discount code.
type legacyCodeJSON struct {
	Code   string          `json:"code"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Active bool            `json:"active"`
}

// GetByID returns a season record.
func (r *SeasonRepository) GetByID(ctx context.Context, id string) (*season.Season, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getSeasonByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting season %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSeason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, season.ErrNotFound
		}
		return nil, fmt.Errorf("getting season %q: %w", id, err)
	}
	return &s, nil
}

// Upsert inserts or replaces a season record. Used by seeding.
func (r *SeasonRepository) Upsert(ctx context.Context, s *season.Season) error {
	groups := make(map[string]decimal.Decimal, len(s.GroupDiscounts))
	for pos, amount := range s.GroupDiscounts {
		groups[strconv.Itoa(pos)] = amount
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("marshaling group discounts: %w", err)
	}

	codes := make([]legacyCodeJSON, len(s.DiscountCodes))
	for i, c := range s.DiscountCodes {
		codes[i] = legacyCodeJSON{Code: c.Code, Type: string(c.Type), Amount: c.Amount, Active: c.Active}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("marshaling discount codes: %w", err)
	}

	if _, err := conn(ctx, r.pool).Exec(ctx, upsertSeasonSQL, s.ID, s.Name, groupsJSON, codesJSON); err != nil {
		return fmt.Errorf("upserting season %q: %w", s.ID, err)
	}
	return nil
}

// ListOverlays returns the overlays of a season in insertion order.
func (r *SeasonRepository) ListOverlays(ctx context.Context, seasonID string) ([]season.Overlay, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listOverlaysSQL, seasonID)
	if err != nil {
		return nil, fmt.Errorf("listing overlays of season %q: %w", seasonID, err)
	}
	return pgx.CollectRows(rows, scanOverlay)
}

// GetOverlay returns a single overlay.
func (r *SeasonRepository) GetOverlay(ctx context.Context, seasonID, key string) (*season.Overlay, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getOverlaySQL, seasonID, key)
	if err != nil {
		return nil, fmt.Errorf("getting overlay %s/%s: %w", seasonID, key, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOverlay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, season.ErrOverlayNotFound
		}
		return nil, fmt.Errorf("getting overlay %s/%s: %w", seasonID, key, err)
	}
	return &o, nil
}

// SetOverlay inserts or replaces an overlay. A replaced overlay keeps its
// position and creation time; both are written back to o.
func (r *SeasonRepository) SetOverlay(ctx context.Context, o *season.Overlay) error {
	var amountType *string
	if o.AmountType != nil {
		v := string(*o.AmountType)
		amountType = &v
	}
	amount := decimal.NullDecimal{}
	if o.Amount != nil {
		amount = decimal.NewNullDecimal(*o.Amount)
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := conn(ctx, r.pool).QueryRow(ctx, setOverlaySQL,
		o.SeasonID, o.Key, o.DiscountID, o.Active, o.StartDate, o.ExpirationDate,
		amount, amountType, createdAt,
	).Scan(&o.Position, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("setting overlay %s/%s: %w", o.SeasonID, o.Key, err)
	}
	return nil
}

// RemoveOverlay deletes an overlay.
func (r *SeasonRepository) RemoveOverlay(ctx context.Context, seasonID, key string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, removeOverlaySQL, seasonID, key)
	if err != nil {
		return fmt.Errorf("removing overlay %s/%s: %w", seasonID, key, err)
	}
	if tag.RowsAffected() == 0 {
		return season.ErrOverlayNotFound
	}
	return nil
}

func scanSeason(row pgx.CollectableRow) (season.Season, error) {
	var (
		s          season.Season
		groupsJSON []byte
		codesJSON  []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &groupsJSON, &codesJSON); err != nil {
		return s, err
	}

	var groups map[string]decimal.Decimal
	if err := json.Unmarshal(groupsJSON, &groups); err != nil {
		return s, fmt.Errorf("unmarshaling group discounts of %q: %w", s.ID, err)
	}
	s.GroupDiscounts = make(map[int]decimal.Decimal, len(groups))
	for k, v := range groups {
		pos, err := strconv.Atoi(k)
		if err != nil || pos < 1 {
			continue
		}
		s.GroupDiscounts[pos] = v
	}

	var codes []legacyCodeJSON
	if err := json.Unmarshal(codesJSON, &codes); err != nil {
		return s, fmt.Errorf("unmarshaling discount codes of %q: %w", s.ID, err)
	}
	for _, c := range codes {
		s.DiscountCodes = append(s.DiscountCodes, season.LegacyCode{
			Code:   c.Code,
			Type:   discount.AmountType(c.Type),
			Amount: c.Amount,
			Active: c.Active,
		})
	}
	return s, nil
}

func scanOverlay(row pgx.CollectableRow) (season.Overlay, error) {
	var (
		o          season.Overlay
		amount     decimal.NullDecimal
		amountType *string
	)
	err := row.Scan(
		&o.SeasonID, &o.Key, &o.DiscountID, &o.Active, &o.StartDate, &o.ExpirationDate,
		&amount, &amountType, &o.Position, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if amount.Valid {
		v := amount.Decimal
		o.Amount = &v
	}
	if amountType != nil {
		t := discount.AmountType(*amountType)
		o.AmountType = &t
	}
	return o, nil
}
