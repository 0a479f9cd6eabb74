package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/league-pricing/internal/domain/audit"
	"github.com/xenking/league-pricing/internal/domain/auth"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// Validation errors for catalog writes.
var (
	ErrCodeRequired       = errors.New("discount code required")
	ErrCodeUnsluggable    = errors.New("discount code must contain a letter or digit")
	ErrDiscountIDRequired = errors.New("overlay discount id required")
	ErrInvalidWindow      = errors.New("overlay start date is after its expiration date")
)

// Transactor runs fn atomically. Repository calls made with the context passed
// to fn take part in the same transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages the discount catalog and season overlays. Every mutation
// and its audit entry are committed together or not at all.
type Service struct {
	tx        Transactor
	discounts discount.Repository
	seasons   season.Repository
	audits    audit.Repository
	now       func() time.Time
}

// NewService creates a catalog Service.
func NewService(tx Transactor, discounts discount.Repository, seasons season.Repository, audits audit.Repository) *Service {
	return &Service{
		tx:        tx,
		discounts: discounts,
		seasons:   seasons,
		audits:    audits,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListDiscounts returns every definition in the catalog.
func (s *Service) ListDiscounts(ctx context.Context) ([]discount.Definition, error) {
	defs, err := s.discounts.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	return defs, nil
}

// GetDiscount returns a definition by id.
func (s *Service) GetDiscount(ctx context.Context, id string) (*discount.Definition, error) {
	return s.discounts.GetByID(ctx, id)
}

// CreateDiscount normalizes and stores a new definition. Its id is always
// derived from the code.
func (s *Service) CreateDiscount(ctx context.Context, in discount.Definition) (*discount.Definition, error) {
	in.ID = ""
	def := discount.Normalize(in)
	if def.Code == "" {
		return nil, ErrCodeRequired
	}
	if def.ID == "" {
		return nil, ErrCodeUnsluggable
	}

	now := s.now().UTC()
	def.SeasonID = ""
	def.CreatedAt = now
	def.UpdatedAt = now

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.discounts.List(ctx)
		if err != nil {
			return errors.Wrap(err, "list discounts")
		}
		if err := discount.CheckConflicts(existing, def, ""); err != nil {
			return err
		}
		if err := s.discounts.Create(ctx, &def); err != nil {
			return errors.Wrap(err, "create discount")
		}
		return s.record(ctx, audit.ActionCreate, audit.EntityDiscount, def.ID, nil, def)
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// UpdateDiscount replaces the definition stored under id. The id never
// changes, even when the code does.
func (s *Service) UpdateDiscount(ctx context.Context, id string, in discount.Definition) (*discount.Definition, error) {
	in.ID = id
	def := discount.Normalize(in)
	if def.Code == "" {
		return nil, ErrCodeRequired
	}
	def.SeasonID = ""
	def.UpdatedAt = s.now().UTC()

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.discounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing, err := s.discounts.List(ctx)
		if err != nil {
			return errors.Wrap(err, "list discounts")
		}
		if err := discount.CheckConflicts(existing, def, id); err != nil {
			return err
		}

		def.CreatedAt = before.CreatedAt
		if err := s.discounts.Update(ctx, &def); err != nil {
			return errors.Wrapf(err, "update discount %s", id)
		}
		return s.record(ctx, audit.ActionUpdate, audit.EntityDiscount, id, before, def)
	})
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// DeleteDiscount removes a definition. Overlays referencing it are left in
// place and ignored by resolution.
func (s *Service) DeleteDiscount(ctx context.Context, id string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.discounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.discounts.Delete(ctx, id); err != nil {
			return errors.Wrapf(err, "delete discount %s", id)
		}
		return s.record(ctx, audit.ActionDelete, audit.EntityDiscount, id, before, nil)
	})
}

// ListSeasonOverlays returns the overlays of an existing season.
func (s *Service) ListSeasonOverlays(ctx context.Context, seasonID string) ([]season.Overlay, error) {
	if _, err := s.seasons.GetByID(ctx, seasonID); err != nil {
		return nil, err
	}
	overlays, err := s.seasons.ListOverlays(ctx, seasonID)
	if err != nil {
		return nil, errors.Wrapf(err, "list overlays of season %s", seasonID)
	}
	return overlays, nil
}

// SetSeasonOverlay creates or replaces an overlay. The key defaults to the
// referenced discount id.
func (s *Service) SetSeasonOverlay(ctx context.Context, o season.Overlay) (*season.Overlay, error) {
	if o.DiscountID == "" {
		return nil, ErrDiscountIDRequired
	}
	if o.Key == "" {
		o.Key = o.DiscountID
	}
	if o.StartDate != nil && o.ExpirationDate != nil && o.StartDate.After(*o.ExpirationDate) {
		return nil, ErrInvalidWindow
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.seasons.GetByID(ctx, o.SeasonID); err != nil {
			return err
		}
		if _, err := s.discounts.GetByID(ctx, o.DiscountID); err != nil {
			return err
		}

		before, err := s.seasons.GetOverlay(ctx, o.SeasonID, o.Key)
		switch {
		case errors.Is(err, season.ErrOverlayNotFound):
			before = nil
		case err != nil:
			return errors.Wrap(err, "get overlay")
		}

		action := audit.ActionCreate
		o.CreatedAt = s.now().UTC()
		if before != nil {
			action = audit.ActionUpdate
			o.CreatedAt = before.CreatedAt
			o.Position = before.Position
		}
		if err := s.seasons.SetOverlay(ctx, &o); err != nil {
			return errors.Wrap(err, "set overlay")
		}
		return s.record(ctx, action, audit.EntitySeasonOverlay, overlayEntityID(o.SeasonID, o.Key), before, o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// RemoveSeasonOverlay deletes an overlay, recording its last state.
func (s *Service) RemoveSeasonOverlay(ctx context.Context, seasonID, key string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		before, err := s.seasons.GetOverlay(ctx, seasonID, key)
		if err != nil {
			return err
		}
		if err := s.seasons.RemoveOverlay(ctx, seasonID, key); err != nil {
			return errors.Wrap(err, "remove overlay")
		}
		return s.record(ctx, audit.ActionDelete, audit.EntitySeasonOverlay, overlayEntityID(seasonID, key), before, nil)
	})
}

// AuditTrail lists audit entries, newest first.
func (s *Service) AuditTrail(ctx context.Context, entity audit.EntityType, entityID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.audits.ListByEntity(ctx, entity, entityID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list audit entries")
	}
	return entries, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, entity audit.EntityType, id string, before, after any) error {
	e, err := audit.NewEntry(action, entity, id, auth.Actor(ctx), nilIfEmpty(before), nilIfEmpty(after), s.now())
	if err != nil {
		return errors.Wrap(err, "build audit entry")
	}
	if err := s.audits.Append(ctx, e); err != nil {
		return errors.Wrap(err, "append audit entry")
	}
	return nil
}

// nilIfEmpty turns typed nil pointers into untyped nil so they are not
// snapshotted as JSON null.
func nilIfEmpty(v any) any {
	switch p := v.(type) {
	case *discount.Definition:
		if p == nil {
			return nil
		}
	case *season.Overlay:
		if p == nil {
			return nil
		}
	}
	return v
}

func overlayEntityID(seasonID, key string) string {
	return seasonID + "/" + key
}
