// Package cache provides read-through caching decorators for catalog and
// season reads on the checkout path.
package cache

import (
	"context"
	"maps"
	"slices"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
	"github.com/xenking/league-pricing/internal/repository"
)

// DefaultCleanupInterval is how often expired items are removed.
const DefaultCleanupInterval = 10 * time.Minute

const (
	keyDiscountList = "discounts:list"
	prefixDiscount  = "discounts:id:"
	prefixSeason    = "seasons:id:"
	prefixOverlays  = "seasons:overlays:"
)

var (
	_ discount.Repository = (*Discounts)(nil)
	_ season.Repository   = (*Seasons)(nil)
)

// Discounts caches discount catalog reads. Any write flushes every cached
// catalog entry.
type Discounts struct {
	next  discount.Repository
	cache *goCache.Cache
}

// NewDiscounts wraps next with a cache whose entries live for ttl.
func NewDiscounts(next discount.Repository, ttl time.Duration) *Discounts {
	return &Discounts{
		next:  next,
		cache: goCache.New(ttl, DefaultCleanupInterval),
	}
}

// List returns the catalog.
func (c *Discounts) List(ctx context.Context) ([]discount.Definition, error) {
	if v, ok := c.cache.Get(keyDiscountList); ok {
		return cloneDefinitions(v.([]discount.Definition)), nil
	}
	defs, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(keyDiscountList, cloneDefinitions(defs))
	return defs, nil
}

// GetByID returns a definition. Misses are not cached.
func (c *Discounts) GetByID(ctx context.Context, id string) (*discount.Definition, error) {
	if v, ok := c.cache.Get(prefixDiscount + id); ok {
		def := v.(discount.Definition).Clone()
		return &def, nil
	}
	def, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(prefixDiscount+id, def.Clone())
	return def, nil
}

// Create stores d and invalidates the cache.
func (c *Discounts) Create(ctx context.Context, d *discount.Definition) error {
	defer c.invalidate(ctx)
	return c.next.Create(ctx, d)
}

// Update stores d and invalidates the cache.
func (c *Discounts) Update(ctx context.Context, d *discount.Definition) error {
	defer c.invalidate(ctx)
	return c.next.Update(ctx, d)
}

// Delete removes a definition and invalidates the cache.
func (c *Discounts) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx)
	return c.next.Delete(ctx, id)
}

// invalidate flushes the cache now and again after the surrounding
// transaction commits.
func (c *Discounts) invalidate(ctx context.Context) {
	c.cache.Flush()
	repository.AfterCommit(ctx, c.cache.Flush)
}

// Seasons caches season records and overlay lists. Overlay writes invalidate
// the overlay list of the affected season.
type Seasons struct {
	next  season.Repository
	cache *goCache.Cache
}

// NewSeasons wraps next with a cache whose entries live for ttl.
func NewSeasons(next season.Repository, ttl time.Duration) *Seasons {
	return &Seasons{
		next:  next,
		cache: goCache.New(ttl, DefaultCleanupInterval),
	}
}

// GetByID returns a season record.
func (c *Seasons) GetByID(ctx context.Context, id string) (*season.Season, error) {
	if v, ok := c.cache.Get(prefixSeason + id); ok {
		s := cloneSeason(v.(season.Season))
		return &s, nil
	}
	s, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(prefixSeason+id, cloneSeason(*s))
	return s, nil
}

// ListOverlays returns a season's overlays in insertion order.
func (c *Seasons) ListOverlays(ctx context.Context, seasonID string) ([]season.Overlay, error) {
	if v, ok := c.cache.Get(prefixOverlays + seasonID); ok {
		return slices.Clone(v.([]season.Overlay)), nil
	}
	overlays, err := c.next.ListOverlays(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(prefixOverlays+seasonID, slices.Clone(overlays))
	return overlays, nil
}

// GetOverlay always reads through; it is only used by catalog management.
func (c *Seasons) GetOverlay(ctx context.Context, seasonID, key string) (*season.Overlay, error) {
	return c.next.GetOverlay(ctx, seasonID, key)
}

// SetOverlay stores o and invalidates the season's overlay list.
func (c *Seasons) SetOverlay(ctx context.Context, o *season.Overlay) error {
	defer c.invalidateOverlays(ctx, o.SeasonID)
	return c.next.SetOverlay(ctx, o)
}

// RemoveOverlay deletes an overlay and invalidates the season's overlay list.
func (c *Seasons) RemoveOverlay(ctx context.Context, seasonID, key string) error {
	defer c.invalidateOverlays(ctx, seasonID)
	return c.next.RemoveOverlay(ctx, seasonID, key)
}

func (c *Seasons) invalidateOverlays(ctx context.Context, seasonID string) {
	key := prefixOverlays + seasonID
	c.cache.Delete(key)
	repository.AfterCommit(ctx, func() { c.cache.Delete(key) })
}

func cloneDefinitions(defs []discount.Definition) []discount.Definition {
	out := make([]discount.Definition, len(defs))
	for i, d := range defs {
		out[i] = d.Clone()
	}
	return out
}

func cloneSeason(s season.Season) season.Season {
	s.GroupDiscounts = maps.Clone(s.GroupDiscounts)
	s.DiscountCodes = slices.Clone(s.DiscountCodes)
	return s
}
