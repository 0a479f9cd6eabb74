package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// Options tune the resolver and the checkout service.
type Options struct {
	// FetchTimeout bounds every individual storage read.
	FetchTimeout time.Duration
	// Concurrency bounds parallel definition loads per season.
	Concurrency int
	// Currency is stamped on emitted payloads.
	Currency string
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// TracerProvider defaults to a no-op provider.
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 3 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Currency == "" {
		o.Currency = "usd"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.TracerProvider == nil {
		o.TracerProvider = noop.NewTracerProvider()
	}
}

// Resolver resolves season-effective discount sets and discount codes.
type Resolver struct {
	seasons   season.Reader
	discounts discount.Reader
	opts      Options
}

// NewResolver creates a Resolver over the given readers.
func NewResolver(seasons season.Reader, discounts discount.Reader, opts Options) *Resolver {
	opts.setDefaults()
	return &Resolver{
		seasons:   seasons,
		discounts: discounts,
		opts:      opts,
	}
}

// ResolveEffective returns the currently valid discounts of a season in
// overlay insertion order. Storage failures are logged and yield an empty
// result so checkout can proceed without discounts.
func (r *Resolver) ResolveEffective(ctx context.Context, seasonID string) []discount.Definition {
	if seasonID == "" {
		return []discount.Definition{}
	}
	lg := zctx.From(ctx).With(zap.String("season_id", seasonID))

	overlays, err := withTimeout(ctx, r.opts.FetchTimeout, func(ctx context.Context) ([]season.Overlay, error) {
		return r.seasons.ListOverlays(ctx, seasonID)
	})
	if err != nil {
		lg.Warn("Season overlays unavailable, continuing without discounts", zap.Error(err))
		return []discount.Definition{}
	}
	if len(overlays) == 0 {
		return []discount.Definition{}
	}

	defs := make([]*discount.Definition, len(overlays))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, o := range overlays {
		g.Go(func() error {
			def, err := withTimeout(gctx, r.opts.FetchTimeout, func(ctx context.Context) (*discount.Definition, error) {
				return r.discounts.GetByID(ctx, o.DiscountID)
			})
			if errors.Is(err, discount.ErrNotFound) {
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "get discount %s", o.DiscountID)
			}
			defs[i] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		lg.Warn("Discount definitions unavailable, continuing without discounts", zap.Error(err))
		return []discount.Definition{}
	}

	catalog := make(map[string]discount.Definition, len(defs))
	for _, def := range defs {
		if def != nil {
			catalog[def.ID] = *def
		}
	}
	return EffectiveDiscounts(seasonID, overlays, catalog, r.opts.Now())
}

// FindByCode looks a code up for a season, or in the global catalog when
// seasonID is empty. Blank codes and misses return nil without error.
//
// Season lookups degrade like ResolveEffective. A failing global catalog read
// is returned as a LoadError so callers can tell it apart from a miss.
func (r *Resolver) FindByCode(ctx context.Context, code, seasonID string) (*discount.Definition, error) {
	code = discount.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	if seasonID != "" {
		effective := r.ResolveEffective(ctx, seasonID)
		return MatchSeasonCode(code, effective, r.season(ctx, seasonID)), nil
	}

	defs, err := withTimeout(ctx, r.opts.FetchTimeout, r.discounts.List)
	if err != nil {
		return nil, &LoadError{Entity: "discount catalog", Err: err}
	}
	return MatchCode(code, defs), nil
}

// season loads a season record for code matching, degrading to nil.
func (r *Resolver) season(ctx context.Context, seasonID string) *season.Season {
	s, err := withTimeout(ctx, r.opts.FetchTimeout, func(ctx context.Context) (*season.Season, error) {
		return r.seasons.GetByID(ctx, seasonID)
	})
	if err != nil {
		if !errors.Is(err, season.ErrNotFound) {
			zctx.From(ctx).Warn("Season record unavailable",
				zap.String("season_id", seasonID),
				zap.Error(err),
			)
		}
		return nil
	}
	return s
}

// MatchCode returns the first active definition whose code matches.
func MatchCode(code string, defs []discount.Definition) *discount.Definition {
	code = discount.NormalizeCode(code)
	if code == "" {
		return nil
	}
	def, ok := lo.Find(defs, func(d discount.Definition) bool {
		return d.Active && discount.NormalizeCode(d.Code) == code
	})
	if !ok {
		return nil
	}
	return &def
}

// MatchSeasonCode matches code against a season's effective set first, then
// against the active codes configured on the season record itself.
func MatchSeasonCode(code string, effective []discount.Definition, s *season.Season) *discount.Definition {
	if def := MatchCode(code, effective); def != nil {
		return def
	}
	if s == nil {
		return nil
	}
	code = discount.NormalizeCode(code)
	for _, c := range s.DiscountCodes {
		if c.Active && discount.NormalizeCode(c.Code) == code {
			def := c.Definition(s.ID)
			return &def
		}
	}
	return nil
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
