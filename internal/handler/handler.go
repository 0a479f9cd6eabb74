// Package handler exposes checkout pricing and catalog management over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/xenking/league-pricing/internal/domain/audit"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/pricing"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// Pricer prices and submits carts.
type Pricer interface {
	Quote(ctx context.Context, req pricing.CheckoutRequest) (*pricing.Breakdown, error)
	Submit(ctx context.Context, req pricing.CheckoutRequest) (*pricing.SubmitResult, error)
}

// DiscountResolver answers read-only discount lookups.
type DiscountResolver interface {
	ResolveEffective(ctx context.Context, seasonID string) []discount.Definition
	FindByCode(ctx context.Context, code, seasonID string) (*discount.Definition, error)
}

// Catalog manages discount definitions and season overlays.
type Catalog interface {
	ListDiscounts(ctx context.Context) ([]discount.Definition, error)
	GetDiscount(ctx context.Context, id string) (*discount.Definition, error)
	CreateDiscount(ctx context.Context, in discount.Definition) (*discount.Definition, error)
	UpdateDiscount(ctx context.Context, id string, in discount.Definition) (*discount.Definition, error)
	DeleteDiscount(ctx context.Context, id string) error
	ListSeasonOverlays(ctx context.Context, seasonID string) ([]season.Overlay, error)
	SetSeasonOverlay(ctx context.Context, o season.Overlay) (*season.Overlay, error)
	RemoveSeasonOverlay(ctx context.Context, seasonID, key string) error
	AuditTrail(ctx context.Context, entity audit.EntityType, entityID string, limit int) ([]audit.Entry, error)
}

// Handler serves the pricing API.
type Handler struct {
	pricer    Pricer
	discounts DiscountResolver
	catalog   Catalog
	validate  *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(pricer Pricer, discounts DiscountResolver, catalog Catalog) *Handler {
	return &Handler{
		pricer:    pricer,
		discounts: discounts,
		catalog:   catalog,
		validate:  newValidator(),
	}
}

// Register mounts every route on mux. Admin routes are wrapped with admin,
// which is expected to authenticate the caller.
func (h *Handler) Register(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/checkout/quote", h.quote)
	mux.HandleFunc("POST /api/checkout", h.submit)
	mux.HandleFunc("GET /api/seasons/{seasonID}/discounts", h.seasonDiscounts)
	mux.HandleFunc("GET /api/discounts/lookup", h.lookupDiscount)

	adm := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, admin(fn))
	}
	adm("GET /api/admin/discounts", h.listDiscounts)
	adm("POST /api/admin/discounts", h.createDiscount)
	adm("GET /api/admin/discounts/preview-id", h.previewDiscountID)
	adm("GET /api/admin/discounts/{id}", h.getDiscount)
	adm("PUT /api/admin/discounts/{id}", h.updateDiscount)
	adm("DELETE /api/admin/discounts/{id}", h.deleteDiscount)
	adm("GET /api/admin/seasons/{seasonID}/overlays", h.listOverlays)
	adm("PUT /api/admin/seasons/{seasonID}/overlays/{key}", h.setOverlay)
	adm("DELETE /api/admin/seasons/{seasonID}/overlays/{key}", h.removeOverlay)
	adm("GET /api/admin/audit", h.auditTrail)
}
