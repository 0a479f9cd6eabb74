package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/pricing"
)

// seasonDiscounts lists the effective discounts of a season. Resolution
// degrades to an empty list when storage is unavailable.
func (h *Handler) seasonDiscounts(w http.ResponseWriter, r *http.Request) {
	seasonID := r.PathValue("seasonID")
	defs := h.discounts.ResolveEffective(r.Context(), seasonID)

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("seasonId", func(e *jx.Encoder) { e.Str(seasonID) })
		e.Field("discounts", func(e *jx.Encoder) { encodeDefinitions(e, defs) })
	})
	writeJSON(w, http.StatusOK, &e)
}

// lookupDiscount resolves a code the way checkout would.
func (h *Handler) lookupDiscount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		fail(w, r, badRequest("code query parameter required"))
		return
	}
	def, err := h.discounts.FindByCode(r.Context(), code, q.Get("seasonId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if def == nil {
		writeError(w, http.StatusNotFound, pricing.ErrCodeNotFound.Error())
		return
	}

	var e jx.Encoder
	encodeDefinition(&e, def)
	writeJSON(w, http.StatusOK, &e)
}

func encodeDefinitions(e *jx.Encoder, defs []discount.Definition) {
	e.ArrStart()
	for i := range defs {
		encodeDefinition(e, &defs[i])
	}
	e.ArrEnd()
}

func encodeDefinition(e *jx.Encoder, d *discount.Definition) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(d.ID) })
		e.Field("code", func(e *jx.Encoder) { e.Str(d.Code) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(d.Kind)) })
		e.Field("amountType", func(e *jx.Encoder) { e.Str(string(d.AmountType)) })
		e.Field("amount", func(e *jx.Encoder) { writeDecimal(e, d.Amount) })
		e.Field("appliesTo", func(e *jx.Encoder) { e.Str(string(d.AppliesTo)) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(d.Active) })
		e.Field("allowedProgramTemplateIds", func(e *jx.Encoder) { writeStrings(e, d.AllowedProgramTemplateIDs) })
		if d.PerAdditional() {
			e.Field("tierAmounts", func(e *jx.Encoder) {
				e.ArrStart()
				for _, t := range d.TierAmounts {
					writeDecimal(e, t)
				}
				e.ArrEnd()
			})
		}
		if d.MinRegistrationsPerFamily > 0 {
			e.Field("minRegistrationsPerFamily", func(e *jx.Encoder) { e.Int(d.MinRegistrationsPerFamily) })
		}
		if d.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(d.Description) })
		}
		if d.SeasonID != "" {
			e.Field("seasonId", func(e *jx.Encoder) { e.Str(d.SeasonID) })
		}
		if !d.CreatedAt.IsZero() {
			e.Field("createdAt", func(e *jx.Encoder) { writeTime(e, d.CreatedAt) })
		}
		if !d.UpdatedAt.IsZero() {
			e.Field("updatedAt", func(e *jx.Encoder) { writeTime(e, d.UpdatedAt) })
		}
	})
}
