package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/audit"
	"github.com/xenking/league-pricing/internal/domain/catalog"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

type discountBody struct {
	Code                      string            `json:"code" validate:"required,max=64"`
	AmountType                string            `json:"amountType" validate:"omitempty,oneof=fixed percent"`
	Amount                    decimal.Decimal   `json:"amount" validate:"gte=0"`
	AppliesTo                 string            `json:"appliesTo" validate:"omitempty,oneof=cart line_item"`
	Active                    *bool             `json:"active"`
	AllowedProgramTemplateIDs []string          `json:"allowedProgramTemplateIds" validate:"max=100,dive,required,max=128"`
	TierAmounts               []decimal.Decimal `json:"tierAmounts" validate:"max=20,dive,gte=0"`
	MinRegistrationsPerFamily int               `json:"minRegistrationsPerFamily" validate:"gte=0,lte=20"`
	Description               string            `json:"description" validate:"max=500"`
}

func decodeDiscountBody(d *jx.Decoder) (discountBody, error) {
	var b discountBody
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "code":
			b.Code, err = d.Str()
		case "amountType":
			b.AmountType, err = d.Str()
		case "amount":
			b.Amount, err = readDecimal(d)
		case "appliesTo":
			b.AppliesTo, err = d.Str()
		case "active":
			b.Active, err = readBoolPtr(d)
		case "allowedProgramTemplateIds":
			b.AllowedProgramTemplateIDs, err = readStrings(d)
		case "tierAmounts":
			b.TierAmounts, err = readDecimals(d)
		case "minRegistrationsPerFamily":
			b.MinRegistrationsPerFamily, err = d.Int()
		case "description":
			b.Description, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return b, err
}

// definition converts the body. Absent active means active.
func (b discountBody) definition() discount.Definition {
	active := true
	if b.Active != nil {
		active = *b.Active
	}
	return discount.Definition{
		Code:                      b.Code,
		AmountType:                discount.AmountType(b.AmountType),
		Amount:                    b.Amount,
		AppliesTo:                 discount.Scope(b.AppliesTo),
		Active:                    active,
		AllowedProgramTemplateIDs: b.AllowedProgramTemplateIDs,
		TierAmounts:               b.TierAmounts,
		MinRegistrationsPerFamily: b.MinRegistrationsPerFamily,
		Description:               b.Description,
	}
}

func (h *Handler) readDiscount(w http.ResponseWriter, r *http.Request) (discount.Definition, error) {
	var body discountBody
	err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		body, err = decodeDiscountBody(d)
		return err
	})
	if err != nil {
		return discount.Definition{}, err
	}
	if err := h.validate.Struct(body); err != nil {
		return discount.Definition{}, err
	}
	return body.definition(), nil
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	defs, err := h.catalog.ListDiscounts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeDefinitions(&e, defs)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getDiscount(w http.ResponseWriter, r *http.Request) {
	def, err := h.catalog.GetDiscount(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeDefinition(&e, def)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	in, err := h.readDiscount(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	def, err := h.catalog.CreateDiscount(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeDefinition(&e, def)
	w.Header().Set("Location", "/api/admin/discounts/"+def.ID)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	in, err := h.readDiscount(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	def, err := h.catalog.UpdateDiscount(r.Context(), r.PathValue("id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeDefinition(&e, def)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteDiscount(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// previewDiscountID shows the id a code would get and whether saving it
// would collide with the catalog. excludeId skips the definition being
// edited.
func (h *Handler) previewDiscountID(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := discount.NormalizeCode(q.Get("code"))
	if code == "" {
		fail(w, r, badRequest("code query parameter required"))
		return
	}
	existing, err := h.catalog.ListDiscounts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	id := discount.PreviewID(code)
	if id == "" {
		fail(w, r, catalog.ErrCodeUnsluggable)
		return
	}
	excludeID := q.Get("excludeId")

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(code) })
		e.Field("id", func(e *jx.Encoder) { e.Str(id) })
		e.Field("duplicateCode", func(e *jx.Encoder) {
			e.Bool(discount.IsDuplicateCode(existing, code, excludeID))
		})
		e.Field("duplicateId", func(e *jx.Encoder) {
			e.Bool(discount.IsDuplicateID(existing, id, excludeID))
		})
	})
	writeJSON(w, http.StatusOK, &e)
}

type overlayBody struct {
	DiscountID     string           `json:"discountId" validate:"required,max=128"`
	Active         *bool            `json:"active"`
	StartDate      *time.Time       `json:"startDate"`
	ExpirationDate *time.Time       `json:"expirationDate"`
	Amount         *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	AmountType     string           `json:"amountType" validate:"omitempty,oneof=fixed percent"`
}

func decodeOverlayBody(d *jx.Decoder) (overlayBody, error) {
	var b overlayBody
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "discountId":
			b.DiscountID, err = d.Str()
		case "active":
			b.Active, err = readBoolPtr(d)
		case "startDate":
			b.StartDate, err = readTimePtr(d)
		case "expirationDate":
			b.ExpirationDate, err = readTimePtr(d)
		case "amount":
			b.Amount, err = readDecimalPtr(d)
		case "amountType":
			if d.Next() == jx.Null {
				return d.Null()
			}
			b.AmountType, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return b, err
}

func (h *Handler) listOverlays(w http.ResponseWriter, r *http.Request) {
	overlays, err := h.catalog.ListSeasonOverlays(r.Context(), r.PathValue("seasonID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range overlays {
		encodeOverlay(&e, &overlays[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) setOverlay(w http.ResponseWriter, r *http.Request) {
	var body overlayBody
	err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		body, err = decodeOverlayBody(d)
		return err
	})
	if err == nil {
		err = h.validate.Struct(body)
	}
	if err != nil {
		fail(w, r, err)
		return
	}

	o := season.Overlay{
		Key:            r.PathValue("key"),
		SeasonID:       r.PathValue("seasonID"),
		DiscountID:     body.DiscountID,
		Active:         body.Active,
		StartDate:      body.StartDate,
		ExpirationDate: body.ExpirationDate,
		Amount:         body.Amount,
	}
	if body.AmountType != "" {
		t := discount.AmountType(body.AmountType)
		o.AmountType = &t
	}

	saved, err := h.catalog.SetSeasonOverlay(r.Context(), o)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOverlay(&e, saved)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) removeOverlay(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.RemoveSeasonOverlay(r.Context(), r.PathValue("seasonID"), r.PathValue("key"))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeOverlay(e *jx.Encoder, o *season.Overlay) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("key", func(e *jx.Encoder) { e.Str(o.Key) })
		e.Field("seasonId", func(e *jx.Encoder) { e.Str(o.SeasonID) })
		e.Field("discountId", func(e *jx.Encoder) { e.Str(o.DiscountID) })
		if o.Active != nil {
			e.Field("active", func(e *jx.Encoder) { e.Bool(*o.Active) })
		}
		if o.StartDate != nil {
			e.Field("startDate", func(e *jx.Encoder) { writeTime(e, *o.StartDate) })
		}
		if o.ExpirationDate != nil {
			e.Field("expirationDate", func(e *jx.Encoder) { writeTime(e, *o.ExpirationDate) })
		}
		if o.Amount != nil {
			e.Field("amount", func(e *jx.Encoder) { writeDecimal(e, *o.Amount) })
		}
		if o.AmountType != nil {
			e.Field("amountType", func(e *jx.Encoder) { e.Str(string(*o.AmountType)) })
		}
		e.Field("position", func(e *jx.Encoder) { e.Int64(o.Position) })
		if !o.CreatedAt.IsZero() {
			e.Field("createdAt", func(e *jx.Encoder) { writeTime(e, o.CreatedAt) })
		}
	})
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entity := audit.EntityType(q.Get("entityType"))
	switch entity {
	case audit.EntityDiscount, audit.EntitySeasonOverlay:
	default:
		fail(w, r, badRequest("entityType must be %q or %q", audit.EntityDiscount, audit.EntitySeasonOverlay))
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(w, r, badRequest("invalid limit %q", v))
			return
		}
		limit = n
	}

	entries, err := h.catalog.AuditTrail(r.Context(), entity, q.Get("entityId"), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, en := range entries {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(en.ID) })
			e.Field("action", func(e *jx.Encoder) { e.Str(string(en.Action)) })
			e.Field("entityType", func(e *jx.Encoder) { e.Str(string(en.EntityType)) })
			e.Field("entityId", func(e *jx.Encoder) { e.Str(en.EntityID) })
			e.Field("actor", func(e *jx.Encoder) { e.Str(en.Actor) })
			e.Field("createdAt", func(e *jx.Encoder) { writeTime(e, en.CreatedAt) })
			e.Field("before", func(e *jx.Encoder) { writeRaw(e, en.Before) })
			e.Field("after", func(e *jx.Encoder) { writeRaw(e, en.After) })
		})
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func writeRaw(e *jx.Encoder, raw []byte) {
	if len(raw) == 0 {
		e.Null()
		return
	}
	e.Raw(raw)
}
