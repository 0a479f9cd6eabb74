package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/league-pricing/internal/domain/pricing"
)

type checkoutBody struct {
	Items        []checkoutItemBody `json:"items" validate:"max=100,dive"`
	Code         string             `json:"code" validate:"max=64"`
	CodeSeasonID string             `json:"codeSeasonId" validate:"max=128"`
	PlanID       string             `json:"paymentPlanId" validate:"max=128"`
}

type checkoutItemBody struct {
	ID            string `json:"id" validate:"max=128"`
	ProgramID     string `json:"programId" validate:"required,max=128"`
	Quantity      int    `json:"quantity"`
	PaymentPlanID string `json:"paymentPlanId" validate:"max=128"`
	AthleteID     string `json:"athleteId" validate:"max=128"`
	AthleteName   string `json:"athleteName" validate:"max=256"`
}

func decodeCheckoutBody(d *jx.Decoder) (checkoutBody, error) {
	var b checkoutBody
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				item, err := decodeCheckoutItem(d)
				b.Items = append(b.Items, item)
				return err
			})
		case "code", "discountCode":
			b.Code, err = d.Str()
		case "codeSeasonId":
			b.CodeSeasonID, err = d.Str()
		case "paymentPlanId":
			b.PlanID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return b, err
}

func decodeCheckoutItem(d *jx.Decoder) (checkoutItemBody, error) {
	item := checkoutItemBody{Quantity: 1}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			item.ID, err = d.Str()
		case "programId":
			item.ProgramID, err = d.Str()
		case "quantity":
			item.Quantity, err = d.Int()
		case "paymentPlanId":
			item.PaymentPlanID, err = d.Str()
		case "athleteId":
			item.AthleteID, err = d.Str()
		case "athleteName":
			item.AthleteName, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}

func (b checkoutBody) request() pricing.CheckoutRequest {
	req := pricing.CheckoutRequest{
		Items:        make([]pricing.RequestItem, len(b.Items)),
		Code:         b.Code,
		CodeSeasonID: b.CodeSeasonID,
		PlanID:       b.PlanID,
	}
	for i, it := range b.Items {
		req.Items[i] = pricing.RequestItem(it)
	}
	return req
}

func (h *Handler) readCheckout(w http.ResponseWriter, r *http.Request) (pricing.CheckoutRequest, error) {
	var body checkoutBody
	err := decodeBody(w, r, func(d *jx.Decoder) (err error) {
		body, err = decodeCheckoutBody(d)
		return err
	})
	if err != nil {
		return pricing.CheckoutRequest{}, err
	}
	if err := h.validate.Struct(body); err != nil {
		return pricing.CheckoutRequest{}, err
	}
	return body.request(), nil
}

// quote prices a cart without persisting it.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	req, err := h.readCheckout(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	b, err := h.pricer.Quote(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	encodeBreakdown(&e, b)
	writeJSON(w, http.StatusOK, &e)
}

// submit prices, persists and returns the payload for the payment step.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req, err := h.readCheckout(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.pricer.Submit(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("checkoutId", func(e *jx.Encoder) { e.Str(res.Record.ID) })
		e.Field("createdAt", func(e *jx.Encoder) { writeTime(e, res.Record.CreatedAt) })
		e.Field("breakdown", func(e *jx.Encoder) { encodeBreakdown(e, &res.Breakdown) })
		e.Field("payload", func(e *jx.Encoder) { encodePayload(e, &res.Payload) })
	})
	w.Header().Set("Location", "/api/checkout/"+res.Record.ID)
	writeJSON(w, http.StatusCreated, &e)
}

func encodeBreakdown(e *jx.Encoder, b *pricing.Breakdown) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, it := range b.Items {
				encodeCartItem(e, it)
			}
			e.ArrEnd()
		})
		e.Field("subtotal", func(e *jx.Encoder) { writeDecimal(e, b.Subtotal) })
		e.Field("groupDiscount", func(e *jx.Encoder) { writeDecimal(e, b.GroupTotal) })
		e.Field("codeDiscount", func(e *jx.Encoder) { writeDecimal(e, b.CodeTotal) })
		e.Field("finalAmount", func(e *jx.Encoder) { writeDecimal(e, b.FinalAmount) })
		e.Field("groupSavings", func(e *jx.Encoder) {
			e.ArrStart()
			for _, s := range b.GroupSavings {
				e.Obj(func(e *jx.Encoder) {
					e.Field("seasonId", func(e *jx.Encoder) { e.Str(s.SeasonID) })
					e.Field("position", func(e *jx.Encoder) { e.Int(s.Position) })
					e.Field("itemId", func(e *jx.Encoder) { e.Str(s.ItemID) })
					e.Field("amount", func(e *jx.Encoder) { writeDecimal(e, s.Amount) })
				})
			}
			e.ArrEnd()
		})
		if b.AppliedCode != "" {
			e.Field("appliedCode", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("code", func(e *jx.Encoder) { e.Str(b.AppliedCode) })
					if b.CodeSeasonID != "" {
						e.Field("seasonId", func(e *jx.Encoder) { e.Str(b.CodeSeasonID) })
					}
					e.Field("applicable", func(e *jx.Encoder) { e.Bool(b.CodeApplicable) })
				})
			})
		}
		e.Field("paymentSchedule", func(e *jx.Encoder) { encodeSchedule(e, b.Schedule) })
	})
}

func encodeCartItem(e *jx.Encoder, it pricing.CartItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("programId", func(e *jx.Encoder) { e.Str(it.ProgramID) })
		e.Field("programName", func(e *jx.Encoder) { e.Str(it.ProgramName) })
		if it.SeasonID != "" {
			e.Field("seasonId", func(e *jx.Encoder) { e.Str(it.SeasonID) })
		}
		e.Field("price", func(e *jx.Encoder) { writeDecimal(e, it.Price) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { writeDecimal(e, it.Subtotal()) })
		if it.AthleteID != "" {
			e.Field("athleteId", func(e *jx.Encoder) { e.Str(it.AthleteID) })
		}
		if it.AthleteName != "" {
			e.Field("athleteName", func(e *jx.Encoder) { e.Str(it.AthleteName) })
		}
		if it.PaymentPlanID != "" {
			e.Field("paymentPlanId", func(e *jx.Encoder) { e.Str(it.PaymentPlanID) })
		}
	})
}

func encodeSchedule(e *jx.Encoder, s pricing.Schedule) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(string(s.Type)) })
		if s.PlanID != "" {
			e.Field("planId", func(e *jx.Encoder) { e.Str(s.PlanID) })
		}
		e.Field("initial", func(e *jx.Encoder) { writeDecimal(e, s.Initial) })
		e.Field("installments", func(e *jx.Encoder) {
			e.ArrStart()
			for _, in := range s.Installments {
				e.Obj(func(e *jx.Encoder) {
					e.Field("number", func(e *jx.Encoder) { e.Int(in.Number) })
					e.Field("amount", func(e *jx.Encoder) { writeDecimal(e, in.Amount) })
					e.Field("dueDay", func(e *jx.Encoder) { e.Int(in.DueDay) })
				})
			}
			e.ArrEnd()
		})
	})
}

func encodePayload(e *jx.Encoder, p *pricing.Payload) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("checkoutId", func(e *jx.Encoder) { e.Str(p.CheckoutID) })
		e.Field("amount", func(e *jx.Encoder) { e.Int64(p.Amount) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(p.Currency) })
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, it := range p.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("programId", func(e *jx.Encoder) { e.Str(it.ProgramID) })
					e.Field("programName", func(e *jx.Encoder) { e.Str(it.ProgramName) })
					e.Field("athleteId", func(e *jx.Encoder) { e.Str(it.AthleteID) })
					e.Field("price", func(e *jx.Encoder) { writeDecimal(e, it.Price) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				})
			}
			e.ArrEnd()
		})
		e.Field("discounts", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("group", func(e *jx.Encoder) { writeDecimal(e, p.Discounts.Group) })
				e.Field("code", func(e *jx.Encoder) { writeDecimal(e, p.Discounts.Code) })
			})
		})
		if p.AppliedCode != "" {
			e.Field("appliedCode", func(e *jx.Encoder) { e.Str(p.AppliedCode) })
		}
		e.Field("paymentSchedule", func(e *jx.Encoder) { encodeSchedule(e, p.PaymentSchedule) })
	})
}
