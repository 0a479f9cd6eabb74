package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/league-pricing/internal/domain/audit"
	"github.com/xenking/league-pricing/internal/domain/auth"
	"github.com/xenking/league-pricing/internal/domain/catalog"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/pricing"
	"github.com/xenking/league-pricing/internal/domain/season"
)

var testPepper = []byte("pepper")

type fakePricer struct {
	got       pricing.CheckoutRequest
	breakdown *pricing.Breakdown
	result    *pricing.SubmitResult
	err       error
}

func (f *fakePricer) Quote(_ context.Context, req pricing.CheckoutRequest) (*pricing.Breakdown, error) {
	f.got = req
	return f.breakdown, f.err
}

func (f *fakePricer) Submit(_ context.Context, req pricing.CheckoutRequest) (*pricing.SubmitResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeResolver struct {
	effective []discount.Definition
	found     *discount.Definition
	err       error
	gotCode   string
	gotSeason string
}

func (f *fakeResolver) ResolveEffective(_ context.Context, seasonID string) []discount.Definition {
	f.gotSeason = seasonID
	return f.effective
}

func (f *fakeResolver) FindByCode(_ context.Context, code, seasonID string) (*discount.Definition, error) {
	f.gotCode, f.gotSeason = code, seasonID
	return f.found, f.err
}

type fakeCatalog struct {
	defs     []discount.Definition
	created  discount.Definition
	overlay  season.Overlay
	actor    string
	auditGot audit.EntityType
	err      error
}

func (f *fakeCatalog) ListDiscounts(context.Context) ([]discount.Definition, error) {
	return f.defs, f.err
}

func (f *fakeCatalog) GetDiscount(_ context.Context, id string) (*discount.Definition, error) {
	for i := range f.defs {
		if f.defs[i].ID == id {
			return &f.defs[i], nil
		}
	}
	return nil, discount.ErrNotFound
}

func (f *fakeCatalog) CreateDiscount(ctx context.Context, in discount.Definition) (*discount.Definition, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.actor = auth.Actor(ctx)
	f.created = in
	out := discount.Normalize(in)
	out.ID = discount.PreviewID(out.Code)
	return &out, nil
}

func (f *fakeCatalog) UpdateDiscount(_ context.Context, id string, in discount.Definition) (*discount.Definition, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := discount.Normalize(in)
	out.ID = id
	return &out, nil
}

func (f *fakeCatalog) DeleteDiscount(context.Context, string) error { return f.err }

func (f *fakeCatalog) ListSeasonOverlays(context.Context, string) ([]season.Overlay, error) {
	return []season.Overlay{f.overlay}, f.err
}

func (f *fakeCatalog) SetSeasonOverlay(_ context.Context, o season.Overlay) (*season.Overlay, error) {
	if f.err != nil {
		return nil, f.err
	}
	o.Position = 7
	f.overlay = o
	return &o, nil
}

func (f *fakeCatalog) RemoveSeasonOverlay(context.Context, string, string) error { return f.err }

func (f *fakeCatalog) AuditTrail(_ context.Context, entity audit.EntityType, _ string, _ int) ([]audit.Entry, error) {
	f.auditGot = entity
	return []audit.Entry{{
		ID:         "01J00000000000000000000000",
		Action:     audit.ActionDelete,
		EntityType: entity,
		EntityID:   "fall10",
		Before:     json.RawMessage(`{"Code":"FALL10"}`),
		Actor:      "ops",
		CreatedAt:  time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}}, nil
}

type fakeKeys map[string]*auth.APIKeyInfo

func (f fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if info, ok := f[hash]; ok {
		return info, nil
	}
	return nil, auth.ErrUnauthorized
}

type fixture struct {
	pricer   *fakePricer
	resolver *fakeResolver
	catalog  *fakeCatalog
	mux      *http.ServeMux
}

func newFixture() *fixture {
	f := &fixture{
		pricer:   &fakePricer{},
		resolver: &fakeResolver{},
		catalog:  &fakeCatalog{},
		mux:      http.NewServeMux(),
	}
	keys := fakeKeys{}
	for _, info := range []*auth.APIKeyInfo{
		{ID: "admin", Name: "ops", Scopes: []string{auth.ScopeAdmin}},
		{ID: "reader", Name: "reports", Scopes: []string{"read"}},
	} {
		info.KeyHash = auth.HashKey(testPepper, info.ID+"-secret")
		keys[info.KeyHash] = info
	}
	sec := NewSecurityHandler(keys, testPepper)
	NewHandler(f.pricer, f.resolver, f.catalog).Register(f.mux, sec.Require(auth.ScopeAdmin))
	return f
}

func (f *fixture) do(method, target, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, contains string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.EqualValues(t, status, body["code"])
	assert.Contains(t, body["message"], contains)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleBreakdown() *pricing.Breakdown {
	return &pricing.Breakdown{
		Items: []pricing.CartItem{
			{ID: "item-1", ProgramID: "u10", ProgramName: "U10 Soccer", SeasonID: "fall", Price: dec("100"), Quantity: 1},
			{ID: "item-2", ProgramID: "u12", ProgramName: "U12 Soccer", SeasonID: "fall", Price: dec("150"), Quantity: 1},
		},
		Subtotal:       dec("250"),
		GroupTotal:     dec("10"),
		CodeTotal:      dec("24"),
		FinalAmount:    dec("216"),
		GroupSavings:   []pricing.GroupSaving{{SeasonID: "fall", Position: 2, ItemID: "item-2", Amount: dec("10")}},
		AppliedCode:    "FALL10",
		CodeSeasonID:   "fall",
		CodeApplicable: true,
		Schedule: pricing.Schedule{
			Type:    pricing.SchedulePlan,
			PlanID:  "three-pay",
			Initial: dec("72"),
			Installments: []pricing.Installment{
				{Number: 1, Amount: dec("72"), DueDay: 15},
				{Number: 2, Amount: dec("72"), DueDay: 15},
			},
		},
	}
}

func TestQuote(t *testing.T) {
	f := newFixture()
	f.pricer.breakdown = sampleBreakdown()

	w := f.do(http.MethodPost, "/api/checkout/quote", `{
		"items": [
			{"programId": "u10", "athleteId": "a1"},
			{"id": "x", "programId": "u12", "quantity": 2, "unknown": true}
		],
		"code": "fall10",
		"paymentPlanId": "three-pay"
	}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, f.pricer.got.Items, 2)
	assert.Equal(t, 1, f.pricer.got.Items[0].Quantity)
	assert.Equal(t, "a1", f.pricer.got.Items[0].AthleteID)
	assert.Equal(t, 2, f.pricer.got.Items[1].Quantity)
	assert.Equal(t, "x", f.pricer.got.Items[1].ID)
	assert.Equal(t, "fall10", f.pricer.got.Code)
	assert.Equal(t, "three-pay", f.pricer.got.PlanID)

	body := decodeJSON(t, w)
	assert.EqualValues(t, 250, body["subtotal"])
	assert.EqualValues(t, 10, body["groupDiscount"])
	assert.EqualValues(t, 24, body["codeDiscount"])
	assert.EqualValues(t, 216, body["finalAmount"])
	assert.Equal(t, map[string]any{"code": "FALL10", "seasonId": "fall", "applicable": true}, body["appliedCode"])

	sched := body["paymentSchedule"].(map[string]any)
	assert.Equal(t, "plan", sched["type"])
	assert.EqualValues(t, 72, sched["initial"])
	assert.Len(t, sched["installments"], 2)
	assert.Len(t, body["groupSavings"], 1)
}

func TestQuote_RawAmountsKeepCents(t *testing.T) {
	f := newFixture()
	b := sampleBreakdown()
	b.FinalAmount = dec("216.5")
	f.pricer.breakdown = b

	w := f.do(http.MethodPost, "/api/checkout/quote", `{"items":[{"programId":"u10"}]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"finalAmount":216.50`)
}

func TestQuote_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "Empty", body: ``, contains: "request body required"},
		{name: "NotObject", body: `[1,2]`, contains: "JSON object"},
		{name: "Malformed", body: `{"items": [`, contains: "invalid JSON"},
		{name: "WrongType", body: `{"items": [{"programId": 5}]}`, contains: "invalid JSON"},
		{name: "MissingProgram", body: `{"items": [{"quantity": 1}]}`, contains: "items[0].programId: required"},
		{name: "LongCode", body: `{"items": [{"programId": "u10"}], "code": "` + strings.Repeat("x", 65) + `"}`, contains: "code: max=64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(http.MethodPost, "/api/checkout/quote", tt.body, "")
			assertError(t, w, http.StatusBadRequest, tt.contains)
		})
	}
}

func TestQuote_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "EmptyItems", err: pricing.ErrEmptyItems, status: http.StatusBadRequest},
		{name: "Quantity", err: &pricing.InvalidQuantityError{ProgramID: "u10"}, status: http.StatusUnprocessableEntity},
		{name: "Program", err: &pricing.ProgramNotFoundError{ProgramID: "nope"}, status: http.StatusUnprocessableEntity},
		{name: "Code", err: pricing.ErrCodeNotFound, status: http.StatusUnprocessableEntity},
		{name: "Plan", err: errors.Wrap(pricing.ErrPlanNotApplicable, "load"), status: http.StatusUnprocessableEntity},
		{name: "Storage", err: &pricing.LoadError{Entity: "programs", Err: errors.New("conn reset")}, status: http.StatusServiceUnavailable},
		{name: "Unknown", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.pricer.err = tt.err
			w := f.do(http.MethodPost, "/api/checkout/quote", `{"items":[{"programId":"u10"}]}`, "")
			assert.Equal(t, tt.status, w.Code)
			body := decodeJSON(t, w)
			assert.NotContains(t, body["message"], "conn reset")
		})
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture()
	b := sampleBreakdown()
	created := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	f.pricer.result = &pricing.SubmitResult{
		Record:    &pricing.CheckoutRecord{ID: "chk-1", CreatedAt: created},
		Breakdown: *b,
		Payload:   pricing.BuildPayload("chk-1", "usd", *b),
	}

	w := f.do(http.MethodPost, "/api/checkout", `{"items":[{"programId":"u10"},{"programId":"u12"}],"code":"FALL10"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/api/checkout/chk-1", w.Header().Get("Location"))

	body := decodeJSON(t, w)
	assert.Equal(t, "chk-1", body["checkoutId"])
	assert.Equal(t, "2024-09-01T12:00:00Z", body["createdAt"])

	payload := body["payload"].(map[string]any)
	assert.EqualValues(t, 7200, payload["amount"])
	assert.Equal(t, "usd", payload["currency"])
	assert.Equal(t, "FALL10", payload["appliedCode"])
	assert.Equal(t, map[string]any{"group": 10.0, "code": 24.0}, payload["discounts"])
	assert.Len(t, payload["items"], 2)
}

func TestSeasonDiscounts(t *testing.T) {
	f := newFixture()
	f.resolver.effective = []discount.Definition{
		discount.Normalize(discount.Definition{Code: "fall10", AmountType: discount.AmountPercent, Amount: dec("10"), Active: true, SeasonID: "fall"}),
		discount.Normalize(discount.Definition{Code: "sibling", Active: true}),
	}

	w := f.do(http.MethodGet, "/api/seasons/fall/discounts", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fall", f.resolver.gotSeason)

	body := decodeJSON(t, w)
	defs := body["discounts"].([]any)
	require.Len(t, defs, 2)
	first := defs[0].(map[string]any)
	assert.Equal(t, "FALL10", first["code"])
	assert.Equal(t, "percent", first["amountType"])
	assert.NotContains(t, first, "tierAmounts")
	second := defs[1].(map[string]any)
	assert.Equal(t, "per_additional", second["kind"])
	assert.Equal(t, []any{10.0, 10.0, 10.0}, second["tierAmounts"])
}

func TestLookupDiscount(t *testing.T) {
	t.Run("MissingCode", func(t *testing.T) {
		w := newFixture().do(http.MethodGet, "/api/discounts/lookup", "", "")
		assertError(t, w, http.StatusBadRequest, "code query parameter required")
	})

	t.Run("NotFound", func(t *testing.T) {
		w := newFixture().do(http.MethodGet, "/api/discounts/lookup?code=NOPE", "", "")
		assertError(t, w, http.StatusNotFound, "discount code not found")
	})

	t.Run("Found", func(t *testing.T) {
		f := newFixture()
		def := discount.Normalize(discount.Definition{Code: "FALL10", Amount: dec("10"), Active: true})
		f.resolver.found = &def

		w := f.do(http.MethodGet, "/api/discounts/lookup?code=fall10&seasonId=fall", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fall10", f.resolver.gotCode)
		assert.Equal(t, "fall", f.resolver.gotSeason)
		assert.Equal(t, "FALL10", decodeJSON(t, w)["code"])
	})

	t.Run("CatalogUnavailable", func(t *testing.T) {
		f := newFixture()
		f.resolver.err = &pricing.LoadError{Entity: "discount catalog", Err: errors.New("down")}
		w := f.do(http.MethodGet, "/api/discounts/lookup?code=FALL10", "", "")
		assertError(t, w, http.StatusServiceUnavailable, "temporarily unavailable")
	})
}

func TestAdminAuth(t *testing.T) {
	f := newFixture()

	assertError(t, f.do(http.MethodGet, "/api/admin/discounts", "", ""), http.StatusUnauthorized, "unauthorized")
	assertError(t, f.do(http.MethodGet, "/api/admin/discounts", "", "wrong"), http.StatusUnauthorized, "unauthorized")
	assertError(t, f.do(http.MethodGet, "/api/admin/discounts", "", "reader-secret"), http.StatusForbidden, "forbidden")

	w := f.do(http.MethodGet, "/api/admin/discounts", "", "admin-secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/discounts", nil)
	req.Header.Set("api_key", "admin-secret")
	w = httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateDiscount(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFixture()
		w := f.do(http.MethodPost, "/api/admin/discounts", `{
			"code": " early bird ",
			"amountType": "percent",
			"amount": 15,
			"allowedProgramTemplateIds": ["tpl-soccer"],
			"minRegistrationsPerFamily": 2
		}`, "admin-secret")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		assert.Equal(t, "ops", f.catalog.actor)
		assert.True(t, f.catalog.created.Active)
		assert.True(t, f.catalog.created.Amount.Equal(dec("15")))
		assert.Equal(t, []string{"tpl-soccer"}, f.catalog.created.AllowedProgramTemplateIDs)

		body := decodeJSON(t, w)
		assert.Equal(t, "EARLY BIRD", body["code"])
		assert.Equal(t, "early-bird", body["id"])
		assert.EqualValues(t, 2, body["minRegistrationsPerFamily"])
		assert.Equal(t, "/api/admin/discounts/early-bird", w.Header().Get("Location"))
	})

	t.Run("Inactive", func(t *testing.T) {
		f := newFixture()
		w := f.do(http.MethodPost, "/api/admin/discounts", `{"code":"X","amount":"5.25","active":false}`, "admin-secret")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.False(t, f.catalog.created.Active)
		assert.True(t, f.catalog.created.Amount.Equal(dec("5.25")))
	})

	invalid := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "MissingCode", body: `{"amount": 5}`, contains: "code: required"},
		{name: "BadType", body: `{"code": "X", "amountType": "bogus"}`, contains: "amountType: oneof"},
		{name: "Negative", body: `{"code": "X", "amount": -1}`, contains: "amount: gte"},
		{name: "PercentOver100", body: `{"code": "X", "amountType": "percent", "amount": 120}`, contains: "amount: max_percent"},
		{name: "NegativeTier", body: `{"code": "SIBLING", "tierAmounts": [10, -5]}`, contains: "tierAmounts[1]: gte"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			w := newFixture().do(http.MethodPost, "/api/admin/discounts", tt.body, "admin-secret")
			assertError(t, w, http.StatusBadRequest, tt.contains)
		})
	}

	t.Run("Unsluggable", func(t *testing.T) {
		f := newFixture()
		f.catalog.err = catalog.ErrCodeUnsluggable
		w := f.do(http.MethodPost, "/api/admin/discounts", `{"code":"!!!"}`, "admin-secret")
		assertError(t, w, http.StatusBadRequest, "discount code must contain a letter or digit")
	})

	t.Run("Conflict", func(t *testing.T) {
		f := newFixture()
		f.catalog.err = &discount.ConflictError{Reason: discount.ConflictDuplicateCode, Code: "X", ID: "x"}
		w := f.do(http.MethodPost, "/api/admin/discounts", `{"code":"X"}`, "admin-secret")
		assertError(t, w, http.StatusConflict, `discount code "X" already exists`)
	})
}

func TestDiscountByID(t *testing.T) {
	f := newFixture()
	f.catalog.defs = []discount.Definition{discount.Normalize(discount.Definition{Code: "FALL10", Amount: dec("10"), Active: true})}

	w := f.do(http.MethodGet, "/api/admin/discounts/fall10", "", "admin-secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FALL10", decodeJSON(t, w)["code"])

	w = f.do(http.MethodGet, "/api/admin/discounts/missing", "", "admin-secret")
	assertError(t, w, http.StatusNotFound, "discount not found")

	w = f.do(http.MethodPut, "/api/admin/discounts/fall10", `{"code":"FALL15","amount":15}`, "admin-secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.Equal(t, "fall10", body["id"])
	assert.Equal(t, "FALL15", body["code"])

	w = f.do(http.MethodDelete, "/api/admin/discounts/fall10", "", "admin-secret")
	assert.Equal(t, http.StatusNoContent, w.Code)

	f.catalog.err = discount.ErrNotFound
	w = f.do(http.MethodDelete, "/api/admin/discounts/fall10", "", "admin-secret")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewDiscountID(t *testing.T) {
	f := newFixture()
	f.catalog.defs = []discount.Definition{discount.Normalize(discount.Definition{Code: "EARLY BIRD", Active: true})}

	w := f.do(http.MethodGet, "/api/admin/discounts/preview-id?code=early%20bird", "", "admin-secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"EARLY BIRD","id":"early-bird","duplicateCode":true,"duplicateId":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/admin/discounts/preview-id?code=early%20bird&excludeId=early-bird", "", "admin-secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"EARLY BIRD","id":"early-bird","duplicateCode":false,"duplicateId":false}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/admin/discounts/preview-id?code=%20", "", "admin-secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/admin/discounts/preview-id?code=%21%21%21", "", "admin-secret")
	assertError(t, w, http.StatusBadRequest, "must contain a letter or digit")

	w = f.do(http.MethodGet, "/api/admin/discounts/preview-id?code=%C3%A9t%C3%A9", "", "admin-secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"ÉTÉ","id":"été","duplicateCode":false,"duplicateId":false}`, w.Body.String())
}

func TestSetOverlay(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPut, "/api/admin/seasons/fall/overlays/early", `{
		"discountId": "early-bird",
		"active": null,
		"startDate": "2024-08-01",
		"expirationDate": "2024-09-15T23:59:59Z",
		"amount": 20,
		"amountType": "fixed"
	}`, "admin-secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	o := f.catalog.overlay
	assert.Equal(t, "fall", o.SeasonID)
	assert.Equal(t, "early", o.Key)
	assert.Nil(t, o.Active)
	require.NotNil(t, o.StartDate)
	assert.Equal(t, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC), *o.StartDate)
	require.NotNil(t, o.AmountType)
	assert.Equal(t, discount.AmountFixed, *o.AmountType)

	body := decodeJSON(t, w)
	assert.EqualValues(t, 7, body["position"])
	assert.Equal(t, "2024-09-15T23:59:59Z", body["expirationDate"])
	assert.NotContains(t, body, "active")

	t.Run("InvalidDate", func(t *testing.T) {
		w := newFixture().do(http.MethodPut, "/api/admin/seasons/fall/overlays/early",
			`{"discountId":"x","startDate":"next week"}`, "admin-secret")
		assertError(t, w, http.StatusBadRequest, "invalid timestamp")
	})

	t.Run("PercentOver100", func(t *testing.T) {
		f := newFixture()
		w := f.do(http.MethodPut, "/api/admin/seasons/fall/overlays/early",
			`{"discountId":"x","amountType":"percent","amount":150}`, "admin-secret")
		assertError(t, w, http.StatusBadRequest, "amount: max_percent=100")
		assert.Empty(t, f.catalog.overlay.SeasonID)
	})

	t.Run("FixedOver100", func(t *testing.T) {
		w := newFixture().do(http.MethodPut, "/api/admin/seasons/fall/overlays/early",
			`{"discountId":"x","amountType":"fixed","amount":150}`, "admin-secret")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		f := newFixture()
		f.catalog.err = catalog.ErrInvalidWindow
		w := f.do(http.MethodPut, "/api/admin/seasons/fall/overlays/early", `{"discountId":"x"}`, "admin-secret")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("UnknownSeason", func(t *testing.T) {
		f := newFixture()
		f.catalog.err = season.ErrNotFound
		w := f.do(http.MethodPut, "/api/admin/seasons/nope/overlays/early", `{"discountId":"x"}`, "admin-secret")
		assertError(t, w, http.StatusNotFound, "season not found")
	})
}

func TestRemoveOverlay(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/admin/seasons/fall/overlays/early", "", "admin-secret").Code)

	f.catalog.err = season.ErrOverlayNotFound
	w := f.do(http.MethodDelete, "/api/admin/seasons/fall/overlays/early", "", "admin-secret")
	assertError(t, w, http.StatusNotFound, "season overlay not found")
}

func TestAuditTrail(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/admin/audit?entityType=discount&entityId=fall10", "", "admin-secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, audit.EntityDiscount, f.catalog.auditGot)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0]["action"])
	assert.Equal(t, map[string]any{"Code": "FALL10"}, entries[0]["before"])
	assert.Nil(t, entries[0]["after"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/audit?entityType=program", "", "admin-secret").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/admin/audit?entityType=discount&limit=x", "", "admin-secret").Code)
}
