package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/season"
)

func TestMergeOverlay_ActivePrecedence(t *testing.T) {
	global := discount.Normalize(discount.Definition{Code: "FALL", Amount: d("20"), Active: false})

	merged := MergeOverlay(global, season.Overlay{SeasonID: "s1", Active: boolPtr(true)})

	assert.True(t, merged.Active)
	assert.Equal(t, "s1", merged.SeasonID)
	assert.False(t, global.Active, "global definition must not change")
}

func TestMergeOverlay_AmountOverride(t *testing.T) {
	global := discount.Normalize(discount.Definition{Code: "FALL", Amount: d("20"), Active: true})
	percent := discount.AmountPercent

	merged := MergeOverlay(global, season.Overlay{Amount: dp("15"), AmountType: &percent})

	assertDecimal(t, "15", merged.Amount)
	assert.Equal(t, discount.AmountPercent, merged.AmountType)
}

func TestMergeOverlay_SiblingStaysNormalized(t *testing.T) {
	global := discount.Normalize(discount.Definition{Code: "SIBLING", Active: true})
	percent := discount.AmountPercent

	merged := MergeOverlay(global, season.Overlay{Amount: dp("50"), AmountType: &percent})

	assert.True(t, merged.PerAdditional())
	assert.Equal(t, discount.AmountFixed, merged.AmountType)
	assert.Equal(t, discount.ScopeLineItem, merged.AppliesTo)
	assert.True(t, merged.Amount.IsZero())
	assert.NotEmpty(t, merged.TierAmounts)
}

func TestEffectiveDiscounts(t *testing.T) {
	past := testNow.Add(-48 * time.Hour)
	future := testNow.Add(48 * time.Hour)

	catalog := map[string]discount.Definition{
		"fall":     discount.Normalize(discount.Definition{Code: "FALL", Amount: d("10"), Active: true}),
		"early":    discount.Normalize(discount.Definition{Code: "EARLY", Amount: d("5"), Active: true}),
		"inactive": discount.Normalize(discount.Definition{Code: "INACTIVE", Amount: d("5"), Active: false}),
		"later":    discount.Normalize(discount.Definition{Code: "LATER", Amount: d("5"), Active: true}),
		"revived":  discount.Normalize(discount.Definition{Code: "REVIVED", Amount: d("5"), Active: false}),
	}
	overlays := []season.Overlay{
		{Key: "fall", DiscountID: "fall"},
		{Key: "early", DiscountID: "early", Active: boolPtr(true), ExpirationDate: &past},
		{Key: "ghost", DiscountID: "missing"},
		{Key: "inactive", DiscountID: "inactive"},
		{Key: "later", DiscountID: "later", StartDate: &future},
		{Key: "revived", DiscountID: "revived", Active: boolPtr(true), StartDate: &past, ExpirationDate: &future},
	}

	got := EffectiveDiscounts("s1", overlays, catalog, testNow)

	require.Len(t, got, 2)
	assert.Equal(t, "FALL", got[0].Code)
	assert.Equal(t, "REVIVED", got[1].Code)
	for _, def := range got {
		assert.Equal(t, "s1", def.SeasonID)
	}
}

func TestEffectiveDiscounts_ExpiredExcludedRegardlessOfActive(t *testing.T) {
	past := testNow.Add(-time.Minute)
	catalog := map[string]discount.Definition{
		"fall": discount.Normalize(discount.Definition{Code: "FALL", Amount: d("10"), Active: true}),
	}
	overlays := []season.Overlay{{Key: "fall", DiscountID: "fall", Active: boolPtr(true), ExpirationDate: &past}}

	assert.Empty(t, EffectiveDiscounts("s1", overlays, catalog, testNow))
}

func newTestResolver(seasons *mockSeasonRepo, discounts *mockDiscountRepo) *Resolver {
	return NewResolver(seasons, discounts, Options{
		Now:          fixedClock,
		FetchTimeout: time.Second,
		Concurrency:  2,
	})
}

func TestResolver_ResolveEffective(t *testing.T) {
	discounts := newDiscountRepo(
		discount.Definition{Code: "FALL", Amount: d("10"), Active: true},
		discount.Definition{Code: "SAVE10", AmountType: discount.AmountPercent, Amount: d("10"), Active: false},
		discount.Definition{Code: "WINTER", Amount: d("10"), Active: true},
	)
	seasons := &mockSeasonRepo{
		overlays: map[string][]season.Overlay{
			"s1": {
				{Key: "save10", DiscountID: "save10", Active: boolPtr(true)},
				{Key: "gone", DiscountID: "gone"},
				{Key: "fall", DiscountID: "fall"},
			},
		},
	}

	got := newTestResolver(seasons, discounts).ResolveEffective(context.Background(), "s1")

	require.Len(t, got, 2)
	assert.Equal(t, "SAVE10", got[0].Code, "overlay order is kept")
	assert.Equal(t, "FALL", got[1].Code)
}

func TestResolver_ResolveEffective_UnknownSeason(t *testing.T) {
	r := newTestResolver(&mockSeasonRepo{}, newDiscountRepo())

	got := r.ResolveEffective(context.Background(), "nope")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolver_ResolveEffective_DegradesOnStorageError(t *testing.T) {
	t.Run("overlays", func(t *testing.T) {
		seasons := &mockSeasonRepo{overlaysErr: errors.New("connection refused")}
		got := newTestResolver(seasons, newDiscountRepo()).ResolveEffective(context.Background(), "s1")
		assert.Empty(t, got)
	})

	t.Run("definitions", func(t *testing.T) {
		discounts := newDiscountRepo(discount.Definition{Code: "FALL", Amount: d("10"), Active: true})
		discounts.getErr = errors.New("timeout")
		seasons := &mockSeasonRepo{
			overlays: map[string][]season.Overlay{"s1": {{Key: "fall", DiscountID: "fall"}}},
		}
		got := newTestResolver(seasons, discounts).ResolveEffective(context.Background(), "s1")
		assert.Empty(t, got)
	})
}

func TestResolver_FindByCode(t *testing.T) {
	discounts := newDiscountRepo(
		discount.Definition{Code: "GLOBAL5", Amount: d("5"), Active: true},
		discount.Definition{Code: "OFF", Amount: d("5"), Active: false},
		discount.Definition{Code: "FALL", Amount: d("10"), Active: true},
	)
	seasons := &mockSeasonRepo{
		seasons: map[string]*season.Season{
			"s1": {
				ID: "s1",
				DiscountCodes: []season.LegacyCode{
					{Code: "legacy", Type: discount.AmountFixed, Amount: d("7"), Active: true},
					{Code: "dead", Type: discount.AmountFixed, Amount: d("7"), Active: false},
				},
			},
		},
		overlays: map[string][]season.Overlay{
			"s1": {{Key: "fall", DiscountID: "fall", Amount: dp("12")}},
		},
	}
	r := newTestResolver(seasons, discounts)
	ctx := context.Background()

	t.Run("blank code does not touch storage", func(t *testing.T) {
		before := discounts.calls
		def, err := r.FindByCode(ctx, "   ", "s1")
		require.NoError(t, err)
		assert.Nil(t, def)
		assert.Equal(t, before, discounts.calls)
	})

	t.Run("season effective set wins", func(t *testing.T) {
		def, err := r.FindByCode(ctx, " fall ", "s1")
		require.NoError(t, err)
		require.NotNil(t, def)
		assertDecimal(t, "12", def.Amount)
		assert.Equal(t, "s1", def.SeasonID)
	})

	t.Run("season legacy code", func(t *testing.T) {
		def, err := r.FindByCode(ctx, "LEGACY", "s1")
		require.NoError(t, err)
		require.NotNil(t, def)
		assertDecimal(t, "7", def.Amount)
		assert.Equal(t, "s1", def.SeasonID)
	})

	t.Run("inactive legacy code", func(t *testing.T) {
		def, err := r.FindByCode(ctx, "dead", "s1")
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("global code is not found within a season", func(t *testing.T) {
		def, err := r.FindByCode(ctx, "GLOBAL5", "s1")
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("global catalog", func(t *testing.T) {
		def, err := r.FindByCode(ctx, "global5", "")
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, "GLOBAL5", def.Code)
		assert.Empty(t, def.SeasonID)
	})

	t.Run("inactive global", func(t *testing.T) {
		def, err := r.FindByCode(ctx, "OFF", "")
		require.NoError(t, err)
		assert.Nil(t, def)
	})
}

func TestResolver_FindByCode_GlobalCatalogError(t *testing.T) {
	discounts := newDiscountRepo()
	discounts.listErr = errors.New("boom")
	r := newTestResolver(&mockSeasonRepo{}, discounts)

	_, err := r.FindByCode(context.Background(), "X", "")

	var lErr *LoadError
	require.ErrorAs(t, err, &lErr)
	assert.Equal(t, "discount catalog", lErr.Entity)
}
