package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/league-pricing/internal/domain/auth"
	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
	"github.com/xenking/league-pricing/internal/domain/program"
	"github.com/xenking/league-pricing/internal/domain/season"
	"github.com/xenking/league-pricing/internal/repository"
)

const (
	fallSeason   = "fall-2026"
	springSeason = "spring-2027"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or LEAGUE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LEAGUE_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("LEAGUE_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or LEAGUE_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LEAGUE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, apiKey, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, apiKey, pepper string) error {
	lg.Info("Connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	steps := []struct {
		name string
		fn   func(context.Context, *zap.Logger, *pgxpool.Pool) error
	}{
		{"seasons", seedSeasons},
		{"programs", seedPrograms},
		{"payment plans", seedPlans},
		{"discounts", seedDiscounts},
		{"overlays", seedOverlays},
	}
	for _, s := range steps {
		if err := s.fn(ctx, lg, pool); err != nil {
			return errors.Wrapf(err, "seed %s", s.name)
		}
	}
	return seedAPIKey(ctx, lg, repository.NewAPIKeyRepository(pool), apiKey, pepper)
}

func seedSeasons(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool) error {
	repo := repository.NewSeasonRepository(pool)
	seasons := []season.Season{
		{
			ID:   fallSeason,
			Name: "Fall 2026",
			GroupDiscounts: map[int]decimal.Decimal{
				2: decimal.NewFromInt(25),
				3: decimal.NewFromInt(50),
			},
			DiscountCodes: []season.LegacyCode{
				{Code: "EARLYBIRD", Type: discount.AmountFixed, Amount: decimal.NewFromInt(15), Active: true},
			},
		},
		{
			ID:   springSeason,
			Name: "Spring 2027",
			GroupDiscounts: map[int]decimal.Decimal{
				2: decimal.NewFromInt(20),
			},
		},
	}
	for i := range seasons {
		if err := repo.Upsert(ctx, &seasons[i]); err != nil {
			return errors.Wrapf(err, "upsert season %s", seasons[i].ID)
		}
		lg.Info("Upserted season", zap.String("id", seasons[i].ID))
	}
	return nil
}

func seedPrograms(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool) error {
	repo := repository.NewProgramRepository(pool)
	programs := []program.Program{
		{ID: "fall-u8-soccer", Name: "U8 Soccer", SeasonID: fallSeason, TemplateID: "soccer-rec", Price: decimal.NewFromInt(200)},
		{ID: "fall-u10-soccer", Name: "U10 Soccer", SeasonID: fallSeason, TemplateID: "soccer-rec", Price: decimal.NewFromInt(225)},
		{ID: "fall-u12-travel", Name: "U12 Travel Soccer", SeasonID: fallSeason, TemplateID: "soccer-travel", Price: decimal.NewFromInt(450)},
		{ID: "spring-u10-baseball", Name: "U10 Baseball", SeasonID: springSeason, TemplateID: "baseball-rec", Price: decimal.RequireFromString("180.50")},
		{ID: "camp-skills", Name: "Summer Skills Camp", TemplateID: "camp", Price: decimal.NewFromInt(120)},
	}
	for i := range programs {
		if err := repo.Upsert(ctx, &programs[i]); err != nil {
			return errors.Wrapf(err, "upsert program %s", programs[i].ID)
		}
		lg.Info("Upserted program", zap.String("id", programs[i].ID), zap.String("name", programs[i].Name))
	}
	return nil
}

func seedPlans(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool) error {
	repo := repository.NewPaymentPlanRepository(pool)
	plans := []plan.PaymentPlan{
		{
			ID:            "fall-monthly",
			Name:          "Fall monthly",
			Active:        true,
			InitialAmount: lo.ToPtr(decimal.NewFromInt(50)),
			Installments:  3,
			PaymentDay:    1,
			SeasonID:      fallSeason,
		},
		{
			ID:           "travel-split",
			Name:         "Travel two-pay",
			Active:       true,
			Installments: 2,
			PaymentDay:   15,
			ProgramIDs:   []string{"fall-u12-travel"},
		},
	}
	for i := range plans {
		if err := repo.Upsert(ctx, &plans[i]); err != nil {
			return errors.Wrapf(err, "upsert plan %s", plans[i].ID)
		}
		lg.Info("Upserted payment plan", zap.String("id", plans[i].ID))
	}
	return nil
}

func seedDiscounts(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool) error {
	repo := repository.NewDiscountRepository(pool)
	defs := []discount.Definition{
		{
			Code:        "WELCOME10",
			AmountType:  discount.AmountPercent,
			Amount:      decimal.NewFromInt(10),
			AppliesTo:   discount.ScopeCart,
			Active:      true,
			Description: "10% off your first registration",
		},
		{
			Code:                      "SOCCER20",
			AmountType:                discount.AmountFixed,
			Amount:                    decimal.NewFromInt(20),
			AppliesTo:                 discount.ScopeLineItem,
			Active:                    true,
			AllowedProgramTemplateIDs: []string{"soccer-rec", "soccer-travel"},
			Description:               "$20 off every soccer registration",
		},
		{
			Code:                      discount.SiblingCode,
			Active:                    true,
			TierAmounts:               []decimal.Decimal{decimal.NewFromInt(25), decimal.NewFromInt(35), decimal.NewFromInt(50)},
			MinRegistrationsPerFamily: 2,
			Description:               "Sibling discount",
		},
		{
			Code:        "COACHKID",
			AmountType:  discount.AmountPercent,
			Amount:      decimal.NewFromInt(100),
			Description: "Coach family waiver, enabled per season",
		},
	}
	for _, d := range defs {
		def := discount.Normalize(d)
		if err := repo.Upsert(ctx, &def); err != nil {
			return errors.Wrapf(err, "upsert discount %s", def.Code)
		}
		lg.Info("Upserted discount", zap.String("id", def.ID), zap.String("code", def.Code))
	}
	return nil
}

func seedOverlays(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool) error {
	repo := repository.NewSeasonRepository(pool)
	overlays := []season.Overlay{
		{Key: "sibling", SeasonID: fallSeason, DiscountID: discount.PreviewID(discount.SiblingCode)},
		{Key: "coach", SeasonID: fallSeason, DiscountID: "coachkid", Active: lo.ToPtr(true)},
		{
			Key:        "welcome",
			SeasonID:   springSeason,
			DiscountID: "welcome10",
			Amount:     lo.ToPtr(decimal.NewFromInt(15)),
		},
	}
	for i := range overlays {
		if err := repo.SetOverlay(ctx, &overlays[i]); err != nil {
			return errors.Wrapf(err, "set overlay %s/%s", overlays[i].SeasonID, overlays[i].Key)
		}
		lg.Info("Set overlay",
			zap.String("season_id", overlays[i].SeasonID),
			zap.String("key", overlays[i].Key),
			zap.Int64("position", overlays[i].Position),
		)
	}
	return nil
}

func seedAPIKey(ctx context.Context, lg *zap.Logger, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	info := &auth.APIKeyInfo{
		ID:      "default-admin",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := repo.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	lg.Info("Upserted API key", zap.String("id", info.ID), zap.String("name", info.Name))
	return nil
}
