package pricing

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
	"github.com/xenking/league-pricing/internal/domain/program"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// RequestItem is a cart line as submitted by a client. Prices are never taken
// from the client; they come from the program record.
type RequestItem struct {
	ID            string
	ProgramID     string
	Quantity      int
	PaymentPlanID string
	AthleteID     string
	AthleteName   string
}

// CheckoutRequest holds the input for pricing or submitting a cart.
type CheckoutRequest struct {
	Items []RequestItem
	Code  string
	// CodeSeasonID pins code lookup to one season. It is the only way a code
	// from a season with nothing in the cart is reported as not applicable.
	CodeSeasonID string
	// PlanID selects a payment plan. When empty the first item's plan is used.
	PlanID string
}

// SubmitResult holds the output of a submitted checkout.
type SubmitResult struct {
	Record    *CheckoutRecord
	Breakdown Breakdown
	Payload   Payload
}

// Service loads the data a checkout references and prices it.
type Service struct {
	programs  program.Repository
	seasons   season.Reader
	plans     plan.Repository
	checkouts CheckoutRepository
	resolver  *Resolver
	tracer    trace.Tracer
	opts      Options
}

// NewService creates a checkout Service.
func NewService(
	programs program.Repository,
	seasons season.Reader,
	plans plan.Repository,
	checkouts CheckoutRepository,
	resolver *Resolver,
	opts Options,
) *Service {
	opts.setDefaults()
	return &Service{
		programs:  programs,
		seasons:   seasons,
		plans:     plans,
		checkouts: checkouts,
		resolver:  resolver,
		tracer:    opts.TracerProvider.Tracer("github.com/xenking/league-pricing/internal/domain/pricing"),
		opts:      opts,
	}
}

// Quote prices a cart without persisting anything.
func (s *Service) Quote(ctx context.Context, req CheckoutRequest) (_ *Breakdown, rerr error) {
	ctx, span := s.tracer.Start(ctx, "pricing.Quote")
	defer func() { endSpan(span, rerr) }()

	in, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	b := Compute(*in)
	span.SetAttributes(attribute.String("checkout.final_amount", b.FinalAmount.String()))
	return &b, nil
}

// Submit prices a cart, persists it and builds the payment payload.
func (s *Service) Submit(ctx context.Context, req CheckoutRequest) (_ *SubmitResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "pricing.Submit")
	defer func() { endSpan(span, rerr) }()

	in, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	b := Compute(*in)

	rec := &CheckoutRecord{
		ID:          uuid.New().String(),
		Items:       b.Items,
		Subtotal:    b.Subtotal,
		GroupTotal:  b.GroupTotal,
		CodeTotal:   b.CodeTotal,
		FinalAmount: b.FinalAmount,
		Currency:    s.opts.Currency,
		Schedule:    b.Schedule,
		CreatedAt:   s.opts.Now().UTC(),
	}
	if b.CodeApplicable {
		rec.AppliedCode = b.AppliedCode
	}
	if err := s.checkouts.Create(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "create checkout")
	}
	span.SetAttributes(attribute.String("checkout.id", rec.ID))

	return &SubmitResult{
		Record:    rec,
		Breakdown: b,
		Payload:   BuildPayload(rec.ID, s.opts.Currency, b),
	}, nil
}

// seasonData is everything loaded for one season.
type seasonData struct {
	record    *season.Season
	effective []discount.Definition
}

func (s *Service) load(ctx context.Context, req CheckoutRequest) (*ComputeInput, error) {
	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	seasonIDs := SeasonOrder(items)
	fetchIDs := seasonIDs
	if req.CodeSeasonID != "" && !slices.Contains(fetchIDs, req.CodeSeasonID) {
		fetchIDs = append(slices.Clone(fetchIDs), req.CodeSeasonID)
	}
	seasons, err := s.loadSeasons(ctx, fetchIDs)
	if err != nil {
		return nil, err
	}

	schedules := make(map[string]GroupSchedule, len(seasonIDs))
	for _, id := range seasonIDs {
		if sd := seasons[id]; sd.record != nil {
			schedules[id] = SeasonSchedule(sd.record)
		}
	}

	code, err := s.resolveCode(ctx, req, seasonIDs, seasons)
	if err != nil {
		return nil, err
	}

	p, err := s.loadPlan(ctx, req, items)
	if err != nil {
		return nil, err
	}

	return &ComputeInput{
		Items:          items,
		GroupSchedules: schedules,
		Code:           code,
		Plan:           p,
	}, nil
}

// priceItems validates the request lines and prices them from program records
// fetched in a single batch.
func (s *Service) priceItems(ctx context.Context, reqItems []RequestItem) ([]CartItem, error) {
	if len(reqItems) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range reqItems {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProgramID: it.ProgramID}
		}
	}

	ids := lo.Uniq(lo.Map(reqItems, func(it RequestItem, _ int) string { return it.ProgramID }))
	fetched, err := withTimeout(ctx, s.opts.FetchTimeout, func(ctx context.Context) ([]program.Program, error) {
		return s.programs.GetByIDs(ctx, ids)
	})
	if err != nil {
		return nil, &LoadError{Entity: "programs", Err: err}
	}
	byID := lo.KeyBy(fetched, func(p program.Program) string { return p.ID })

	items := make([]CartItem, len(reqItems))
	for i, it := range reqItems {
		p, ok := byID[it.ProgramID]
		if !ok {
			return nil, &ProgramNotFoundError{ProgramID: it.ProgramID}
		}
		id := it.ID
		if id == "" {
			id = fmt.Sprintf("item-%d", i+1)
		}
		items[i] = CartItem{
			ID:                id,
			ProgramID:         p.ID,
			ProgramName:       p.Name,
			ProgramTemplateID: p.TemplateID,
			SeasonID:          p.SeasonID,
			Price:             p.Price,
			Quantity:          it.Quantity,
			PaymentPlanID:     it.PaymentPlanID,
			AthleteID:         it.AthleteID,
			AthleteName:       it.AthleteName,
		}
	}
	return items, nil
}

// loadSeasons fetches season records and effective discounts concurrently.
// A failing season record read fails the checkout; discount resolution
// degrades on its own.
func (s *Service) loadSeasons(ctx context.Context, ids []string) (map[string]seasonData, error) {
	data := make([]seasonData, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := withTimeout(gctx, s.opts.FetchTimeout, func(ctx context.Context) (*season.Season, error) {
				return s.seasons.GetByID(ctx, id)
			})
			switch {
			case errors.Is(err, season.ErrNotFound):
				rec = nil
			case err != nil:
				return &LoadError{Entity: "season", ID: id, Err: err}
			}
			data[i] = seasonData{
				record:    rec,
				effective: s.resolver.ResolveEffective(gctx, id),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]seasonData, len(ids))
	for i, id := range ids {
		out[id] = data[i]
	}
	return out, nil
}

// resolveCode finds the applied code: in the pinned season when given,
// otherwise in each cart season in order and finally in the global catalog.
//
// Unpinned lookups never see seasons outside the cart, so a code that only
// belongs to such a season falls through to its global definition. Clients
// that need the "not applicable to this cart" result must pin the season.
func (s *Service) resolveCode(ctx context.Context, req CheckoutRequest, seasonIDs []string, seasons map[string]seasonData) (*discount.Definition, error) {
	code := discount.NormalizeCode(req.Code)
	if code == "" {
		return nil, nil
	}

	if req.CodeSeasonID != "" {
		sd := seasons[req.CodeSeasonID]
		if def := MatchSeasonCode(code, sd.effective, sd.record); def != nil {
			return def, nil
		}
		return nil, ErrCodeNotFound
	}

	for _, id := range seasonIDs {
		sd := seasons[id]
		if def := MatchSeasonCode(code, sd.effective, sd.record); def != nil {
			return def, nil
		}
	}

	def, err := s.resolver.FindByCode(ctx, code, "")
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, ErrCodeNotFound
	}
	return def, nil
}

func (s *Service) loadPlan(ctx context.Context, req CheckoutRequest, items []CartItem) (*plan.PaymentPlan, error) {
	planID := req.PlanID
	if planID == "" {
		if it, ok := lo.Find(items, func(it CartItem) bool { return it.PaymentPlanID != "" }); ok {
			planID = it.PaymentPlanID
		}
	}
	if planID == "" {
		return nil, nil
	}

	plans, err := withTimeout(ctx, s.opts.FetchTimeout, s.plans.List)
	if err != nil {
		return nil, &LoadError{Entity: "payment plan", ID: planID, Err: err}
	}
	p, ok := lo.Find(plans, func(p plan.PaymentPlan) bool { return p.ID == planID })
	if !ok {
		return nil, ErrPlanNotFound
	}
	if !p.Active {
		return nil, ErrPlanInactive
	}
	for _, it := range items {
		if !p.AppliesTo(it.SeasonID, it.ProgramID) {
			return nil, ErrPlanNotApplicable
		}
	}
	return &p, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
