package pricing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/league-pricing/internal/domain/discount"
	"github.com/xenking/league-pricing/internal/domain/plan"
	"github.com/xenking/league-pricing/internal/domain/program"
	"github.com/xenking/league-pricing/internal/domain/season"
)

// --- Mock implementations ---

type mockSeasonRepo struct {
	seasons     map[string]*season.Season
	overlays    map[string][]season.Overlay
	getErr      error
	overlaysErr error
}

func (m *mockSeasonRepo) GetByID(_ context.Context, id string) (*season.Season, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.seasons[id]
	if !ok {
		return nil, season.ErrNotFound
	}
	return s, nil
}

func (m *mockSeasonRepo) ListOverlays(_ context.Context, seasonID string) ([]season.Overlay, error) {
	if m.overlaysErr != nil {
		return nil, m.overlaysErr
	}
	return m.overlays[seasonID], nil
}

type mockDiscountRepo struct {
	mu      sync.Mutex
	byID    map[string]discount.Definition
	order   []string
	getErr  error
	listErr error
	calls   int
}

func newDiscountRepo(defs ...discount.Definition) *mockDiscountRepo {
	m := &mockDiscountRepo{byID: make(map[string]discount.Definition)}
	for _, d := range defs {
		d = discount.Normalize(d)
		m.byID[d.ID] = d
		m.order = append(m.order, d.ID)
	}
	return m
}

func (m *mockDiscountRepo) List(_ context.Context) ([]discount.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]discount.Definition, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *mockDiscountRepo) GetByID(_ context.Context, id string) (*discount.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.byID[id]
	if !ok {
		return nil, discount.ErrNotFound
	}
	return &d, nil
}

type mockProgramRepo struct {
	byID   map[string]program.Program
	getErr error
}

func newProgramRepo(programs ...program.Program) *mockProgramRepo {
	m := &mockProgramRepo{byID: make(map[string]program.Program)}
	for _, p := range programs {
		m.byID[p.ID] = p
	}
	return m
}

func (m *mockProgramRepo) GetByIDs(_ context.Context, ids []string) ([]program.Program, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []program.Program
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockPlanRepo struct {
	plans   []plan.PaymentPlan
	listErr error
}

func (m *mockPlanRepo) List(_ context.Context) ([]plan.PaymentPlan, error) {
	return m.plans, m.listErr
}

type mockCheckoutRepo struct {
	last *CheckoutRecord
	err  error
}

func (m *mockCheckoutRepo) Create(_ context.Context, c *CheckoutRecord) error {
	m.last = c
	return m.err
}

// --- Helpers ---

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}

var testNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}
