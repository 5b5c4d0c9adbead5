package basket

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"checkout-service/internal/domain/basket"
	"checkout-service/internal/domain/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBasketRepo struct {
	mu     sync.Mutex
	saved  *basket.Basket
	loaded *basket.Basket
	saves  int
}

func (f *fakeBasketRepo) LoadBasket(ctx context.Context, sessionID string) (*basket.Basket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded, nil
}

func (f *fakeBasketRepo) SaveBasket(ctx context.Context, sessionID string, b basket.Basket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = &b
	f.saves++
	return nil
}

func (f *fakeBasketRepo) ClearBasket(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	return nil
}

func (f *fakeBasketRepo) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func monthlyPlan(id, priceMinor int64) *catalog.PricingPlan {
	return &catalog.PricingPlan{
		ID:                id,
		ProductName:       "Plan",
		Package:           "Standard",
		Measure:           "One-time",
		PriceMinor:        priceMinor,
		Currency:          "GBP",
		RecurringInterval: sql.NullString{String: "month", Valid: true},
	}
}

func newTestStore(repo *fakeBasketRepo) *Store {
	return NewStore("sess_1", repo, zap.NewNop()).WithDebounce(5 * time.Millisecond)
}

func TestAdd_IncrementsQuantityForSameKey(t *testing.T) {
	store := newTestStore(&fakeBasketRepo{})

	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)
	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)

	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, 2, store.TotalItems())
}

func TestAdd_SamePlanDifferentCycleIsSeparateEntry(t *testing.T) {
	store := newTestStore(&fakeBasketRepo{})
	plan := monthlyPlan(1, 1000)
	plan.AnnualSizeDiscount = 20

	store.Add(plan, basket.CycleMonthly)
	store.Add(plan, basket.CycleAnnual)

	snap := store.Snapshot()
	assert.Len(t, snap.Items, 2)
}

func TestAdd_AnnualReferencePriceWins(t *testing.T) {
	plan := monthlyPlan(1, 1000)
	plan.AnnualPriceMinor = sql.NullInt64{Int64: 800, Valid: true}
	plan.AnnualSizeDiscount = 20

	store := newTestStore(&fakeBasketRepo{})
	store.Add(plan, basket.CycleAnnual)

	snap := store.Snapshot()
	require.Len(t, snap.Items, 1)
	item := snap.Items[0]
	assert.Equal(t, int64(800), item.UnitAmountMinor)
	assert.Equal(t, 12, item.CommitmentMonths)
	// the reference price is already discounted
	assert.Zero(t, item.AnnualDiscount)
}

func TestAdd_FallsBackToStandardReferenceWithDiscount(t *testing.T) {
	plan := monthlyPlan(1, 1000)
	plan.AnnualSizeDiscount = 20

	store := newTestStore(&fakeBasketRepo{})
	store.Add(plan, basket.CycleAnnual)

	item := store.Snapshot().Items[0]
	assert.Equal(t, int64(1000), item.UnitAmountMinor)
	assert.Equal(t, float64(20), item.AnnualDiscount)
	assert.Equal(t, int64(9600), store.TotalValue().AmountMinor)
}

func TestSetQuantity_ZeroRemovesEntry(t *testing.T) {
	store := newTestStore(&fakeBasketRepo{})
	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)

	store.SetQuantity(1, 0)
	snap := store.Snapshot()
	assert.True(t, snap.IsEmpty())
}

func TestTotalValue_RecomputedAfterMutation(t *testing.T) {
	store := newTestStore(&fakeBasketRepo{})
	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)
	store.Add(monthlyPlan(2, 500), basket.CycleMonthly)
	store.SetQuantity(2, 2)

	assert.Equal(t, int64(3000), store.TotalValue().AmountMinor)

	store.Remove(2)
	assert.Equal(t, int64(2000), store.TotalValue().AmountMinor)
}

func TestDebouncedPersistence_CollapsesRapidMutations(t *testing.T) {
	repo := &fakeBasketRepo{}
	store := NewStore("sess_1", repo, zap.NewNop()).WithDebounce(50 * time.Millisecond)

	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)
	store.Add(monthlyPlan(2, 500), basket.CycleMonthly)
	store.SetQuantity(2, 3)

	assert.Equal(t, 0, repo.saveCount(), "no write before the debounce fires")

	assert.Eventually(t, func() bool { return repo.saveCount() == 1 },
		500*time.Millisecond, 5*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.NotNil(t, repo.saved)
	assert.Len(t, repo.saved.Items, 2)
}

func TestClear_EmptiesBasketAndPersistedCopy(t *testing.T) {
	repo := &fakeBasketRepo{}
	store := newTestStore(repo)
	store.Add(monthlyPlan(1, 2000), basket.CycleMonthly)
	store.Flush(context.Background())

	store.Clear(context.Background())

	snap := store.Snapshot()
	assert.True(t, snap.IsEmpty())
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Nil(t, repo.saved)
}

func TestLoad_RestoresPersistedBasket(t *testing.T) {
	repo := &fakeBasketRepo{loaded: &basket.Basket{Items: []basket.LineItem{{
		PlanID:          1,
		Currency:        "GBP",
		UnitAmountMinor: 2000,
		BillingCycle:    basket.CycleMonthly,
		Quantity:        2,
	}}}}
	store := newTestStore(repo)

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, 2, store.TotalItems())
	assert.Equal(t, int64(4000), store.TotalValue().AmountMinor)
}

func TestValidate_RejectsMalformedBaskets(t *testing.T) {
	dup := basket.Basket{Items: []basket.LineItem{
		{PlanID: 1, BillingCycle: basket.CycleMonthly, Quantity: 1},
		{PlanID: 1, BillingCycle: basket.CycleMonthly, Quantity: 1},
	}}
	assert.False(t, dup.Validate())

	badQty := basket.Basket{Items: []basket.LineItem{
		{PlanID: 1, BillingCycle: basket.CycleMonthly, Quantity: 0},
	}}
	assert.False(t, badQty.Validate())

	badCycle := basket.Basket{Items: []basket.LineItem{
		{PlanID: 1, BillingCycle: "weekly", Quantity: 1},
	}}
	assert.False(t, badCycle.Validate())
}
