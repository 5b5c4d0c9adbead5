package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	domainbasket "checkout-service/internal/domain/basket"
	"checkout-service/internal/domain/catalog"
	domainpayment "checkout-service/internal/domain/payment"
	xerrors "checkout-service/internal/pkg/errors"
	"checkout-service/internal/processor"
	"checkout-service/internal/repository/kv"
	"checkout-service/internal/service/basket"
	"checkout-service/internal/service/payment"
	"checkout-service/internal/service/promo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	mu sync.Mutex

	intentCalls []processor.IntentRequest
	intentSeq   int
	intentErr   error

	promoResp *processor.PromoValidationResponse
	promoErr  error

	confirmErr error

	verifyResp *processor.VerifyResponse
	verifyErr  error
}

func (f *fakeProcessor) CreateOrUpdateIntent(ctx context.Context, req processor.IntentRequest) (*processor.IntentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentCalls = append(f.intentCalls, req)
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	id := req.ExistingIntentID
	if id == "" || !req.IdentityOnlyUpdate && req.PromoCodeID != "" {
		f.intentSeq++
		id = fmt.Sprintf("pi_%d", f.intentSeq)
	}
	return &processor.IntentResponse{
		ID:                    id,
		ClientSecret:          id + "_secret",
		DiscountedAmountMinor: req.AmountMinor,
	}, nil
}

func (f *fakeProcessor) ValidatePromoCode(ctx context.Context, code string, currentTotalMinor int64) (*processor.PromoValidationResponse, error) {
	if f.promoErr != nil {
		return nil, f.promoErr
	}
	return f.promoResp, nil
}

func (f *fakeProcessor) VerifyIntent(ctx context.Context, intentID string) (*processor.VerifyResponse, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResp, nil
}

func (f *fakeProcessor) ConfirmIntent(ctx context.Context, intentID string, req processor.ConfirmRequest) error {
	return f.confirmErr
}

func (f *fakeProcessor) intentCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.intentCalls)
}

func (f *fakeProcessor) lastIntentCall() processor.IntentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intentCalls[len(f.intentCalls)-1]
}

type fakeStateRepo struct {
	mu      sync.Mutex
	basket  *domainbasket.Basket
	ref     *kv.IntentRef
	receipt *domainpayment.Receipt
}

func (r *fakeStateRepo) LoadBasket(ctx context.Context, sessionID string) (*domainbasket.Basket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.basket, nil
}

func (r *fakeStateRepo) SaveBasket(ctx context.Context, sessionID string, b domainbasket.Basket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.basket = &b
	return nil
}

func (r *fakeStateRepo) ClearBasket(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.basket = nil
	return nil
}

func (r *fakeStateRepo) SaveIntentRef(ctx context.Context, sessionID string, ref kv.IntentRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ref = &ref
	return nil
}

func (r *fakeStateRepo) LoadIntentRef(ctx context.Context, sessionID string) (*kv.IntentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ref, nil
}

func (r *fakeStateRepo) ClearIntentRef(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ref = nil
	return nil
}

func (r *fakeStateRepo) SaveReceipt(ctx context.Context, sessionID string, rec domainpayment.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipt = &rec
	return nil
}

func (r *fakeStateRepo) LoadReceipt(ctx context.Context, sessionID string) (*domainpayment.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.receipt, nil
}

func monthlyPlan(id int64, priceMinor int64) *catalog.PricingPlan {
	p := &catalog.PricingPlan{
		ID:          id,
		ProductName: fmt.Sprintf("Plan %d", id),
		Currency:    "GBP",
		PriceMinor:  priceMinor,
	}
	p.RecurringInterval.String = "month"
	p.RecurringInterval.Valid = true
	return p
}

func newTestCheckout(t *testing.T, proc *fakeProcessor) (*Checkout, *fakeStateRepo) {
	t.Helper()
	repo := &fakeStateRepo{}
	logger := zap.NewNop()
	store := basket.NewStore("sess_1", repo, logger)
	controller := payment.NewController("sess_1", proc, repo, logger)
	validator := promo.NewValidator(proc, logger).WithRetryPolicy(1, time.Millisecond)
	return NewCheckout("sess_1", store, controller, validator, repo, logger), repo
}

func TestBasketChanged_FirstFillCreatesIntentOnce(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	assert.Equal(t, 1, proc.intentCallCount(), "only the first fill creates")
	intent := co.Intent()
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, int64(2500), intent.ChargeAmountMinor)
}

func TestBasketChanged_EmptyBasketIsIgnored(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	require.NoError(t, co.HandleBasketChanged(context.Background()))
	assert.Equal(t, 0, proc.intentCallCount())
	assert.Equal(t, domainpayment.StatusNone, co.Intent().Status)
}

func TestBasketChanged_QuantityBumpUpdatesInPlace(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	co.Store().SetQuantity(1, 3)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	require.Equal(t, 2, proc.intentCallCount())
	last := proc.lastIntentCall()
	assert.Equal(t, "pi_1", last.ExistingIntentID, "amount change updates the existing intent")
	assert.Equal(t, int64(7500), last.AmountMinor)
	assert.Equal(t, "pi_1_secret", co.Intent().ClientSecret, "secret survives amount updates")
}

func TestBasketChanged_CreateFailureAllowsRetry(t *testing.T) {
	proc := &fakeProcessor{intentErr: xerrors.ErrNetwork}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.Error(t, co.HandleBasketChanged(context.Background()))

	proc.intentErr = nil
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	assert.Equal(t, "pi_1", co.Intent().ID)
}

func TestIdentityResolved_BeforeIntentParksEmail(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	require.NoError(t, co.HandleIdentityResolved(context.Background(), domainpayment.Identity{CustomerEmail: "jo@example.com"}))
	assert.Equal(t, 0, proc.intentCallCount(), "no intent yet, nothing to update")

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	require.Equal(t, 2, proc.intentCallCount(), "create, then identity attach")
	last := proc.lastIntentCall()
	assert.True(t, last.IdentityOnlyUpdate)
	assert.Equal(t, "jo@example.com", last.CustomerEmail)
	assert.Equal(t, "jo@example.com", co.Intent().CustomerEmail)
}

func TestIdentityResolved_AfterIntentUpdatesImmediately(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	secret := co.Intent().ClientSecret

	require.NoError(t, co.HandleIdentityResolved(context.Background(), domainpayment.Identity{CustomerEmail: "jo@example.com"}))

	last := proc.lastIntentCall()
	assert.True(t, last.IdentityOnlyUpdate)
	intent := co.Intent()
	assert.Equal(t, secret, intent.ClientSecret, "identity update keeps the secret")
	assert.Equal(t, int64(2500), intent.ChargeAmountMinor)
}

func TestPromoApplied_ValidCodeReplacesIntent(t *testing.T) {
	proc := &fakeProcessor{
		promoResp: &processor.PromoValidationResponse{Success: true, DiscountPercent: 10, PromoCodeID: "promo_10"},
	}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	oldSecret := co.Intent().ClientSecret

	pc, err := co.HandlePromoApplied(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "promo_10", pc.ID)
	assert.Equal(t, float64(10), pc.DiscountPercent)

	last := proc.lastIntentCall()
	assert.Equal(t, "promo_10", last.PromoCodeID)
	assert.Equal(t, int64(2500), last.AmountMinor, "validation and replacement use the undiscounted total")
	assert.NotEqual(t, oldSecret, co.Intent().ClientSecret, "promo replacement rotates the secret")
}

func TestPromoApplied_RejectedCodeResetsIntent(t *testing.T) {
	proc := &fakeProcessor{
		promoResp: &processor.PromoValidationResponse{Success: false, Error: "expired"},
	}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	_, err := co.HandlePromoApplied(context.Background(), "EXPIRED")
	require.Error(t, err)

	intent := co.Intent()
	assert.Equal(t, domainpayment.StatusActive, intent.Status, "a fresh undiscounted intent replaces the old one")
	assert.Empty(t, intent.PromoCodeID)
	assert.Equal(t, int64(2500), intent.ChargeAmountMinor)
}

func TestPromoApplied_EmptyCodeFailsLocally(t *testing.T) {
	proc := &fakeProcessor{}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	before := proc.intentCallCount()

	_, err := co.HandlePromoApplied(context.Background(), "   ")
	assert.ErrorIs(t, err, xerrors.ErrEmptyCode)
	// A locally rejected code still clears any applied discount state.
	assert.Equal(t, before+1, proc.intentCallCount(), "reset recreates the undiscounted intent")
}

func TestConfirmRequested_FullSequence(t *testing.T) {
	proc := &fakeProcessor{
		verifyResp: &processor.VerifyResponse{AmountMinor: 2500, Currency: "GBP", Status: "succeeded"},
	}
	co, repo := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	receipt, err := co.HandleConfirmRequested(context.Background(), "pm_card", "jo@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), receipt.AmountMinor)
	assert.Equal(t, "succeeded", receipt.Status)

	snap := co.Store().Snapshot()
	assert.True(t, snap.IsEmpty(), "basket cleared after success")
	assert.Equal(t, domainpayment.StatusNone, co.Intent().Status, "intent reset after success")
	require.NotNil(t, repo.receipt, "receipt persisted")
	assert.Nil(t, repo.ref, "intent identifiers cleared")

	got, err := co.Receipt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), got.AmountMinor)
}

func TestConfirmRequested_DeclineKeepsEverything(t *testing.T) {
	proc := &fakeProcessor{
		confirmErr: &xerrors.ConfirmationError{Class: xerrors.ConfirmationCard, Message: "Your card was declined."},
	}
	co, _ := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	_, err := co.HandleConfirmRequested(context.Background(), "pm_card", "")
	var ce *xerrors.ConfirmationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Your card was declined.", ce.UserMessage())

	declineSnap := co.Store().Snapshot()
	assert.False(t, declineSnap.IsEmpty(), "basket survives a decline")
	intent := co.Intent()
	assert.Equal(t, domainpayment.StatusActive, intent.Status)
	assert.Equal(t, "pi_1", intent.ID, "intent retryable with the same secret")
}

func TestConfirmRequested_VerifyFailureFallsBackToLocalTotal(t *testing.T) {
	proc := &fakeProcessor{verifyErr: xerrors.ErrNetwork}
	co, repo := newTestCheckout(t, proc)

	co.Store().Add(monthlyPlan(1, 2500), domainbasket.CycleMonthly)
	require.NoError(t, co.HandleBasketChanged(context.Background()))

	receipt, err := co.HandleConfirmRequested(context.Background(), "pm_card", "")
	require.NoError(t, err, "the charge succeeded, verification is best effort")
	assert.Equal(t, int64(2500), receipt.AmountMinor)
	assert.Equal(t, "GBP", receipt.Currency)
	require.NotNil(t, repo.receipt)
}

func TestRecover_RestoresBasketAndIntent(t *testing.T) {
	proc := &fakeProcessor{}
	repo := &fakeStateRepo{
		basket: &domainbasket.Basket{Items: []domainbasket.LineItem{{
			PlanID:          1,
			Name:            "Plan 1",
			Currency:        "GBP",
			UnitAmountMinor: 2500,
			IsRecurring:     true,
			BillingCycle:    domainbasket.CycleMonthly,
			Quantity:        2,
		}}},
		ref: &kv.IntentRef{ID: "pi_old", ClientSecret: "pi_old_secret"},
	}
	logger := zap.NewNop()
	store := basket.NewStore("sess_1", repo, logger)
	controller := payment.NewController("sess_1", proc, repo, logger)
	validator := promo.NewValidator(proc, logger)
	co := NewCheckout("sess_1", store, controller, validator, repo, logger)

	require.NoError(t, co.Recover(context.Background()))

	assert.Equal(t, 2, co.Store().TotalItems())
	intent := co.Intent()
	assert.Equal(t, "pi_old", intent.ID)
	assert.Equal(t, domainpayment.StatusActive, intent.Status)

	// The basket was not refilled, so no duplicate create fires.
	require.NoError(t, co.HandleBasketChanged(context.Background()))
	assert.Equal(t, 1, proc.intentCallCount(), "recovered intent updates, never re-creates")
	assert.Equal(t, "pi_old", proc.lastIntentCall().ExistingIntentID)
}

func TestManager_ReturnsSameCheckoutPerSession(t *testing.T) {
	proc := &fakeProcessor{}
	m := NewManager(proc, proc, &fakeStateRepo{}, zap.NewNop())

	a := m.Get(context.Background(), "sess_a")
	b := m.Get(context.Background(), "sess_b")
	assert.Same(t, a, m.Get(context.Background(), "sess_a"))
	assert.NotSame(t, a, b)

	m.Drop("sess_a")
	assert.NotSame(t, a, m.Get(context.Background(), "sess_a"))
}
