// internal/service/checkout/orchestrator.go
package checkout

import (
	"context"
	"strconv"
	"strings"
	"sync"

	domainbasket "checkout-service/internal/domain/basket"
	domainpayment "checkout-service/internal/domain/payment"
	xerrors "checkout-service/internal/pkg/errors"
	"checkout-service/internal/pricing"
	"checkout-service/internal/processor"
	"checkout-service/internal/repository/kv"
	"checkout-service/internal/service/basket"
	"checkout-service/internal/service/payment"
	"checkout-service/internal/service/promo"

	"go.uber.org/zap"
)

// Checkout coordinates one session's basket, payment intent and promo state.
// It reacts to explicit triggers rather than owning a loop: the handlers call
// in when the basket changes, the identity resolves, a promo code is applied
// or the buyer confirms.
type Checkout struct {
	mu sync.Mutex

	sessionID  string
	store      *basket.Store
	controller *payment.Controller
	promo      *promo.Validator
	repo       kv.StateRepository
	logger     *zap.Logger

	created      bool
	pendingEmail string
	receipt      *domainpayment.Receipt
}

func NewCheckout(sessionID string, store *basket.Store, controller *payment.Controller, validator *promo.Validator, repo kv.StateRepository, logger *zap.Logger) *Checkout {
	return &Checkout{
		sessionID:  sessionID,
		store:      store,
		controller: controller,
		promo:      validator,
		repo:       repo,
		logger:     logger,
	}
}

func (co *Checkout) Store() *basket.Store { return co.store }

func (co *Checkout) Controller() *payment.Controller { return co.controller }

func (co *Checkout) Intent() domainpayment.PaymentIntent { return co.controller.Intent() }

// Receipt returns the persisted success receipt, if any.
func (co *Checkout) Receipt(ctx context.Context) (*domainpayment.Receipt, error) {
	co.mu.Lock()
	if co.receipt != nil {
		r := *co.receipt
		co.mu.Unlock()
		return &r, nil
	}
	co.mu.Unlock()
	return co.repo.LoadReceipt(ctx, co.sessionID)
}

// HandleBasketChanged is the trigger fired after any basket mutation. The
// first transition to a non-empty basket creates the intent exactly once;
// later changes update the charge amount in place, keeping the client secret.
func (co *Checkout) HandleBasketChanged(ctx context.Context) error {
	snapshot := co.store.Snapshot()
	if snapshot.IsEmpty() {
		return nil
	}
	total := pricing.OrderTotal(snapshot)

	co.mu.Lock()
	firstFill := !co.created
	if firstFill {
		co.created = true
	}
	email := co.pendingEmail
	co.mu.Unlock()

	params := payment.EnsureParams{
		AmountMinor: total.AmountMinor,
		Currency:    total.Currency,
		Metadata:    buildMetadata(&snapshot),
	}

	if firstFill {
		if err := co.controller.EnsureCreated(ctx, params); err != nil {
			co.mu.Lock()
			co.created = false
			co.mu.Unlock()
			return err
		}
		// An identity that arrived before the intent existed applies now.
		if email != "" {
			return co.controller.UpdateForIdentityOrDiscount(ctx, params, email, true)
		}
		return nil
	}

	err := co.controller.UpdateForIdentityOrDiscount(ctx, params, "", false)
	if xerrors.Is(err, xerrors.ErrIntentNotCreated) {
		// The original create failed; retry it with the current total.
		return co.controller.EnsureCreated(ctx, params)
	}
	return err
}

// HandleIdentityResolved attaches the customer email to the intent without
// touching the charge amount. Before the intent exists the email is parked
// and applied on creation.
func (co *Checkout) HandleIdentityResolved(ctx context.Context, id domainpayment.Identity) error {
	if id.CustomerEmail == "" {
		return nil
	}

	co.mu.Lock()
	co.pendingEmail = id.CustomerEmail
	co.mu.Unlock()

	snapshot := co.store.Snapshot()
	if snapshot.IsEmpty() {
		return nil
	}
	total := pricing.OrderTotal(snapshot)
	params := payment.EnsureParams{
		AmountMinor: total.AmountMinor,
		Currency:    total.Currency,
		Metadata:    buildMetadata(&snapshot),
	}

	err := co.controller.UpdateForIdentityOrDiscount(ctx, params, id.CustomerEmail, true)
	if xerrors.Is(err, xerrors.ErrIntentNotCreated) {
		// Parked; HandleBasketChanged applies it after creation.
		return nil
	}
	return err
}

// HandlePromoApplied validates the code against the undiscounted total and
// replaces the intent so the discount is priced in from creation. A rejected
// code resets any previously applied discount.
func (co *Checkout) HandlePromoApplied(ctx context.Context, code string) (*domainpayment.PromoCode, error) {
	snapshot := co.store.Snapshot()
	total := pricing.OrderTotal(snapshot)
	params := payment.EnsureParams{
		AmountMinor: total.AmountMinor,
		Currency:    total.Currency,
		Metadata:    buildMetadata(&snapshot),
	}

	pc, err := co.promo.Validate(ctx, code, total.AmountMinor)
	if err != nil {
		co.controller.ClearPromo()
		co.controller.Reset(ctx, total.AmountMinor)
		if !snapshot.IsEmpty() {
			if ensureErr := co.controller.EnsureCreated(ctx, params); ensureErr != nil {
				co.logger.Warn("failed to restore intent after promo rejection",
					zap.String("session_id", co.sessionID),
					zap.Error(ensureErr),
				)
			}
		}
		return nil, err
	}

	co.controller.ApplyPromo(*pc)
	if snapshot.IsEmpty() {
		return pc, nil
	}
	if err := co.controller.EnsureCreated(ctx, params); err != nil {
		return nil, err
	}
	return pc, nil
}

// HandleConfirmRequested runs the full confirmation sequence: a final
// identity update when an email is known, the confirmation itself, then the
// authoritative receipt, basket teardown and intent reset, in that order.
func (co *Checkout) HandleConfirmRequested(ctx context.Context, paymentMethod, email string) (*domainpayment.Receipt, error) {
	snapshot := co.store.Snapshot()
	total := pricing.OrderTotal(snapshot)

	if email == "" {
		co.mu.Lock()
		email = co.pendingEmail
		co.mu.Unlock()
	}
	if email != "" {
		params := payment.EnsureParams{
			AmountMinor: total.AmountMinor,
			Currency:    total.Currency,
			Metadata:    buildMetadata(&snapshot),
		}
		if err := co.controller.UpdateForIdentityOrDiscount(ctx, params, email, true); err != nil {
			return nil, err
		}
	}

	if err := co.controller.Confirm(ctx, processor.ConfirmRequest{
		PaymentMethod: paymentMethod,
		ReceiptEmail:  email,
	}); err != nil {
		return nil, err
	}

	receipt, err := co.controller.Verify(ctx)
	if err != nil {
		// The charge went through; fall back to the locally computed amount.
		co.logger.Warn("receipt verification failed, using local total",
			zap.String("session_id", co.sessionID),
			zap.Error(err),
		)
		intent := co.controller.Intent()
		receipt = &domainpayment.Receipt{
			AmountMinor: intent.ChargeAmountMinor,
			Currency:    total.Currency,
			Status:      "succeeded",
		}
	}

	if err := co.repo.SaveReceipt(ctx, co.sessionID, *receipt); err != nil {
		co.logger.Warn("failed to persist receipt",
			zap.String("session_id", co.sessionID),
			zap.Error(err),
		)
	}

	co.mu.Lock()
	co.receipt = receipt
	co.created = false
	co.mu.Unlock()

	co.store.Clear(ctx)
	co.controller.Reset(ctx, 0)

	co.logger.Info("checkout complete",
		zap.String("session_id", co.sessionID),
		zap.Int64("amount_minor", receipt.AmountMinor),
		zap.String("currency", receipt.Currency),
	)
	return receipt, nil
}

// Recover restores basket and intent state for a returning session.
func (co *Checkout) Recover(ctx context.Context) error {
	if err := co.store.Load(ctx); err != nil {
		return err
	}
	snapshot := co.store.Snapshot()
	recovered, err := co.controller.Recover(ctx, snapshot.IsEmpty())
	if err != nil {
		return err
	}
	if recovered {
		co.mu.Lock()
		co.created = true
		co.mu.Unlock()
	}
	return nil
}

func buildMetadata(b *domainbasket.Basket) processor.IntentMetadata {
	ids := make([]string, 0, len(b.Items))
	items := make([]processor.ItemSummary, 0, len(b.Items))
	for i := range b.Items {
		li := &b.Items[i]
		ids = append(ids, strconv.FormatInt(li.PlanID, 10))
		items = append(items, processor.ItemSummary{
			ID:      li.PlanID,
			Name:    li.Name,
			Package: li.Package,
			Measure: li.Measure,
		})
	}
	return processor.IntentMetadata{
		ItemCount: len(b.Items),
		ItemIDs:   strings.Join(ids, ","),
		Items:     items,
	}
}
