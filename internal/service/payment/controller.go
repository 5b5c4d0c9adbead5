// internal/service/payment/controller.go
package payment

import (
	"context"
	"fmt"
	"sync"

	"checkout-service/internal/domain/payment"
	xerrors "checkout-service/internal/pkg/errors"
	"checkout-service/internal/processor"
	"checkout-service/internal/repository/kv"

	"go.uber.org/zap"
)

// IntentGateway is the processor surface the controller drives.
type IntentGateway interface {
	CreateOrUpdateIntent(ctx context.Context, req processor.IntentRequest) (*processor.IntentResponse, error)
	VerifyIntent(ctx context.Context, intentID string) (*processor.VerifyResponse, error)
	ConfirmIntent(ctx context.Context, intentID string, req processor.ConfirmRequest) error
}

// EnsureParams carries everything a create/replace call needs.
type EnsureParams struct {
	AmountMinor int64
	Currency    string
	Metadata    processor.IntentMetadata
}

// Controller owns the remote payment-intent resource for one checkout
// session. It guarantees at most one in-flight processor call at a time: a
// call arriving while another is in flight is dropped, not queued, on the
// assumption that a later state change re-triggers the right call.
type Controller struct {
	mu           sync.Mutex
	sessionID    string
	intent       payment.PaymentIntent
	promoPending bool
	inFlight     bool

	gateway IntentGateway
	repo    kv.IntentRepository
	logger  *zap.Logger
}

func NewController(sessionID string, gateway IntentGateway, repo kv.IntentRepository, logger *zap.Logger) *Controller {
	return &Controller{
		sessionID: sessionID,
		intent:    payment.PaymentIntent{Status: payment.StatusNone},
		gateway:   gateway,
		repo:      repo,
		logger:    logger,
	}
}

// Intent returns a snapshot of the current intent state.
func (c *Controller) Intent() payment.PaymentIntent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

func (c *Controller) Status() payment.IntentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent.Status
}

// ApplyPromo records a validated promo code as pending application. The next
// EnsureCreated call replaces the intent so the processor sees the discounted
// amount from creation, rotating the client secret.
func (c *Controller) ApplyPromo(code payment.PromoCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.PromoCodeID = code.ID
	c.promoPending = true
}

// ClearPromo drops any promo state, pending or applied.
func (c *Controller) ClearPromo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.PromoCodeID = ""
	c.promoPending = false
}

// EnsureCreated creates the remote intent, or replaces it when a promo code
// is pending. It is a no-op while the intent is live and no promo is
// pending, so repeated triggers cannot re-create. The identifiers are
// persisted immediately on success for reload recovery.
func (c *Controller) EnsureCreated(ctx context.Context, p EnsureParams) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug("dropping ensure-create, call in flight",
			zap.String("session_id", c.sessionID),
		)
		return xerrors.ErrCallInFlight
	}
	if c.intent.Status.InFlight() && !c.promoPending {
		c.mu.Unlock()
		return nil
	}

	prev := c.intent.Status
	c.inFlight = true
	c.intent.Status = payment.StatusCreating
	req := processor.IntentRequest{
		AmountMinor:      p.AmountMinor,
		Currency:         p.Currency,
		Metadata:         p.Metadata,
		PromoCodeID:      c.intent.PromoCodeID,
		ExistingIntentID: c.intent.ID,
		CustomerEmail:    c.intent.CustomerEmail,
	}
	c.mu.Unlock()

	resp, err := c.gateway.CreateOrUpdateIntent(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if ctx.Err() != nil {
		c.intent.Status = prev
		return xerrors.ErrStaleContext
	}
	if err != nil {
		c.intent.Status = payment.StatusFailed
		c.logger.Error("payment intent create failed",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to initialize payment: %w", err)
	}

	c.intent.ID = resp.ID
	c.intent.ClientSecret = resp.ClientSecret
	c.intent.Currency = p.Currency
	c.intent.ChargeAmountMinor = resp.DiscountedAmountMinor
	if resp.DiscountedAmountMinor == 0 && resp.DiscountPercent == 0 {
		c.intent.ChargeAmountMinor = p.AmountMinor
	}
	c.intent.Status = payment.StatusActive
	c.promoPending = false

	if err := c.repo.SaveIntentRef(ctx, c.sessionID, kv.IntentRef{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
	}); err != nil {
		// Recovery degrades to a fresh create; the live intent is intact.
		c.logger.Warn("failed to persist intent identifiers",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
	}

	c.logger.Info("payment intent active",
		zap.String("session_id", c.sessionID),
		zap.String("intent_id", resp.ID),
		zap.Int64("charge_amount_minor", c.intent.ChargeAmountMinor),
	)
	return nil
}

// UpdateForIdentityOrDiscount updates the existing intent in place, keeping
// the client secret. Identity-only updates carry the email and must not
// alter the persisted discount state or the charge amount.
func (c *Controller) UpdateForIdentityOrDiscount(ctx context.Context, p EnsureParams, email string, identityOnly bool) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.logger.Debug("dropping update, call in flight",
			zap.String("session_id", c.sessionID),
		)
		return xerrors.ErrCallInFlight
	}
	if c.intent.ID == "" {
		c.mu.Unlock()
		return xerrors.ErrIntentNotCreated
	}

	prev := c.intent.Status
	c.inFlight = true
	c.intent.Status = payment.StatusUpdating
	req := processor.IntentRequest{
		AmountMinor:        p.AmountMinor,
		Currency:           p.Currency,
		Metadata:           p.Metadata,
		ExistingIntentID:   c.intent.ID,
		CustomerEmail:      email,
		IdentityOnlyUpdate: identityOnly,
	}
	if !identityOnly {
		req.PromoCodeID = c.intent.PromoCodeID
	}
	c.mu.Unlock()

	resp, err := c.gateway.CreateOrUpdateIntent(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if ctx.Err() != nil {
		c.intent.Status = prev
		return xerrors.ErrStaleContext
	}
	if err != nil {
		c.intent.Status = payment.StatusFailed
		c.logger.Error("payment intent update failed",
			zap.String("session_id", c.sessionID),
			zap.Bool("identity_only", identityOnly),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update payment: %w", err)
	}

	if email != "" {
		c.intent.CustomerEmail = email
	}
	if !identityOnly {
		c.intent.ChargeAmountMinor = resp.DiscountedAmountMinor
		if resp.DiscountedAmountMinor == 0 && resp.DiscountPercent == 0 {
			c.intent.ChargeAmountMinor = p.AmountMinor
		}
	}
	c.intent.Status = payment.StatusActive
	return nil
}

// Confirm submits payment details against the live intent. Confirmation
// failures leave the intent intact so the same secret can be retried; only a
// transport failure moves the controller to Failed.
func (c *Controller) Confirm(ctx context.Context, details processor.ConfirmRequest) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return xerrors.ErrCallInFlight
	}
	if c.intent.ID == "" {
		c.mu.Unlock()
		return xerrors.ErrIntentNotCreated
	}
	intentID := c.intent.ID
	details.ClientSecret = c.intent.ClientSecret
	c.inFlight = true
	c.intent.Status = payment.StatusConfirming
	c.mu.Unlock()

	err := c.gateway.ConfirmIntent(ctx, intentID, details)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err == nil {
		c.intent.Status = payment.StatusSucceeded
		return nil
	}

	if _, ok := xerrors.AsConfirmation(err); ok {
		// The intent survives a declined confirmation.
		c.intent.Status = payment.StatusActive
		return err
	}

	c.intent.Status = payment.StatusFailed
	return err
}

// Verify fetches the authoritative captured amount for the success receipt.
func (c *Controller) Verify(ctx context.Context) (*payment.Receipt, error) {
	c.mu.Lock()
	intentID := c.intent.ID
	c.mu.Unlock()

	if intentID == "" {
		return nil, xerrors.ErrIntentNotCreated
	}

	resp, err := c.gateway.VerifyIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return &payment.Receipt{
		AmountMinor: resp.AmountMinor,
		Currency:    resp.Currency,
		Status:      resp.Status,
	}, nil
}

// Reset clears in-memory intent state, removes the persisted identifiers and
// restores the chargeable amount to the undiscounted basket total. The next
// EnsureCreated performs a fresh create.
func (c *Controller) Reset(ctx context.Context, undiscountedTotalMinor int64) {
	c.mu.Lock()
	currency := c.intent.Currency
	c.intent = payment.PaymentIntent{
		Status:            payment.StatusNone,
		ChargeAmountMinor: undiscountedTotalMinor,
		Currency:          currency,
	}
	c.promoPending = false
	c.mu.Unlock()

	if err := c.repo.ClearIntentRef(ctx, c.sessionID); err != nil {
		c.logger.Warn("failed to clear persisted intent identifiers",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
	}
}

// Recover resumes a persisted intent after a process restart. With stored
// identifiers and a non-empty basket the controller comes back Active,
// deferring any change to UpdateForIdentityOrDiscount; otherwise it stays
// idle. Returns whether an intent was recovered.
func (c *Controller) Recover(ctx context.Context, basketEmpty bool) (bool, error) {
	if basketEmpty {
		return false, nil
	}

	ref, err := c.repo.LoadIntentRef(ctx, c.sessionID)
	if err != nil {
		return false, err
	}
	if ref == nil {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.intent.ID = ref.ID
	c.intent.ClientSecret = ref.ClientSecret
	c.intent.Status = payment.StatusActive

	c.logger.Info("recovered payment intent",
		zap.String("session_id", c.sessionID),
		zap.String("intent_id", ref.ID),
	)
	return true, nil
}
