// internal/service/promo/validator.go
package promo

import (
	"context"
	"strings"
	"time"

	"checkout-service/internal/domain/payment"
	xerrors "checkout-service/internal/pkg/errors"
	"checkout-service/internal/processor"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 400 * time.Millisecond
)

// Gateway is the one processor call the validator needs.
type Gateway interface {
	ValidatePromoCode(ctx context.Context, code string, currentTotalMinor int64) (*processor.PromoValidationResponse, error)
}

type Validator struct {
	gateway      Gateway
	logger       *zap.Logger
	maxAttempts  int
	initialDelay time.Duration
}

func NewValidator(gateway Gateway, logger *zap.Logger) *Validator {
	return &Validator{
		gateway:      gateway,
		logger:       logger,
		maxAttempts:  defaultMaxAttempts,
		initialDelay: defaultInitialDelay,
	}
}

// WithRetryPolicy overrides the attempt budget, mostly for tests.
func (v *Validator) WithRetryPolicy(maxAttempts int, initialDelay time.Duration) *Validator {
	v.maxAttempts = maxAttempts
	v.initialDelay = initialDelay
	return v
}

// Validate submits a promo code against the current undiscounted total.
// Empty codes are rejected locally. Transport failures are retried with
// exponential backoff up to the attempt budget; an application-level
// rejection is returned immediately. The discount is clamped to [0,100];
// zero is a valid discount.
func (v *Validator) Validate(ctx context.Context, code string, currentTotalMinor int64) (*payment.PromoCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, xerrors.ErrEmptyCode
	}

	var lastErr error
	delay := v.initialDelay
	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		resp, err := v.gateway.ValidatePromoCode(ctx, code, currentTotalMinor)
		if err == nil {
			discount := clamp(resp.DiscountPercent)
			v.logger.Info("promo code validated",
				zap.String("promo_code_id", resp.PromoCodeID),
				zap.Float64("discount_percent", discount),
			)
			return &payment.PromoCode{ID: resp.PromoCodeID, DiscountPercent: discount}, nil
		}

		if !xerrors.Is(err, xerrors.ErrNetwork) {
			return nil, err
		}

		lastErr = err
		v.logger.Warn("promo validation transport failure",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return nil, xerrors.Wrap(lastErr, "promo validation retries exhausted")
}

func clamp(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
