// internal/repository/kv/repository.go
package kv

import (
	"context"

	"checkout-service/internal/domain/basket"
	"checkout-service/internal/domain/payment"
)

// IntentRef is the pair of identifiers persisted on intent creation so a
// reloaded session can resume the same checkout attempt.
type IntentRef struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// BasketRepository persists the serialized basket for one checkout session.
// Load returns (nil, nil) when nothing is stored or the stored value is
// malformed; a malformed basket is discarded, never partially applied.
type BasketRepository interface {
	LoadBasket(ctx context.Context, sessionID string) (*basket.Basket, error)
	SaveBasket(ctx context.Context, sessionID string, b basket.Basket) error
	ClearBasket(ctx context.Context, sessionID string) error
}

// IntentRepository persists payment-intent identifiers and the success
// receipt. LoadIntentRef returns (nil, nil) when absent.
type IntentRepository interface {
	SaveIntentRef(ctx context.Context, sessionID string, ref IntentRef) error
	LoadIntentRef(ctx context.Context, sessionID string) (*IntentRef, error)
	ClearIntentRef(ctx context.Context, sessionID string) error

	SaveReceipt(ctx context.Context, sessionID string, r payment.Receipt) error
	LoadReceipt(ctx context.Context, sessionID string) (*payment.Receipt, error)
}

// StateRepository is the full durable checkout state surface.
type StateRepository interface {
	BasketRepository
	IntentRepository
}
