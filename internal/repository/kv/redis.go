// internal/repository/kv/redis.go
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/domain/basket"
	"checkout-service/internal/domain/payment"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Checkout state lives as long as an abandoned basket is worth keeping.
const stateTTL = 7 * 24 * time.Hour

type RedisRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisRepository(client *redis.Client, logger *zap.Logger) *RedisRepository {
	return &RedisRepository{client: client, logger: logger}
}

func basketKey(sessionID string) string {
	return "checkout:" + sessionID + ":basket"
}

func intentKey(sessionID string) string {
	return "checkout:" + sessionID + ":intent"
}

func receiptKey(sessionID string) string {
	return "checkout:" + sessionID + ":receipt"
}

func (r *RedisRepository) LoadBasket(ctx context.Context, sessionID string) (*basket.Basket, error) {
	raw, err := r.client.Get(ctx, basketKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load basket: %w", err)
	}

	var b basket.Basket
	if err := json.Unmarshal(raw, &b); err != nil || !b.Validate() {
		r.logger.Warn("discarding malformed persisted basket",
			zap.String("session_id", sessionID),
		)
		if delErr := r.client.Del(ctx, basketKey(sessionID)).Err(); delErr != nil {
			r.logger.Warn("failed to delete malformed basket", zap.Error(delErr))
		}
		return nil, nil
	}

	return &b, nil
}

func (r *RedisRepository) SaveBasket(ctx context.Context, sessionID string, b basket.Basket) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal basket: %w", err)
	}
	if err := r.client.Set(ctx, basketKey(sessionID), raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save basket: %w", err)
	}
	return nil
}

func (r *RedisRepository) ClearBasket(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, basketKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear basket: %w", err)
	}
	return nil
}

func (r *RedisRepository) SaveIntentRef(ctx context.Context, sessionID string, ref IntentRef) error {
	raw, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to marshal intent ref: %w", err)
	}
	if err := r.client.Set(ctx, intentKey(sessionID), raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save intent ref: %w", err)
	}
	return nil
}

func (r *RedisRepository) LoadIntentRef(ctx context.Context, sessionID string) (*IntentRef, error) {
	raw, err := r.client.Get(ctx, intentKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load intent ref: %w", err)
	}

	var ref IntentRef
	if err := json.Unmarshal(raw, &ref); err != nil || ref.ID == "" || ref.ClientSecret == "" {
		r.logger.Warn("discarding malformed persisted intent ref",
			zap.String("session_id", sessionID),
		)
		return nil, nil
	}
	return &ref, nil
}

func (r *RedisRepository) ClearIntentRef(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, intentKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear intent ref: %w", err)
	}
	return nil
}

func (r *RedisRepository) SaveReceipt(ctx context.Context, sessionID string, rec payment.Receipt) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}
	if err := r.client.Set(ctx, receiptKey(sessionID), raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (r *RedisRepository) LoadReceipt(ctx context.Context, sessionID string) (*payment.Receipt, error) {
	raw, err := r.client.Get(ctx, receiptKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}

	var rec payment.Receipt
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}
