// internal/service/checkout/manager.go
package checkout

import (
	"context"
	"sync"

	"checkout-service/internal/repository/kv"
	"checkout-service/internal/service/basket"
	"checkout-service/internal/service/payment"
	"checkout-service/internal/service/promo"

	"go.uber.org/zap"
)

// Manager hands out one Checkout per session, recovering persisted state the
// first time a session is seen.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Checkout

	gateway payment.IntentGateway
	promo   promo.Gateway
	repo    kv.StateRepository
	logger  *zap.Logger
}

func NewManager(gateway payment.IntentGateway, promoGateway promo.Gateway, repo kv.StateRepository, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Checkout),
		gateway:  gateway,
		promo:    promoGateway,
		repo:     repo,
		logger:   logger,
	}
}

// Get returns the session's checkout, building and recovering it on first
// touch. Recovery failures degrade to a fresh checkout rather than blocking
// the session.
func (m *Manager) Get(ctx context.Context, sessionID string) *Checkout {
	m.mu.Lock()
	if co, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return co
	}
	m.mu.Unlock()

	logger := m.logger.With(zap.String("session_id", sessionID))
	store := basket.NewStore(sessionID, m.repo, logger)
	controller := payment.NewController(sessionID, m.gateway, m.repo, logger)
	validator := promo.NewValidator(m.promo, logger)
	co := NewCheckout(sessionID, store, controller, validator, m.repo, logger)

	if err := co.Recover(ctx); err != nil {
		logger.Warn("session recovery failed, starting fresh", zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		// Another request built this session first.
		return existing
	}
	m.sessions[sessionID] = co
	return co
}

// Drop removes a session's checkout from memory. Persisted state survives so
// the session can be recovered again later.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
