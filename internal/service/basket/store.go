// internal/service/basket/store.go
package basket

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/domain/basket"
	"checkout-service/internal/domain/catalog"
	"checkout-service/internal/pricing"
	"checkout-service/internal/repository/kv"

	"go.uber.org/zap"
)

const defaultDebounce = 300 * time.Millisecond

// Store owns the basket for one checkout session. All mutations go through
// it; readers get immutable snapshots. Every mutation schedules a debounced
// write of the full basket to the durable repository.
type Store struct {
	mu        sync.Mutex
	items     []basket.LineItem
	sessionID string
	repo      kv.BasketRepository
	logger    *zap.Logger
	debounce  time.Duration
	timer     *time.Timer
}

func NewStore(sessionID string, repo kv.BasketRepository, logger *zap.Logger) *Store {
	return &Store{
		sessionID: sessionID,
		repo:      repo,
		logger:    logger,
		debounce:  defaultDebounce,
	}
}

// WithDebounce overrides the persistence debounce interval, mostly for tests.
func (s *Store) WithDebounce(d time.Duration) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
	return s
}

// Load restores a previously persisted basket. Malformed persisted data has
// already been discarded by the repository, so whatever comes back is applied
// wholesale or not at all.
func (s *Store) Load(ctx context.Context) error {
	b, err := s.repo.LoadBasket(ctx, s.sessionID)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}

	s.mu.Lock()
	s.items = b.Items
	s.mu.Unlock()
	return nil
}

// Add puts a plan in the basket under the resolved billing cycle. A key
// already present has its quantity incremented rather than duplicated. The
// unit price reference is the annual one when the cycle is annual and the
// plan carries one; otherwise the standard reference with the annual
// discount left for the pricing engine.
func (s *Store) Add(plan *catalog.PricingPlan, cycle basket.BillingCycle) {
	if !cycle.Valid() {
		cycle = basket.CycleMonthly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := basket.Key{PlanID: plan.ID, BillingCycle: cycle}
	for i := range s.items {
		if s.items[i].Key() == key {
			s.items[i].Quantity++
			s.scheduleSaveLocked()
			return
		}
	}

	item := basket.LineItem{
		PlanID:          plan.ID,
		Name:            plan.ProductName,
		Package:         plan.Package,
		Measure:         plan.Measure,
		Currency:        plan.Currency,
		UnitAmountMinor: plan.PriceMinor,
		IsRecurring:     plan.IsRecurring(),
		BillingCycle:    cycle,
		Quantity:        1,
	}

	if plan.IsPromotion && plan.PromotionPriceMinor.Valid {
		fixed := plan.PromotionPriceMinor.Int64
		item.Promotion = &basket.Promotion{FixedPriceMinor: &fixed}
	}

	if cycle == basket.CycleAnnual && item.IsRecurring {
		item.CommitmentMonths = plan.CommitmentMonths()
		if plan.AnnualPriceMinor.Valid {
			// The annual reference price already embodies the discount.
			item.UnitAmountMinor = plan.AnnualPriceMinor.Int64
			item.Promotion = nil
		} else {
			item.AnnualDiscount = plan.AnnualSizeDiscount
		}
	}

	s.items = append(s.items, item)
	s.scheduleSaveLocked()
}

// SetQuantity sets the quantity for the entry holding planID. A quantity of
// zero or below removes the entry.
func (s *Store) SetQuantity(planID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.removeLocked(planID)
		s.scheduleSaveLocked()
		return
	}

	for i := range s.items {
		if s.items[i].PlanID == planID {
			s.items[i].Quantity = qty
			s.scheduleSaveLocked()
			return
		}
	}
}

// Remove deletes every entry for planID.
func (s *Store) Remove(planID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(planID)
	s.scheduleSaveLocked()
}

// Clear empties the basket and removes the persisted copy immediately,
// bypassing the debounce.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if err := s.repo.ClearBasket(ctx, s.sessionID); err != nil {
		s.logger.Warn("failed to clear persisted basket",
			zap.String("session_id", s.sessionID),
			zap.Error(err),
		)
	}
}

// Snapshot returns an immutable copy of the basket.
func (s *Store) Snapshot() basket.Basket {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]basket.LineItem, len(s.items))
	copy(items, s.items)
	for i := range items {
		if items[i].Promotion != nil {
			p := *items[i].Promotion
			items[i].Promotion = &p
		}
	}
	return basket.Basket{Items: items}
}

// TotalItems is the summed quantity across entries.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for i := range s.items {
		total += s.items[i].Quantity
	}
	return total
}

// TotalValue is the undiscounted order total, recomputed from the current
// basket on every call.
func (s *Store) TotalValue() basket.OrderTotal {
	return pricing.OrderTotal(s.Snapshot())
}

// Flush forces any pending debounced write to happen now.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.save(ctx)
}

func (s *Store) removeLocked(planID int64) {
	kept := s.items[:0]
	for i := range s.items {
		if s.items[i].PlanID != planID {
			kept = append(kept, s.items[i])
		}
	}
	s.items = kept
}

func (s *Store) scheduleSaveLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.save(ctx)
	})
}

func (s *Store) save(ctx context.Context) {
	snapshot := s.Snapshot()
	if err := s.repo.SaveBasket(ctx, s.sessionID, snapshot); err != nil {
		s.logger.Warn("failed to persist basket",
			zap.String("session_id", s.sessionID),
			zap.Error(err),
		)
	}
}
