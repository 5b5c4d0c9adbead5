// internal/service/catalog/catalog.go
package catalog

import (
	"context"
	"fmt"

	"checkout-service/internal/domain/catalog"
	"checkout-service/internal/repository/postgres"

	"go.uber.org/zap"
)

type PlanService struct {
	planRepo *postgres.PricingPlanRepository
	logger   *zap.Logger
}

func NewPlanService(planRepo *postgres.PricingPlanRepository, logger *zap.Logger) *PlanService {
	return &PlanService{
		planRepo: planRepo,
		logger:   logger,
	}
}

// GetPlan fetches one active plan by id.
func (s *PlanService) GetPlan(ctx context.Context, id int64) (*catalog.PricingPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan %d: %w", id, err)
	}
	return plan, nil
}

// ListPlans returns a page of active plans matching the filters.
func (s *PlanService) ListPlans(ctx context.Context, filters *catalog.PlanListFilters) (*catalog.PlanListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	plans, total, err := s.planRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return &catalog.PlanListResponse{
		Plans:    plans,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	}, nil
}
