// internal/handlers/plans/plans_handler.go
package plans

import (
	"net/http"
	"strconv"

	domain "checkout-service/internal/domain/catalog"
	"checkout-service/internal/pkg/response"
	"checkout-service/internal/service/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlansHandler struct {
	planService *catalog.PlanService
	logger      *zap.Logger
}

func NewPlansHandler(planService *catalog.PlanService, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{
		planService: planService,
		logger:      logger,
	}
}

// ListPlans handles GET /plans
func (h *PlansHandler) ListPlans(c *gin.Context) {
	var filters domain.PlanListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid filters", err)
		return
	}

	resp, err := h.planService.ListPlans(c.Request.Context(), &filters)
	if err != nil {
		h.logger.Error("failed to list plans", zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", resp)
}

// GetPlan handles GET /plans/:id
func (h *PlansHandler) GetPlan(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid plan id", err)
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "plan retrieved", plan)
}
