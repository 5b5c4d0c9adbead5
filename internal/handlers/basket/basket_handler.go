// internal/handlers/basket/basket_handler.go
package basket

import (
	"net/http"
	"strconv"

	domain "checkout-service/internal/domain/basket"
	"checkout-service/internal/middleware"
	"checkout-service/internal/pkg/response"
	"checkout-service/internal/service/catalog"
	"checkout-service/internal/service/checkout"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BasketHandler struct {
	manager     *checkout.Manager
	planService *catalog.PlanService
	logger      *zap.Logger
}

func NewBasketHandler(manager *checkout.Manager, planService *catalog.PlanService, logger *zap.Logger) *BasketHandler {
	return &BasketHandler{
		manager:     manager,
		planService: planService,
		logger:      logger,
	}
}

// AddItem handles POST /basket/items
func (h *BasketHandler) AddItem(c *gin.Context) {
	var req domain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	cycle := domain.BillingCycle(req.BillingCycle)
	if req.BillingCycle != "" && !cycle.Valid() {
		response.ValidationError(c, "invalid billing cycle", nil)
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), req.PlanID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	co.Store().Add(plan, cycle)
	if err := co.HandleBasketChanged(c.Request.Context()); err != nil {
		h.logger.Error("payment sync failed after add",
			zap.Int64("plan_id", req.PlanID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "item added", h.view(co))
}

// UpdateQuantity handles PATCH /basket/items/:plan_id
func (h *BasketHandler) UpdateQuantity(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("plan_id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid plan id", err)
		return
	}

	var req domain.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	co.Store().SetQuantity(planID, req.Quantity)
	if err := co.HandleBasketChanged(c.Request.Context()); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "quantity updated", h.view(co))
}

// RemoveItem handles DELETE /basket/items/:plan_id
func (h *BasketHandler) RemoveItem(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("plan_id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid plan id", err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	co.Store().Remove(planID)
	if err := co.HandleBasketChanged(c.Request.Context()); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "item removed", h.view(co))
}

// ClearBasket handles DELETE /basket
func (h *BasketHandler) ClearBasket(c *gin.Context) {
	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	co.Store().Clear(c.Request.Context())

	response.Success(c, http.StatusOK, "basket cleared", h.view(co))
}

// GetBasket handles GET /basket
func (h *BasketHandler) GetBasket(c *gin.Context) {
	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	response.Success(c, http.StatusOK, "basket retrieved", h.view(co))
}

func (h *BasketHandler) view(co *checkout.Checkout) domain.View {
	snapshot := co.Store().Snapshot()
	return domain.View{
		Items:      snapshot.Items,
		TotalItems: co.Store().TotalItems(),
		Total:      co.Store().TotalValue(),
	}
}
