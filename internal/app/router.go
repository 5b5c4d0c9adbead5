// internal/app/router.go
package app

import (
	basketHandler "checkout-service/internal/handlers/basket"
	checkoutHandler "checkout-service/internal/handlers/checkoutapi"
	plansHandler "checkout-service/internal/handlers/plans"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	PlansHandler    *plansHandler.PlansHandler
	BasketHandler   *basketHandler.BasketHandler
	CheckoutHandler *checkoutHandler.CheckoutHandler
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Pricing Plans ====================
	plans := api.Group("/plans")
	{
		plans.GET("", h.PlansHandler.ListPlans)
		plans.GET("/:id", h.PlansHandler.GetPlan)
	}

	// ==================== Basket ====================
	basket := api.Group("/basket")
	{
		basket.GET("", h.BasketHandler.GetBasket)
		basket.DELETE("", h.BasketHandler.ClearBasket)
		basket.POST("/items", h.BasketHandler.AddItem)
		basket.PATCH("/items/:plan_id", h.BasketHandler.UpdateQuantity)
		basket.DELETE("/items/:plan_id", h.BasketHandler.RemoveItem)
	}

	// ==================== Checkout ====================
	checkout := api.Group("/checkout")
	{
		checkout.POST("/intent", h.CheckoutHandler.GetIntent)
		checkout.POST("/identity", h.CheckoutHandler.ResolveIdentity)
		checkout.POST("/promo", h.CheckoutHandler.ApplyPromo)
		checkout.POST("/confirm", h.CheckoutHandler.Confirm)
		checkout.GET("/receipt", h.CheckoutHandler.GetReceipt)
	}
}
