// internal/handlers/checkoutapi/checkout_handler.go
package checkoutapi

import (
	"net/http"
	"strings"

	domain "checkout-service/internal/domain/payment"
	"checkout-service/internal/middleware"
	"checkout-service/internal/pkg/response"
	"checkout-service/internal/service/checkout"
	"checkout-service/internal/service/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	manager  *checkout.Manager
	resolver *identity.Resolver
	logger   *zap.Logger
}

func NewCheckoutHandler(manager *checkout.Manager, resolver *identity.Resolver, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		manager:  manager,
		resolver: resolver,
		logger:   logger,
	}
}

// GetIntent handles POST /checkout/intent. It re-runs the basket trigger so a
// client can force the intent into existence, then returns the current view.
func (h *CheckoutHandler) GetIntent(c *gin.Context) {
	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	if err := co.HandleBasketChanged(c.Request.Context()); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "payment intent", intentView(co))
}

// ResolveIdentity handles POST /checkout/identity. The bearer token comes
// from the accounts service; a missing or invalid token leaves the checkout
// anonymous.
func (h *CheckoutHandler) ResolveIdentity(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.ValidationError(c, "missing bearer token", nil)
		return
	}

	id, err := h.resolver.Resolve(token)
	if err != nil {
		h.logger.Warn("identity resolution failed", zap.Error(err))
		response.Error(c, http.StatusUnauthorized, "invalid session token", err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	if err := co.HandleIdentityResolved(c.Request.Context(), *id); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "identity attached", intentView(co))
}

// ApplyPromo handles POST /checkout/promo
func (h *CheckoutHandler) ApplyPromo(c *gin.Context) {
	var req domain.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	pc, err := co.HandlePromoApplied(c.Request.Context(), req.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "promo code applied", gin.H{
		"promo_code": pc,
		"intent":     intentView(co),
	})
}

// Confirm handles POST /checkout/confirm
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req domain.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	receipt, err := co.HandleConfirmRequested(c.Request.Context(), req.PaymentMethod, req.Email)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "payment succeeded", receipt)
}

// GetReceipt handles GET /checkout/receipt
func (h *CheckoutHandler) GetReceipt(c *gin.Context) {
	co := h.manager.Get(c.Request.Context(), middleware.SessionID(c))
	receipt, err := co.Receipt(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	if receipt == nil {
		response.NotFound(c, "no receipt for this session")
		return
	}

	response.Success(c, http.StatusOK, "receipt", receipt)
}

func intentView(co *checkout.Checkout) domain.IntentView {
	intent := co.Intent()
	return domain.IntentView{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		AmountMinor:  intent.ChargeAmountMinor,
		Currency:     intent.Currency,
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
