// internal/domain/basket/dto.go
package basket

type AddItemRequest struct {
	PlanID       int64  `json:"plan_id" binding:"required"`
	BillingCycle string `json:"billing_cycle"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// View is the basket read model returned to clients: line items plus the
// derived totals.
type View struct {
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"total_items"`
	Total      OrderTotal `json:"total"`
}
