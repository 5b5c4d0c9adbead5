// internal/domain/catalog/dto.go
package catalog

type PlanListFilters struct {
	Currency  *string `form:"currency"`
	Recurring *bool   `form:"recurring"`
	Search    string  `form:"search"`
	Page      int     `form:"page"`
	PageSize  int     `form:"page_size"`
}

type PlanListResponse struct {
	Plans    []PricingPlan `json:"plans"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
