// internal/domain/catalog/entity.go
package catalog

import (
	"database/sql"
	"strings"
	"time"
)

// PricingPlan is one storefront plan row: the processor price references a
// basket line item is built from. All monetary amounts are minor units.
type PricingPlan struct {
	ID          int64          `json:"id" db:"id"`
	ProductName string         `json:"product_name" db:"product_name"`
	Package     string         `json:"package" db:"package"`
	Measure     string         `json:"measure" db:"measure"`
	Description sql.NullString `json:"description,omitempty" db:"description"`

	// Pricing
	PriceMinor          int64         `json:"price_minor" db:"price"`
	Currency            string        `json:"currency" db:"currency"`
	IsPromotion         bool          `json:"is_promotion" db:"is_promotion"`
	PromotionPriceMinor sql.NullInt64 `json:"promotion_price_minor,omitempty" db:"promotion_price"`

	// Recurrence. Empty interval means one-time.
	RecurringInterval      sql.NullString `json:"recurring_interval,omitempty" db:"recurring_interval"`
	RecurringIntervalCount sql.NullInt32  `json:"recurring_interval_count,omitempty" db:"recurring_interval_count"`

	// Annual-commitment references. AnnualPriceMinor is the per-month price
	// when billed annually, already discounted; AnnualSizeDiscount is a
	// whole-number percent (see NormalizeAnnualDiscount for legacy rows).
	AnnualPriceMinor   sql.NullInt64 `json:"annual_price_minor,omitempty" db:"annual_price"`
	AnnualSizeDiscount float64       `json:"annual_size_discount" db:"annual_size_discount"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsRecurring reports whether the plan bills on an interval.
func (p *PricingPlan) IsRecurring() bool {
	return p.RecurringInterval.Valid && p.RecurringInterval.String != ""
}

// CommitmentMonths returns how many interval charges one annual commitment
// covers. An explicit recurring_interval_count wins; otherwise the count is
// derived from the interval name.
func (p *PricingPlan) CommitmentMonths() int {
	if p.RecurringIntervalCount.Valid && p.RecurringIntervalCount.Int32 > 0 {
		return int(p.RecurringIntervalCount.Int32)
	}
	switch strings.ToLower(p.RecurringInterval.String) {
	case "month", "monthly":
		return 12
	case "week", "weekly":
		return 52
	case "day", "daily":
		return 365
	case "quarter", "quarterly":
		return 4
	case "year", "annually", "annual":
		return 1
	default:
		return 1
	}
}

// NormalizeAnnualDiscount converts the legacy fractional-multiplier form of
// the annual discount into the canonical whole-number percent. Values in
// (0, 1] were stored as "keep this fraction of the price"; everything else is
// already a percent.
func NormalizeAnnualDiscount(raw float64) float64 {
	if raw > 0 && raw <= 1 {
		return (1 - raw) * 100
	}
	return raw
}
