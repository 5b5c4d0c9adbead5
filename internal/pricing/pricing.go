// internal/pricing/pricing.go
package pricing

import (
	"math"

	"checkout-service/internal/domain/basket"
)

// UnitAmount computes the chargeable amount for one unit of a line item under
// its billing cycle, in minor units. No intermediate rounding: amounts stay
// integral until the single final rounding of the discount multiplication.
func UnitAmount(item basket.LineItem) int64 {
	base := promotedBase(item)

	if item.BillingCycle == basket.CycleAnnual && item.IsRecurring && item.CommitmentMonths > 0 {
		committed := base * int64(item.CommitmentMonths)
		return applyMultiplier(committed, annualMultiplier(item.AnnualDiscount))
	}

	return base
}

// OrderTotal computes the undiscounted total for a basket in a single pass.
// BasketStore and the checkout orchestrator both call this; the results must
// be identical for the same basket.
func OrderTotal(b basket.Basket) basket.OrderTotal {
	var sum int64
	for i := range b.Items {
		sum += UnitAmount(b.Items[i]) * int64(b.Items[i].Quantity)
	}
	return basket.OrderTotal{AmountMinor: sum, Currency: b.Currency()}
}

// DiscountedTotal applies a percentage discount to a minor-unit amount.
// The percent is clamped to [0,100] before use.
func DiscountedTotal(amountMinor int64, discountPercent float64) int64 {
	if discountPercent <= 0 {
		return amountMinor
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	return int64(math.Round(float64(amountMinor) * (100 - discountPercent) / 100))
}

func promotedBase(item basket.LineItem) int64 {
	base := item.UnitAmountMinor
	if item.Promotion == nil {
		return base
	}
	if item.Promotion.FixedPriceMinor != nil {
		return *item.Promotion.FixedPriceMinor
	}
	if item.Promotion.PercentOff != nil {
		return DiscountedTotal(base, *item.Promotion.PercentOff)
	}
	return base
}

// annualMultiplier supports both stored representations of the annual
// discount: values above 1 are whole-number percents, values in (0,1] are
// legacy "keep this fraction" multipliers. Catalog loading normalizes rows to
// percent, so the fractional branch only fires for baskets persisted before
// the migration.
func annualMultiplier(discount float64) float64 {
	switch {
	case discount > 1:
		return (100 - discount) / 100
	case discount > 0:
		return discount
	default:
		return 1
	}
}

func applyMultiplier(amountMinor int64, multiplier float64) int64 {
	if multiplier == 1 {
		return amountMinor
	}
	return int64(math.Round(float64(amountMinor) * multiplier))
}
