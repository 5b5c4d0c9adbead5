// internal/domain/basket/entity.go
package basket

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// Valid reports whether the cycle is one of the known values.
func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleAnnual
}

// Promotion is a per-plan promotional price: either a percentage off the list
// price or a fixed promotional price in minor units. At most one is set.
type Promotion struct {
	PercentOff      *float64 `json:"percent_off,omitempty"`
	FixedPriceMinor *int64   `json:"fixed_price_minor,omitempty"`
}

// LineItem is one basket entry. UnitAmountMinor is the monthly (or one-time)
// list price reference selected when the item was added; promotions and
// annual-commitment discounts are applied by the pricing engine, not stored
// here.
type LineItem struct {
	PlanID           int64        `json:"plan_id"`
	Name             string       `json:"name"`
	Package          string       `json:"package"`
	Measure          string       `json:"measure"`
	Currency         string       `json:"currency"`
	UnitAmountMinor  int64        `json:"unit_amount_minor"`
	IsRecurring      bool         `json:"is_recurring"`
	BillingCycle     BillingCycle `json:"billing_cycle"`
	CommitmentMonths int          `json:"commitment_months,omitempty"`
	AnnualDiscount   float64      `json:"annual_discount,omitempty"`
	Promotion        *Promotion   `json:"promotion,omitempty"`
	Quantity         int          `json:"quantity"`
}

// Key identifies a basket entry: one plan may appear once per billing cycle.
type Key struct {
	PlanID       int64
	BillingCycle BillingCycle
}

func (li *LineItem) Key() Key {
	return Key{PlanID: li.PlanID, BillingCycle: li.BillingCycle}
}

// Basket is the ordered collection of line items. No two entries share a key.
type Basket struct {
	Items []LineItem `json:"items"`
}

func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0
}

// Currency returns the basket currency: the first item's, defaulting to GBP.
func (b *Basket) Currency() string {
	if len(b.Items) > 0 && b.Items[0].Currency != "" {
		return b.Items[0].Currency
	}
	return "GBP"
}

// Validate checks structural invariants on a deserialized basket. A basket
// that fails validation is discarded wholesale, never partially applied.
func (b *Basket) Validate() bool {
	seen := make(map[Key]struct{}, len(b.Items))
	for i := range b.Items {
		li := &b.Items[i]
		if li.PlanID <= 0 || li.Quantity < 1 || li.UnitAmountMinor < 0 {
			return false
		}
		if !li.BillingCycle.Valid() {
			return false
		}
		if _, dup := seen[li.Key()]; dup {
			return false
		}
		seen[li.Key()] = struct{}{}
	}
	return true
}

// OrderTotal is a derived amount; it is always recomputed from the basket and
// the active discount, never mutated in place.
type OrderTotal struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}
