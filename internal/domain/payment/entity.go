// internal/domain/payment/entity.go
package payment

type IntentStatus string

const (
	StatusNone       IntentStatus = "none"
	StatusCreating   IntentStatus = "creating"
	StatusActive     IntentStatus = "active"
	StatusUpdating   IntentStatus = "updating"
	StatusConfirming IntentStatus = "confirming"
	StatusSucceeded  IntentStatus = "succeeded"
	StatusFailed     IntentStatus = "failed"
)

// InFlight reports whether the processor may still act on this intent.
func (s IntentStatus) InFlight() bool {
	return s == StatusActive || s == StatusUpdating || s == StatusConfirming
}

// PaymentIntent mirrors the remote processor resource for one checkout
// attempt. ClientSecret is immutable for the life of the attempt unless a
// promo code forces regeneration.
type PaymentIntent struct {
	ID                string       `json:"id,omitempty"`
	ClientSecret      string       `json:"client_secret,omitempty"`
	Status            IntentStatus `json:"status"`
	ChargeAmountMinor int64        `json:"charge_amount_minor"`
	Currency          string       `json:"currency,omitempty"`
	PromoCodeID       string       `json:"promo_code_id,omitempty"`
	CustomerEmail     string       `json:"customer_email,omitempty"`
}

// PromoCode is a validated discount. DiscountPercent is clamped to [0,100];
// zero is a valid discount distinct from failure.
type PromoCode struct {
	ID              string  `json:"id"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Receipt is the authoritative captured amount reported by the processor's
// verify endpoint after a successful confirmation.
type Receipt struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// Identity is the customer identity resolved from the external session
// lookup. Once known, the email is never unset except by a full reset.
type Identity struct {
	CustomerEmail string `json:"customer_email,omitempty"`
}
