// internal/domain/payment/dto.go
package payment

type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

type ConfirmRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	Email         string `json:"email"`
}

// IntentView is what clients need to drive the payment form: the secret, the
// chargeable amount and the lifecycle status.
type IntentView struct {
	IntentID     string       `json:"intent_id,omitempty"`
	ClientSecret string       `json:"client_secret,omitempty"`
	Status       IntentStatus `json:"status"`
	AmountMinor  int64        `json:"amount_minor"`
	Currency     string       `json:"currency,omitempty"`
}
