// internal/processor/client.go
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	xerrors "checkout-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Client talks to the payment processor gateway over JSON/HTTP. It performs
// no retries of its own; retry policy belongs to the callers.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// ItemSummary is the per-line metadata the processor stores on the intent.
type ItemSummary struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Package string `json:"package"`
	Measure string `json:"measure"`
}

type IntentMetadata struct {
	ItemCount int           `json:"itemCount"`
	ItemIDs   string        `json:"itemIds"`
	Items     []ItemSummary `json:"items"`
}

// IntentRequest creates a fresh intent, replaces one (promo applied), or
// updates one in place (ExistingIntentID set). IdentityOnlyUpdate carries the
// customer email without touching the charge amount or discount.
type IntentRequest struct {
	AmountMinor        int64          `json:"amountMinor"`
	Currency           string         `json:"currency"`
	Metadata           IntentMetadata `json:"metadata"`
	PromoCodeID        string         `json:"promoCodeId,omitempty"`
	ExistingIntentID   string         `json:"existingIntentId,omitempty"`
	CustomerEmail      string         `json:"customerEmail,omitempty"`
	IdentityOnlyUpdate bool           `json:"identityOnlyUpdate"`
}

type IntentResponse struct {
	ID                    string  `json:"id"`
	ClientSecret          string  `json:"clientSecret"`
	DiscountedAmountMinor int64   `json:"discountedAmountMinor"`
	DiscountPercent       float64 `json:"discountPercent"`
}

type PromoValidationResponse struct {
	Success         bool    `json:"success"`
	DiscountPercent float64 `json:"discountPercent"`
	PromoCodeID     string  `json:"promoCodeId"`
	Error           string  `json:"error"`
}

type VerifyResponse struct {
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

type ConfirmRequest struct {
	ClientSecret  string `json:"clientSecret"`
	PaymentMethod string `json:"paymentMethod"`
	ReceiptEmail  string `json:"receiptEmail,omitempty"`
}

type confirmFailure struct {
	ErrorClass string `json:"errorClass"`
	Error      string `json:"error"`
}

// CreateOrUpdateIntent issues the single intent endpoint call. Any non-2xx
// response is a hard failure with no partial interpretation.
func (c *Client) CreateOrUpdateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	var resp IntentResponse
	if err := c.post(ctx, "/payment-intents", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.ClientSecret == "" {
		return nil, fmt.Errorf("%w: intent response missing identifiers", xerrors.ErrRemoteRejected)
	}
	return &resp, nil
}

// ValidatePromoCode submits one validation attempt. A transport failure wraps
// ErrNetwork (retryable by the caller); a non-2xx status or success:false
// wraps ErrRemoteRejected (never retried).
func (c *Client) ValidatePromoCode(ctx context.Context, code string, currentTotalMinor int64) (*PromoValidationResponse, error) {
	req := struct {
		Code              string `json:"code"`
		CurrentTotalMinor int64  `json:"currentTotalMinor"`
	}{Code: code, CurrentTotalMinor: currentTotalMinor}

	var resp PromoValidationResponse
	if err := c.post(ctx, "/promo-codes/validate", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "promo code not accepted"
		}
		return nil, fmt.Errorf("%w: %s", xerrors.ErrRemoteRejected, msg)
	}
	return &resp, nil
}

// VerifyIntent fetches the authoritative captured amount for an intent.
func (c *Client) VerifyIntent(ctx context.Context, intentID string) (*VerifyResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/payment-intents/"+intentID+"/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	var resp VerifyResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmIntent submits payment details for confirmation. Failures come back
// as *xerrors.ConfirmationError with the card/validation class preserved.
func (c *Client) ConfirmIntent(ctx context.Context, intentID string, req ConfirmRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal confirm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payment-intents/"+intentID+"/confirm", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(httpResp.Body)
	var failure confirmFailure
	_ = json.Unmarshal(raw, &failure)

	class := xerrors.ConfirmationUnexpected
	switch failure.ErrorClass {
	case "card":
		class = xerrors.ConfirmationCard
	case "validation":
		class = xerrors.ConfirmationValidation
	}
	msg := failure.Error
	if msg == "" {
		msg = fmt.Sprintf("confirmation returned status %d", httpResp.StatusCode)
	}

	return &xerrors.ConfirmationError{Class: class, Message: msg}
}

func (c *Client) post(ctx context.Context, path string, reqBody, out interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", xerrors.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("processor request rejected",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d: %s", xerrors.ErrRemoteRejected, resp.StatusCode, truncate(raw, 256))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", xerrors.ErrRemoteRejected, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
