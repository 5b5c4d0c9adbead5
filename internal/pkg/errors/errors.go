package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal server error")

	// ErrEmptyCode is returned when a promo code is empty; no remote call is made.
	ErrEmptyCode = errors.New("promo code is empty")

	// ErrNetwork marks a transport-level failure. Only promo validation may
	// retry on it.
	ErrNetwork = errors.New("network failure")

	// ErrRemoteRejected marks a non-2xx response or an explicit success:false
	// from a remote endpoint. Never retried.
	ErrRemoteRejected = errors.New("rejected by remote endpoint")

	// ErrCallInFlight is returned when a payment-intent call is dropped
	// because another one is already in flight for the same controller.
	ErrCallInFlight = errors.New("payment intent call already in flight")

	// ErrStaleContext marks an async flow that resolved after its owning
	// context was torn down. Callers swallow it without mutating state.
	ErrStaleContext = errors.New("context torn down mid-flight")

	// ErrIntentNotCreated is returned when an update is requested before any
	// payment intent exists.
	ErrIntentNotCreated = errors.New("payment intent not created")
)

// ConfirmationClass splits processor confirmation failures into the class
// that is safe to show verbatim and everything else.
type ConfirmationClass string

const (
	ConfirmationCard       ConfirmationClass = "card"
	ConfirmationValidation ConfirmationClass = "validation"
	ConfirmationUnexpected ConfirmationClass = "unexpected"
)

// ConfirmationError is a processor-reported confirmation failure. Card and
// validation class messages are user-facing; unexpected class messages are
// replaced with a generic one and logged.
type ConfirmationError struct {
	Class   ConfirmationClass
	Message string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("payment confirmation failed (%s): %s", e.Class, e.Message)
}

// UserMessage returns the message safe to surface to the customer.
func (e *ConfirmationError) UserMessage() string {
	if e.Class == ConfirmationCard || e.Class == ConfirmationValidation {
		return e.Message
	}
	return "An unexpected error occurred while processing your payment. Please try again."
}

// Retryable reports whether the same intent can be confirmed again.
// Confirmation failures never invalidate the intent.
func (e *ConfirmationError) Retryable() bool {
	return true
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// AsConfirmation extracts a ConfirmationError if err carries one.
func AsConfirmation(err error) (*ConfirmationError, bool) {
	var ce *ConfirmationError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
