// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "checkout-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError maps the checkout error taxonomy onto an HTTP response.
// Confirmation failures surface their user-safe message; everything else maps
// onto the closest status with the sentinel text.
func FromError(c *gin.Context, err error) {
	if ce, ok := xerrors.AsConfirmation(err); ok {
		Error(c, http.StatusPaymentRequired, ce.UserMessage(), nil)
		return
	}

	switch {
	case xerrors.Is(err, xerrors.ErrEmptyCode), xerrors.Is(err, xerrors.ErrInvalidInput):
		Error(c, http.StatusBadRequest, "invalid input", err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, "not found", err)
	case xerrors.Is(err, xerrors.ErrRemoteRejected):
		Error(c, http.StatusUnprocessableEntity, "request rejected", err)
	case xerrors.Is(err, xerrors.ErrCallInFlight):
		Error(c, http.StatusConflict, "another payment operation is in progress", err)
	case xerrors.Is(err, xerrors.ErrNetwork):
		Error(c, http.StatusBadGateway, "payment service unavailable", err)
	default:
		Error(c, http.StatusInternalServerError, "internal error", err)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
