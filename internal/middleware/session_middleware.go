// internal/middleware/session_middleware.go
package middleware

import (
	"crypto/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const sessionHeader = "X-Checkout-Session"

// SessionMiddleware binds every request to a checkout session. A client
// without a session header gets a fresh ULID minted and echoed back so it can
// be replayed on subsequent requests.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(sessionHeader)
		if sid == "" {
			sid = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
		c.Set("session_id", sid)
		c.Writer.Header().Set(sessionHeader, sid)
		c.Next()
	}
}

// SessionID returns the session bound by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString("session_id")
}
