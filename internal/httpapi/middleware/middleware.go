package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/datawise/explore-assistant/internal/common"
)

const RequestIDHeader = "X-Request-ID"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

// Recovery converts panics into the standard error envelope without leaking
// stack traces to the caller.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				common.Detail(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// BearerAuth rejects requests without a valid bearer credential. The token
// value itself is never logged.
func BearerAuth(validate func(c *gin.Context, token string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			log.Printf("[BearerAuth] missing or malformed Authorization header on %s", c.Request.URL.Path)
			common.Detail(c, http.StatusForbidden, "Invalid token")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if !validate(c, token) {
			common.Detail(c, http.StatusForbidden, "Invalid token")
			c.Abort()
			return
		}
		c.Next()
	}
}
