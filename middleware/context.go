package middleware

import (
	"github.com/MrEthical07/shopAuth"
	"github.com/gin-gonic/gin"
)

// RequestContext attaches the client IP and User-Agent for audit events.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := shopAuth.WithClientIP(c.Request.Context(), c.ClientIP())
		ctx = shopAuth.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
