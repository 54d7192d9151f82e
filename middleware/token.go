package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/shopAuth"
	"github.com/gin-gonic/gin"
)

const (
	ginEmailKey = "shopauth.email"
	ginPhoneKey = "shopauth.phone"
)

// RequireToken is the gin form of [Guard]. A rejected request gets HTTP 200
// with {"success": false, "code": <engine code>}.
func RequireToken(engine *shopAuth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, res, err := engine.VerifyAuthorizationHeader(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil || !res.OK() {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{
				"success": false,
				"code":    res.Code,
			})
			return
		}

		c.Set(ginEmailKey, email)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), emailContextKey{}, email))
		c.Next()
	}
}

// Email returns the email attached by [RequireToken].
func Email(c *gin.Context) string {
	return c.GetString(ginEmailKey)
}
