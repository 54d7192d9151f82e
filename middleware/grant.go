package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/shopAuth"
	"github.com/gin-gonic/gin"
)

// PhoneGrantHeader carries the grant minted by OTP verification.
const PhoneGrantHeader = "X-Phone-Grant"

// RequirePhoneGrant admits requests bearing a valid phone grant. The check
// is stateless: no record store call is made.
func RequirePhoneGrant(engine *shopAuth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		grant := strings.TrimSpace(c.GetHeader(PhoneGrantHeader))
		if grant == "" {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"success": false, "code": http.StatusUnauthorized})
			return
		}

		phone, err := engine.ParsePhoneGrant(grant)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"success": false, "code": http.StatusUnauthorized})
			return
		}

		c.Set(ginPhoneKey, phone)
		c.Next()
	}
}

// Phone returns the number attached by [RequirePhoneGrant].
func Phone(c *gin.Context) string {
	return c.GetString(ginPhoneKey)
}
