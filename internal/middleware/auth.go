package middleware

import (
	"net/http"
	"strings"

	"github.com/campusdesk/portal/internal/token"
	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding the caller's *token.Claims
const ClaimsKey = "claims"

// TokenValidator validates bearer access tokens
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// Auth creates an authentication middleware
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}

		// Extract token (format: "Bearer TOKEN")
		tokenString, ok := strings.CutPrefix(authHeader, token.TokenTypeBearer+" ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authorization header must contain two space-delimited values",
				"code":   "bad_authorization_header",
			})
			return
		}

		claims, err := validator.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims set by Auth
func Claims(c *gin.Context) *token.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.Claims)
	return claims
}
