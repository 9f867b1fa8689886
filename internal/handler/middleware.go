package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coinhatch/coinhatch/pkg/jwt"
	"github.com/coinhatch/coinhatch/pkg/log"
	"github.com/coinhatch/coinhatch/pkg/response"
)

const (
	claimsKey     = "identity_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddleware validates tokens from the external identity provider.
type AuthMiddleware struct {
	verifier *jwt.Verifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier *jwt.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth returns a Gin middleware that rejects requests without a
// valid bearer token and stores the verified claims in the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		claims, err := m.verifier.Verify(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Set(log.FieldSubject, claims.Subject)
		c.Set(log.FieldUsername, claims.Username)

		c.Next()
	}
}

// GetClaims extracts the verified claims from the Gin context.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*jwt.Claims)
	return claims, ok
}
