package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/services"
	"go.uber.org/zap"
)

// ClaimsKey holds the verified services.ClaimSet of the request.
const ClaimsKey = "claims"

// TokenSubjectKey holds the token subject; the rate limiter keys on it.
const TokenSubjectKey = "token_id"

// Authorizer verifies a bearer token and checks a permission.
type Authorizer interface {
	Authorize(ctx context.Context, authHeader, requiredPermission string) (services.ClaimSet, error)
}

// RequiresAuth rejects the request unless its bearer token is valid and
// grants permission. An empty permission only requires a valid token.
func RequiresAuth(authorizer Authorizer, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)

		claims, err := authorizer.Authorize(c.Request.Context(), c.GetHeader("Authorization"), permission)
		if err != nil {
			var authErr *services.AuthError
			if errors.As(err, &authErr) {
				logger.Info("Authorization rejected",
					zap.String("code", authErr.Code),
					zap.Int("status", authErr.Status),
					zap.String("permission", permission))
			} else {
				logger.Error("Authorization failed", zap.Error(err))
			}
			c.Error(err)
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		if sub := claims.Subject(); sub != "" {
			c.Set(TokenSubjectKey, sub)
		}
		c.Next()
	}
}

// GetClaims returns the claims stored by RequiresAuth.
func GetClaims(c *gin.Context) (services.ClaimSet, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(services.ClaimSet)
	return claims, ok
}
