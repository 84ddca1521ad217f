package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const identityContextKey = "identity"

// AuthMiddleware authenticates bearer tokens with a Verifier
type AuthMiddleware struct {
	BaseHandler
	verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		BaseHandler: NewBaseHandler(logger),
		verifier:    verifier,
	}
}

// Authenticate rejects requests without a valid bearer token and stores the caller identity
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			am.respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "authorization header missing", nil)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			am.respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "invalid authorization header format", nil)
			return
		}

		id, err := am.verifier.Verify(c.Request.Context(), tokenParts[1])
		if err != nil {
			utils.GetLogger(c, am.logger).Debug("Token rejected", "error", err)
			am.respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "invalid or expired token", nil)
			return
		}

		c.Set(identityContextKey, id)
		c.Set("user_id", id.UserID)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

// RequireRole only lets the listed roles through. Admins are always allowed.
func (am *AuthMiddleware) RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := am.caller(c)
		if !ok {
			return
		}

		if id.Role != models.RoleAdmin && !id.HasRole(roles...) {
			am.respondError(c, http.StatusForbidden, CodeForbidden,
				fmt.Sprintf("insufficient permissions, required role: %v", roles), nil)
			return
		}

		c.Next()
	}
}
