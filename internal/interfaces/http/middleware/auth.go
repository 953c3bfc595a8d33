package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/replygate/replygate/internal/infrastructure/auth"
	"github.com/replygate/replygate/internal/shared/constants"
	"github.com/replygate/replygate/internal/shared/logger"
	"github.com/replygate/replygate/internal/shared/utils"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
	logger     logger.Interface
}

func NewAuthMiddleware(jwtService *auth.JWTService, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

// RequireAuth verifies the bearer token and stores the claims.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := m.jwtService.Verify(parts[1])
		if err != nil {
			m.logger.Warnw("failed to verify token", "error", err)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyScope, string(claims.Scope))
		c.Set(constants.ContextKeyTenantSID, claims.TenantSID)

		c.Next()
	}
}

// RequireTenantAccess ensures the caller may touch the tenant named by
// the :sid route parameter. Admin tokens pass; tenant tokens must match.
func (m *AuthMiddleware) RequireTenantAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := c.GetString(constants.ContextKeyScope)
		if scope == string(auth.ScopeAdmin) {
			c.Next()
			return
		}

		if c.GetString(constants.ContextKeyTenantSID) != c.Param("sid") {
			utils.ErrorResponse(c, http.StatusForbidden, "token not authorized for this tenant")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to admin tokens.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(constants.ContextKeyScope) != string(auth.ScopeAdmin) {
			utils.ErrorResponse(c, http.StatusForbidden, "admin token required")
			c.Abort()
			return
		}
		c.Next()
	}
}
