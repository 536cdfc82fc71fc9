package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/pkg/utils"
)

// Context keys set by AuthMiddleware.
const (
	SessionKey  = "session"
	UserIDKey   = "userID"
	UsernameKey = "username"
	UserRoleKey = "userRole"
)

// SessionAuthorizer is the part of the auth service the middleware needs.
type SessionAuthorizer interface {
	SessionFromToken(ctx context.Context, token string) (*models.Session, error)
	Authorize(ctx context.Context, session *models.Session, roles ...models.Role) (bool, error)
}

// AuthMiddleware resolves the bearer token into a session and stores it in the context.
func AuthMiddleware(auth SessionAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Authorization header required", ""))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Invalid authorization header format. Use Bearer <token>", ""))
			return
		}

		session, err := auth.SessionFromToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, utils.ErrInvalidToken) {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
					"Invalid or expired token", err.Error()))
				return
			}
			utils.LogError(err, "AuthMiddleware: resolving session")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
				"Failed to verify session", ""))
			return
		}

		c.Set(SessionKey, session)
		c.Set(UserIDKey, session.AccountID)
		c.Set(UsernameKey, session.Username)
		c.Set(UserRoleKey, session.Role)

		c.Next()
	}
}

// RequireRoles gates a route on the session role. The account must also still
// be active with the role its token was issued for.
func RequireRoles(auth SessionAuthorizer, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized,
				"Session not found. Ensure AuthMiddleware runs first.", ""))
			return
		}

		allowed, err := auth.Authorize(c.Request.Context(), session, allowedRoles...)
		if err != nil {
			utils.LogError(err, "RequireRoles: authorizing session")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError,
				"Failed to authorize request", ""))
			return
		}
		if !allowed {
			names := make([]string, len(allowedRoles))
			for i, r := range allowedRoles {
				names[i] = r.String()
			}
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
				"You do not have permission to access this resource", "required roles: "+strings.Join(names, ", ")))
			return
		}

		c.Next()
	}
}

// SessionFromContext returns the session stored by AuthMiddleware.
func SessionFromContext(c *gin.Context) (*models.Session, bool) {
	v, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*models.Session)
	return session, ok && session != nil
}
