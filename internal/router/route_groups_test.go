package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"winery_backend/internal/handlers"
	"winery_backend/internal/middleware"
	"winery_backend/internal/models"
)

// inactiveAccountAuth resolves every token but refuses authorization, as the
// auth service does for a deactivated account.
type inactiveAccountAuth struct {
	authorizeCalls int
	gotRoles       []models.Role
}

func (a *inactiveAccountAuth) SessionFromToken(_ context.Context, _ string) (*models.Session, error) {
	return &models.Session{AccountID: 9, Username: "barrique", Role: models.RoleSupplier}, nil
}

func (a *inactiveAccountAuth) Authorize(_ context.Context, _ *models.Session, roles ...models.Role) (bool, error) {
	a.authorizeCalls++
	a.gotRoles = roles
	return false, nil
}

func TestSelfServiceRoutesRefuseDeactivatedSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPut, "/api/v1/auth/password", `{"old_password":"barrique-password","new_password":"taken-over-123"}`},
		{http.MethodGet, "/api/v1/auth/me", ""},
		{http.MethodPost, "/api/v1/auth/logout", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			auth := &inactiveAccountAuth{}
			engine := gin.New()
			authenticated := engine.Group("/api/v1")
			authenticated.Use(middleware.AuthMiddleware(auth))
			// the handler is never reached, so it needs no service
			SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), auth, handlers.NewAuthHandler(nil))

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer still-unexpired")
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, 1, auth.authorizeCalls)
			assert.ElementsMatch(t, models.AllRoles, auth.gotRoles)
		})
	}
}
