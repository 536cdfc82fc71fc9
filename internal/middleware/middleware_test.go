package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winery_backend/internal/models"
	"winery_backend/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthorizer struct {
	sessions map[string]*models.Session
	lookup   error
	allowed  bool
	authErr  error
	gotRoles []models.Role
}

func (s *stubAuthorizer) SessionFromToken(_ context.Context, token string) (*models.Session, error) {
	if s.lookup != nil {
		return nil, s.lookup
	}
	session, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", utils.ErrInvalidToken)
	}
	return session, nil
}

func (s *stubAuthorizer) Authorize(_ context.Context, _ *models.Session, roles ...models.Role) (bool, error) {
	s.gotRoles = roles
	return s.allowed, s.authErr
}

func newGuardedRouter(auth SessionAuthorizer, roles ...models.Role) *gin.Engine {
	r := gin.New()
	group := r.Group("/", AuthMiddleware(auth))
	if len(roles) > 0 {
		group.Use(RequireRoles(auth, roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		session, _ := SessionFromContext(c)
		c.String(http.StatusOK, session.Username)
	})
	return r
}

func get(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	auth := &stubAuthorizer{sessions: map[string]*models.Session{
		"good": {AccountID: 4, Username: "cellar", Role: models.RoleWarehouseManager},
	}}
	r := newGuardedRouter(auth)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"scheme is case-insensitive", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := get(r, "Bearer good")
	assert.Equal(t, "cellar", w.Body.String())
}

func TestAuthMiddleware_StoreFailureIs500(t *testing.T) {
	r := newGuardedRouter(&stubAuthorizer{lookup: errors.New("redis down")})
	w := get(r, "Bearer anything")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireRoles(t *testing.T) {
	session := map[string]*models.Session{"tok": {AccountID: 6, Username: "buyer", Role: models.RolePurchasingManager}}

	t.Run("allowed", func(t *testing.T) {
		auth := &stubAuthorizer{sessions: session, allowed: true}
		r := newGuardedRouter(auth, models.RoleAdmin, models.RolePurchasingManager)
		w := get(r, "Bearer tok")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []models.Role{models.RoleAdmin, models.RolePurchasingManager}, auth.gotRoles)
	})

	t.Run("denied", func(t *testing.T) {
		auth := &stubAuthorizer{sessions: session, allowed: false}
		r := newGuardedRouter(auth, models.RoleWarehouseManager)
		w := get(r, "Bearer tok")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), utils.ErrCodeForbidden)
	})

	t.Run("authorizer error", func(t *testing.T) {
		auth := &stubAuthorizer{sessions: session, authErr: errors.New("db down")}
		r := newGuardedRouter(auth, models.RoleAdmin)
		w := get(r, "Bearer tok")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimit_MemoryStore(t *testing.T) {
	limit, err := RateLimit("2-M", nil)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/login", limit, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	_, err = RateLimit("lots", nil)
	assert.Error(t, err)
}
