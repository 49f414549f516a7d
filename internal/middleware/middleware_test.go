package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/finscale/finscale-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jwtManager *auth.JWTManager, blacklist auth.Blacklist) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtManager, blacklist), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUserID(c), "role": CurrentRole(c)})
	})
	r.GET("/admin", AuthMiddleware(jwtManager, blacklist), RequireRole(model.RoleManager, model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	blacklist := auth.NewMemoryBlacklist()
	r := newAuthRouter(jwtManager, blacklist)
	userID := uuid.New()
	token, err := jwtManager.GenerateToken(userID, "ana@finscale.app", string(model.RoleDoctor))
	require.NoError(t, err)

	w := get(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["id"])
	assert.Equal(t, "doctor", body["role"])

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "garbage").Code)

	other := auth.NewJWTManager("other-secret", time.Hour)
	forged, err := other.GenerateToken(userID, "ana@finscale.app", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", forged).Code)

	require.NoError(t, blacklist.Revoke(context.Background(), token, time.Hour))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", token).Code)
}

func TestAuthMiddlewareRejectsBasicScheme(t *testing.T) {
	r := newAuthRouter(auth.NewJWTManager("secret", time.Hour), auth.NewMemoryBlacklist())
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type brokenBlacklist struct{}

func (brokenBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }
func (brokenBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestAuthMiddlewareFailsClosed(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	r := newAuthRouter(jwtManager, brokenBlacklist{})
	token, err := jwtManager.GenerateToken(uuid.New(), "ana@finscale.app", "doctor")
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, get(r, "/me", token).Code)
}

func TestRequireRole(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	r := newAuthRouter(jwtManager, auth.NewMemoryBlacklist())

	doctor, _ := jwtManager.GenerateToken(uuid.New(), "d@finscale.app", "doctor")
	manager, _ := jwtManager.GenerateToken(uuid.New(), "m@finscale.app", "manager")

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", doctor).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", manager).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(ratelimit.NewMemoryLimiter(2, time.Minute), "test"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)

	w := get(r, "/ping", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body RateLimitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Positive(t, body.RetryAfter)
}

type failingLimiter struct{}

func (failingLimiter) Consume(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(failingLimiter{}, "test"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/ping", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
