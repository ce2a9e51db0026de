package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/config"
	"bitbucket.org/mmdatafocus/production_backend/middlewares"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDRESS", mr.Addr())
	config.ConnectRedisWithRetry()
	t.Cleanup(config.DisconnectRedis)
	return mr
}

// whoami echoes the identity the middleware chain put on the request context.
func whoami(c *gin.Context) {
	ctx := c.Request.Context()
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	c.JSON(http.StatusOK, gin.H{
		"company_id":     companyId,
		"user_id":        userId,
		"is_admin":       utils.IsAdminContext(ctx),
		"correlation_id": correlationId,
	})
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", whoami)
	return r
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	setupRedis(t)
	require.NoError(t, config.SetRedisObject(middlewares.SessionKey("tok-1"), middlewares.Session{
		CompanyId: "ACME",
		UserId:    "u1",
		Username:  "alice",
		IsAdmin:   true,
	}, time.Hour))
	r := newEngine(middlewares.SessionMiddleware())

	w := get(r, map[string]string{"token": "tok-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"company_id":"ACME","user_id":"u1","is_admin":true,"correlation_id":""}`, w.Body.String())

	w = get(r, map[string]string{"token": "unknown"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"company_id":"","user_id":"","is_admin":false,"correlation_id":""}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	r := newEngine(middlewares.AuthMiddleware())

	token, err := utils.JwtGenerate("u2", "bob", "ACME", utils.RoleAdmin)
	require.NoError(t, err)
	w := get(r, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"company_id":"ACME","user_id":"u2","is_admin":true,"correlation_id":""}`, w.Body.String())

	token, err = utils.JwtGenerate("u3", "carol", "ACME", "Operator")
	require.NoError(t, err)
	w = get(r, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":false`)

	w = get(r, map[string]string{"Authorization": token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsOtherSecret(t *testing.T) {
	t.Setenv("API_SECRET", "first-secret")
	token, err := utils.JwtGenerate("u2", "bob", "ACME", utils.RoleAdmin)
	require.NoError(t, err)

	t.Setenv("API_SECRET", "second-secret")
	w := get(newEngine(middlewares.AuthMiddleware()), map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCorrelationIdMiddleware(t *testing.T) {
	r := newEngine(middlewares.CorrelationIdMiddleware())

	w := get(r, map[string]string{middlewares.CorrelationIdHeader: "cid-123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cid-123", w.Header().Get(middlewares.CorrelationIdHeader))
	assert.Contains(t, w.Body.String(), `"correlation_id":"cid-123"`)

	w = get(r, nil)
	generated := w.Header().Get(middlewares.CorrelationIdHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}

func TestReadinessMiddleware(t *testing.T) {
	require.Nil(t, config.GetDB())
	r := newEngine(middlewares.ReadinessMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = get(r, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRateLimiter(t *testing.T) {
	mr := setupRedis(t)
	limiter := middlewares.NewRateLimiter(config.GetRedisDB, 2, time.Minute)
	identify := func(c *gin.Context) {
		if company := c.GetHeader("x-company"); company != "" {
			c.Request = c.Request.WithContext(utils.SetCompanyIdInContext(c.Request.Context(), company))
		}
		c.Next()
	}
	r := newEngine(identify, limiter.Middleware())

	headers := map[string]string{"x-company": "ACME"}
	assert.Equal(t, http.StatusOK, get(r, headers).Code)
	assert.Equal(t, http.StatusOK, get(r, headers).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, headers).Code)

	// another tenant has its own budget
	assert.Equal(t, http.StatusOK, get(r, map[string]string{"x-company": "GLOBEX"}).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)

	assert.True(t, mr.Exists("RateLimit:company:ACME"))
	assert.Greater(t, mr.TTL("RateLimit:company:ACME"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, get(r, headers).Code)
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	limiter := middlewares.NewRateLimiter(func() *redis.Client { return nil }, 1, time.Minute)
	r := newEngine(limiter.Middleware())

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
}

func TestAuthMiddlewareExposesClaims(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.AuthMiddleware())
	r.GET("/claims", func(c *gin.Context) {
		claim := middlewares.CtxValue(c.Request.Context())
		if claim == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": claim.Username, "role": claim.Role})
	})

	token, err := utils.JwtGenerate("u2", "bob", "ACME", "Supervisor")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/claims", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"bob","role":"Supervisor"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/claims", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimiterRepairsCounterWithoutTTL(t *testing.T) {
	mr := setupRedis(t)
	require.NoError(t, mr.Set("RateLimit:ip:192.0.2.1", "5"))
	limiter := middlewares.NewRateLimiter(config.GetRedisDB, 10, time.Minute)
	r := newEngine(limiter.Middleware())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := mr.Get("RateLimit:ip:192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, "6", got)
	assert.Greater(t, mr.TTL("RateLimit:ip:192.0.2.1"), time.Duration(0))

	// a second hit keeps the existing window
	mr.FastForward(30 * time.Second)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*time.Second, mr.TTL("RateLimit:ip:192.0.2.1"))
}

func TestRateLimiterFailsOpenWhenRedisIsDown(t *testing.T) {
	mr := setupRedis(t)
	limiter := middlewares.NewRateLimiter(config.GetRedisDB, 1, time.Minute)
	r := newEngine(limiter.Middleware())
	mr.Close()

	for i := 0; i < 3; i++ {
		w := get(r, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"company_id":""`)
	}
}
