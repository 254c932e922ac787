package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/audit"
	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/config"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSec = config.SecurityConfig{JWTSecret: testSecret, JWTTTLH: time.Hour}

func setupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{})
	require.NoError(t, err)
	return c
}

func newProtectedRouter(c cache.Cache) *gin.Engine {
	r := gin.New()
	r.Use(Auth(testSec, c))
	r.GET("/me", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, GetParticipant(ctx))
	})
	r.DELETE("/me", func(ctx *gin.Context) {
		if err := Revoke(ctx, c); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_RejectsMissingOrBadToken(t *testing.T) {
	r := newProtectedRouter(setupTestCache(t))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Token abc"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer nope"}).Code)
}

func TestAuth_HeaderAndQuery(t *testing.T) {
	r := newProtectedRouter(setupTestCache(t))
	tok, err := GenerateToken(testGM, testSecret, time.Hour)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"gm-1"`)
	assert.Contains(t, w.Body.String(), `"role":"GM"`)

	w = do(r, http.MethodGet, "/me?token="+tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Revoke(t *testing.T) {
	r := newProtectedRouter(setupTestCache(t))
	tok, err := GenerateToken(testGM, testSecret, time.Hour)
	require.NoError(t, err)
	h := map[string]string{"Authorization": "Bearer " + tok}

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/me", h).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", h).Code)
}

func TestGetParticipant_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, model.Participant{}, GetParticipant(c))
}

func TestTraceID(t *testing.T) {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) {
		assert.Equal(t, GetTraceID(c), audit.TraceID(c.Request.Context()))
		c.String(http.StatusOK, GetTraceID(c))
	})

	w := do(r, http.MethodGet, "/trace", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(TraceIDHeader))

	w2 := do(r, http.MethodGet, "/trace", nil)
	assert.NotEqual(t, w.Body.String(), w2.Body.String())

	w = do(r, http.MethodGet, "/trace", map[string]string{TraceIDHeader: "my-trace"})
	assert.Equal(t, "my-trace", w.Body.String())
}

func TestRecovery(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	r := gin.New()
	r.Use(TraceID(), Recovery(logger), Logger(logger))
	r.GET("/panic", func(c *gin.Context) { panic("test panic") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), w.Header().Get(TraceIDHeader))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Participant"); id != "" {
			c.Set(ParticipantKey, model.Participant{ID: id})
		}
		c.Next()
	})
	r.Use(RateLimit(ctx, rate.Limit(0.001), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	ip := map[string]string{"X-Real-IP": "10.0.0.1"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", ip).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/", ip).Code)

	// Same IP, but an authenticated participant gets its own bucket.
	me := map[string]string{"X-Real-IP": "10.0.0.1", "X-Participant": "alice"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", me).Code)
	other := map[string]string{"X-Real-IP": "10.0.0.2"}
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", other).Code)
}
