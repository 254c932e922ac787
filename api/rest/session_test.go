package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/tabletrade/api/rest"
	"github.com/kasuganosora/tabletrade/config"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/scheduler"
	"github.com/kasuganosora/tabletrade/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessionRouter(t *testing.T, hostKey string) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	c, _ := testutil.SetupTestCache(t)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	validator, err := rest.NewValidator()
	require.NoError(t, err)

	sec := config.SecurityConfig{JWTSecret: secret, JWTTTLH: time.Hour}
	h := rest.NewSessionHandler(sec, c, sched, validator, logger)
	r := gin.New()
	host := r.Group("/api/host", rest.HostAuth(hostKey))
	host.POST("/sessions", h.Issue)
	host.GET("/tasks", h.Tasks)
	me := r.Group("/api/session", mw.Auth(sec, c))
	me.GET("", h.Me)
	me.DELETE("", h.Revoke)
	return r
}

func send(r http.Handler, method, path string, header map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHostAuth(t *testing.T) {
	disabled := newSessionRouter(t, "")
	assert.Equal(t, http.StatusServiceUnavailable, send(disabled, http.MethodGet, "/api/host/tasks", nil, "").Code)

	r := newSessionRouter(t, "k")
	assert.Equal(t, http.StatusForbidden, send(r, http.MethodGet, "/api/host/tasks", map[string]string{"X-Host-Key": "x"}, "").Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/host/tasks", map[string]string{"X-Host-Key": "k"}, "").Code)
}

func TestSession_IssueUseRevoke(t *testing.T) {
	r := newSessionRouter(t, "k")
	host := map[string]string{"X-Host-Key": "k"}

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/host/sessions", host, `{"id":"x","role":"KING"}`).Code)

	w := send(r, http.MethodPost, "/api/host/sessions", host, `{"id":"gm-1","name":"Dana","role":"GM"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))

	auth := map[string]string{"Authorization": "Bearer " + issued.Token}
	w = send(r, http.MethodGet, "/api/session", auth, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"GM"`)

	assert.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/api/session", auth, "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/api/session", auth, "").Code)
}
