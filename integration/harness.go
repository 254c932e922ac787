package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/tabletrade/api/rest"
	"github.com/kasuganosora/tabletrade/api/sse"
	"github.com/kasuganosora/tabletrade/audit"
	"github.com/kasuganosora/tabletrade/config"
	"github.com/kasuganosora/tabletrade/game/character"
	"github.com/kasuganosora/tabletrade/game/encumbrance"
	"github.com/kasuganosora/tabletrade/game/item"
	"github.com/kasuganosora/tabletrade/game/partner"
	"github.com/kasuganosora/tabletrade/game/rules"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/scheduler"
	"github.com/kasuganosora/tabletrade/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	hostKey    = "integration-host-key"
	campaignID = "integration"
)

// TestServer wraps a real HTTP server with every subsystem wired the way
// main.go wires them.
type TestServer struct {
	DB     *gorm.DB
	Store  scene.Store
	Repo   *character.Repository
	Audit  *audit.Service
	Sched  *scheduler.Scheduler
	Server *httptest.Server
	URL    string
}

// NewTestServer creates a fully wired server over sqlite memory and the
// local cache.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	store := scene.NewCacheStore(c, pubsub, scene.StoreConfig{
		RoomID:       "integration-room",
		Transport:    scene.TransportPubSub,
		PollInterval: 20 * time.Millisecond,
	}, logger)
	grid := scene.Grid{DPI: scene.DefaultDPI, Measurement: scene.MeasureChebyshev}

	auditSvc := audit.New(db, logger, audit.Options{FlushInterval: 20 * time.Millisecond})
	repo, err := character.NewRepository(db, c, time.Hour, logger)
	require.NoError(t, err)
	sched := scheduler.New(logger)

	// ---- Services ----
	items := item.NewService(store, item.NewResolver(encumbrance.New(rules.Default())), repo, auditSvc, campaignID, logger)
	co := trade.NewCoordinator(store, grid, trade.Config{ProximityUnits: 5, CompareAndSwap: true}, auditSvc, logger)
	disc := partner.NewDiscovery(store, grid, 5, logger)
	validator, err := apirest.NewValidator()
	require.NoError(t, err)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(t.Context(), rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessionH := apirest.NewSessionHandler(sec, c, sched, validator, logger)
	sseH := sse.NewHandler(store, co, sched, sse.Config{ClaimRefresh: 20 * time.Millisecond}, logger)

	api := r.Group("/api")
	{
		hostG := api.Group("/host", apirest.HostAuth(hostKey))
		hostG.POST("/sessions", sessionH.Issue)
		hostG.GET("/tasks", sessionH.Tasks)

		authed := api.Group("", mw.Auth(sec, c))
		authed.GET("/session", sessionH.Me)
		authed.DELETE("/session", sessionH.Revoke)
		authed.GET("/trade/events", sseH.ServeSSE)
		apirest.Mount(authed,
			apirest.NewCharacterHandler(items, validator, logger),
			apirest.NewTradeHandler(co, disc, validator, logger))
	}

	server := httptest.NewServer(r)
	return &TestServer{
		DB:     db,
		Store:  store,
		Repo:   repo,
		Audit:  auditSvc,
		Sched:  sched,
		Server: server,
		URL:    server.URL,
	}
}

// Close shuts down the server and its background workers.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Sched.Stop()
	ts.Audit.Stop(context.Background())
	ts.Repo.Close()
}

var idCounter atomic.Int64

// UniqueID returns a test-unique identifier with the given prefix.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body and Bearer token.
func (ts *TestServer) Do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Expect asserts the status code and discards the body.
func Expect(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	require.Equal(t, status, resp.StatusCode, "body: %s", string(data))
}

// --- Session helpers ---

// Join asks the host endpoint for a participant token.
func (ts *TestServer) Join(t *testing.T, id string, role model.Role) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/host/sessions",
		strings.NewReader(fmt.Sprintf(`{"id":%q,"name":%q,"role":%q}`, id, id, role)))
	require.NoError(t, err)
	req.Header.Set("X-Host-Key", hostKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	ReadJSON(t, resp, &out)
	return out.Token
}

// PlaceCharacter puts a claimed token carrying c onto the scene.
func (ts *TestServer) PlaceCharacter(t *testing.T, tok model.Token, c model.Character) {
	t.Helper()
	tok.Metadata = map[string]json.RawMessage{}
	require.NoError(t, character.PutMetadata(tok.Metadata, c))
	testutil.PutTokens(t, ts.Store, tok)
}

// --- SSE client ---

// EventStream reads named server-sent events from /api/trade/events.
type EventStream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	cancel  context.CancelFunc
}

// OpenEvents subscribes to the trade event stream as the token's participant.
func (ts *TestServer) OpenEvents(t *testing.T, token string) *EventStream {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/trade/events?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return &EventStream{resp: resp, scanner: bufio.NewScanner(resp.Body), cancel: cancel}
}

// Next returns the name of the next event other than claims refreshes.
func (es *EventStream) Next(t *testing.T) string {
	t.Helper()
	for es.scanner.Scan() {
		name, ok := strings.CutPrefix(es.scanner.Text(), "event: ")
		if ok && name != sse.EventClaims {
			return name
		}
	}
	t.Fatalf("event stream ended: %v", es.scanner.Err())
	return ""
}

// Close ends the subscription.
func (es *EventStream) Close() {
	es.cancel()
	es.resp.Body.Close()
}
