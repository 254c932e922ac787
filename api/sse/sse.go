// Package sse streams trade prompts and claimed-token changes to a client.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/tabletrade/game/partner"
	"github.com/kasuganosora/tabletrade/game/trade"
	mw "github.com/kasuganosora/tabletrade/middleware"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/scheduler"
	"go.uber.org/zap"
)

// Event names written to the stream.
const (
	EventConnected = "connected"
	EventPrompt    = "trade.prompt"
	EventOpen      = "trade.open"
	EventClose     = "trade.close"
	EventClaims    = "claims"
)

// Config tunes the stream.
type Config struct {
	ClaimRefresh time.Duration
	Keepalive    time.Duration
}

// Handler serves GET /api/trade/events.
type Handler struct {
	store       scene.Store
	coordinator *trade.Coordinator
	sched       *scheduler.Scheduler
	cfg         Config
	logger      *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(store scene.Store, co *trade.Coordinator, sched *scheduler.Scheduler, cfg Config, logger *zap.Logger) *Handler {
	if cfg.ClaimRefresh <= 0 {
		cfg.ClaimRefresh = 5 * time.Second
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = 30 * time.Second
	}
	return &Handler{store: store, coordinator: co, sched: sched, cfg: cfg, logger: logger}
}

type event struct {
	name string
	data any
}

// surface queues watcher callbacks as stream events.
type surface struct {
	out chan<- event
	// done is closed when the stream ends so late callbacks never block.
	done <-chan struct{}
}

func (s surface) send(e event) {
	select {
	case s.out <- e:
	case <-s.done:
	}
}

func (s surface) Prompt(t model.ActiveTrade) { s.send(event{EventPrompt, t}) }
func (s surface) Open(t model.ActiveTrade)   { s.send(event{EventOpen, t}) }
func (s surface) Close(id string)            { s.send(event{EventClose, gin.H{"tradeId": id}}) }

// ServeSSE streams trade events for the authenticated participant. The
// watcher follows the record through the scene store subscription, and the
// claimed-token list is refreshed on the scheduler.
func (h *Handler) ServeSSE(c *gin.Context) {
	p := mw.GetParticipant(c)
	ctx := c.Request.Context()

	// Subscribe before the connected event so no transition is missed.
	records, stop, err := h.store.Subscribe(ctx, trade.RecordKey)
	if err != nil {
		h.logger.Warn("trade subscription failed", zap.String("participant_id", p.ID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade events unavailable"})
		return
	}
	defer stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := make(chan event, 16)
	done := make(chan struct{})
	defer close(done)
	surf := surface{out: events, done: done}

	watcher := trade.NewWatcher(h.coordinator, p.ID, surf, h.logger)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watcher.Follow(ctx, records)
	}()

	session := scene.NewSession(p)
	if sel := c.QueryArray("select"); len(sel) > 0 {
		session.Select(sel...)
	}
	tracker := partner.NewClaimTracker(h.store, session, h.logger)
	task := "sse-claims:" + uuid.NewString()
	tracker.Start(h.sched, task, h.cfg.ClaimRefresh, func(tokens []model.Token) {
		cur, _ := tracker.Current()
		surf.send(event{EventClaims, gin.H{"claimed": tokens, "current": cur.ID}})
	})
	defer h.sched.Remove(task)

	h.logger.Debug("trade event stream opened", zap.String("participant_id", p.ID))
	write(c.Writer, event{EventConnected, gin.H{"participantId": p.ID}})
	c.Writer.Flush()

	ticker := time.NewTicker(h.cfg.Keepalive)
	defer ticker.Stop()
	for {
		select {
		case e := <-events:
			write(c.Writer, e)
			c.Writer.Flush()
		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		case <-watchDone:
			h.logger.Debug("trade watcher stopped", zap.String("participant_id", p.ID))
			return
		case <-ctx.Done():
			h.logger.Debug("trade event stream closed", zap.String("participant_id", p.ID))
			return
		}
	}
}

func write(w io.Writer, e event) {
	data, err := json.Marshal(e.data)
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, data)
}
