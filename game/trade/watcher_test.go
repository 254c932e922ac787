package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSurface struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeSurface) add(e string) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakeSurface) Prompt(t model.ActiveTrade) { f.add("prompt:" + t.ID) }
func (f *fakeSurface) Open(t model.ActiveTrade)   { f.add("open:" + t.ID) }
func (f *fakeSurface) Close(id string)            { f.add("close:" + id) }

func (f *fakeSurface) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func pending(id string) *model.ActiveTrade {
	return &model.ActiveTrade{
		ID:        id,
		Status:    model.TradePending,
		Initiator: model.TradeParticipant{PlayerID: "alice"},
		Target:    model.TradeParticipant{PlayerID: "bob"},
	}
}

func active(id string) *model.ActiveTrade {
	t := pending(id)
	t.Status = model.TradeActive
	return t
}

func TestWatcher_PromptsOncePerTrade(t *testing.T) {
	s := &fakeSurface{}
	w := NewWatcher(nil, "bob", s, nop())

	w.Observe(pending("t1"))
	w.Observe(pending("t1"))
	w.Observe(pending("t1"))
	assert.Equal(t, []string{"prompt:t1"}, s.snapshot())

	w.Observe(nil)
	w.Observe(pending("t2"))
	assert.Equal(t, []string{"prompt:t1", "prompt:t2"}, s.snapshot())
}

func TestWatcher_InitiatorIsNotPrompted(t *testing.T) {
	s := &fakeSurface{}
	w := NewWatcher(nil, "alice", s, nop())
	w.Observe(pending("t1"))
	assert.Empty(t, s.snapshot())
}

func TestWatcher_OpensAndClosesBothSides(t *testing.T) {
	for _, who := range []string{"alice", "bob"} {
		t.Run(who, func(t *testing.T) {
			s := &fakeSurface{}
			w := NewWatcher(nil, who, s, nop())
			w.Observe(active("t1"))
			w.Observe(active("t1"))
			w.Observe(nil)
			w.Observe(nil)
			assert.Equal(t, []string{"open:t1", "close:t1"}, s.snapshot())
		})
	}
}

func TestWatcher_ReplacedTradeClosesOld(t *testing.T) {
	s := &fakeSurface{}
	w := NewWatcher(nil, "bob", s, nop())
	w.Observe(active("t1"))
	w.Observe(pending("t2"))
	w.Observe(active("t2"))
	assert.Equal(t, []string{"open:t1", "close:t1", "prompt:t2", "open:t2"}, s.snapshot())
}

func TestWatcher_BystanderSeesNothing(t *testing.T) {
	s := &fakeSurface{}
	w := NewWatcher(nil, "carol", s, nop())
	w.Observe(pending("t1"))
	w.Observe(active("t1"))
	w.Observe(nil)
	assert.Empty(t, s.snapshot())
}

func TestWatcher_PollOnScheduler(t *testing.T) {
	co, _, _ := newCoordinator(t, Config{ProximityUnits: 5})
	ctx := context.Background()
	s := &fakeSurface{}
	w := NewWatcher(co, "bob", s, nop())

	sched := scheduler.New(nop())
	defer sched.Stop()
	w.Start(sched, "trade-watch:bob", 10*time.Millisecond)

	tr, err := co.Initiate(ctx, alice, "ash", "brim")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(s.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = co.Accept(ctx, bob, tr.ID)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(s.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, co.Retire(ctx, tr.ID))
	assert.Eventually(t, func() bool { return len(s.snapshot()) == 3 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"prompt:trade-1", "open:trade-1", "close:trade-1"}, s.snapshot())
}

func TestWatcher_RunFollowsSubscription(t *testing.T) {
	co, store, _ := newCoordinator(t, Config{ProximityUnits: 5})
	ctx, cancel := context.WithCancel(context.Background())
	s := &fakeSurface{}
	w := NewWatcher(co, "alice", s, nop())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, store) }()

	_, err := co.Initiate(context.Background(), alice, "ash", "stash")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(s.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"open:trade-1"}, s.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type failingReader struct{ err error }

func (f failingReader) Current(context.Context) (*model.ActiveTrade, error) { return nil, f.err }

func TestWatcher_PollErrorLoggedByTaskOnly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	readErr := errors.New("record unreadable")
	s := &fakeSurface{}
	w := NewWatcher(failingReader{readErr}, "bob", s, zap.New(core))

	w.Observe(active("t1"))
	require.ErrorIs(t, w.Poll(context.Background()), readErr)
	assert.Zero(t, logs.Len(), "Poll leaves logging to its caller")
	assert.Equal(t, []string{"open:t1"}, s.snapshot(), "open surface survives a failed read")

	sched := scheduler.New(nop())
	defer sched.Stop()
	w.Start(sched, "trade-watch:bob", 5*time.Millisecond)
	assert.Eventually(t, func() bool { return logs.Len() > 0 }, time.Second, 5*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "trade record unreadable", entry.Message)
	assert.Equal(t, readErr.Error(), entry.ContextMap()["error"])
}
