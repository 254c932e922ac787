package trade

import (
	"context"
	"sync"
	"time"

	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/scheduler"
	"go.uber.org/zap"
)

// Surface is the client-side presentation the watcher drives.
type Surface interface {
	// Prompt asks the addressed participant to accept or decline.
	Prompt(t model.ActiveTrade)
	// Open shows the execution surface for an active trade.
	Open(t model.ActiveTrade)
	// Close dismisses whatever is shown for tradeID.
	Close(tradeID string)
}

// RecordReader reads the live trade record.
type RecordReader interface {
	Current(ctx context.Context) (*model.ActiveTrade, error)
}

// Watcher turns observations of the shared record into surface calls for one
// participant. Each trade id is prompted at most once and opened at most once.
// The state is local to the watcher; other clients keep their own.
type Watcher struct {
	reader        RecordReader
	participantID string
	surface       Surface
	logger        *zap.Logger

	mu       sync.Mutex
	prompted string
	open     string
}

// NewWatcher creates a watcher for participantID.
func NewWatcher(reader RecordReader, participantID string, surface Surface, logger *zap.Logger) *Watcher {
	return &Watcher{
		reader:        reader,
		participantID: participantID,
		surface:       surface,
		logger:        logger,
	}
}

// Observe applies one observation of the record. A nil record means no trade.
func (w *Watcher) Observe(rec *model.ActiveTrade) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rec == nil {
		w.closeOpen()
		w.prompted = ""
		return
	}
	if w.open != "" && w.open != rec.ID {
		w.closeOpen()
	}

	switch rec.Status {
	case model.TradePending:
		if rec.AddressedTo(w.participantID) && w.prompted != rec.ID {
			w.prompted = rec.ID
			w.surface.Prompt(*rec)
		}
	case model.TradeActive:
		if !rec.Involves(w.participantID) {
			w.closeOpen()
			return
		}
		if w.open != rec.ID {
			w.open = rec.ID
			w.surface.Open(*rec)
		}
	}
}

func (w *Watcher) closeOpen() {
	if w.open == "" {
		return
	}
	id := w.open
	w.open = ""
	w.surface.Close(id)
}

// Poll reads the record once and observes it. An unreadable record is
// returned without touching an open surface.
func (w *Watcher) Poll(ctx context.Context) error {
	rec, err := w.reader.Current(ctx)
	if err != nil {
		return err
	}
	w.Observe(rec)
	return nil
}

// Start registers the watcher as a periodic task on s under name.
func (w *Watcher) Start(s *scheduler.Scheduler, name string, interval time.Duration) {
	s.AddTicker(name, interval, func(ctx context.Context) {
		if err := w.Poll(ctx); err != nil {
			w.logger.Warn("trade record unreadable", zap.String("participant_id", w.participantID), zap.Error(err))
		}
	})
}

// Run observes every change of the record delivered by the store until ctx
// is done.
func (w *Watcher) Run(ctx context.Context, store scene.Store) error {
	ch, stop, err := store.Subscribe(ctx, RecordKey)
	if err != nil {
		return err
	}
	defer stop()
	w.Follow(ctx, ch)
	return nil
}

// Follow observes raw record values from an existing subscription until ctx
// ends or the channel closes.
func (w *Watcher) Follow(ctx context.Context, ch <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				w.logger.Warn("trade record unreadable", zap.String("participant_id", w.participantID), zap.Error(err))
				continue
			}
			w.Observe(rec)
		}
	}
}
