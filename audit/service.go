package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/tabletrade/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Action names written to the audit log.
const (
	ActionTradeInitiate    = "trade.initiate"
	ActionTradeAccept      = "trade.accept"
	ActionTradeDecline     = "trade.decline"
	ActionTradeCancel      = "trade.cancel"
	ActionTradeRetire      = "trade.retire"
	ActionItemEquip        = "item.equip"
	ActionItemUnequip      = "item.unequip"
	ActionItemTransfer     = "item.transfer"
	ActionCoinsMove        = "coins.move"
	ActionCharacterRestore = "character.restore"
)

// AuditEntry holds one event to be logged.
type AuditEntry struct {
	TraceID       string
	RoomID        string
	ParticipantID string
	TokenID       string
	TradeID       string
	Action        string
	Request       interface{}
	Response      interface{}
	Error         string
	DurationMs    int
}

// Logger is what services depend on to record audit events.
type Logger interface {
	Log(entry AuditEntry)
}

// Options tunes batching. Zero values use the defaults.
type Options struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db        *gorm.DB
	ch        chan *model.AuditLog
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger, opts ...Options) *Service {
	o := Options{QueueSize: 1024, BatchSize: 100, FlushInterval: 2 * time.Second}
	if len(opts) > 0 {
		if opts[0].QueueSize > 0 {
			o.QueueSize = opts[0].QueueSize
		}
		if opts[0].BatchSize > 0 {
			o.BatchSize = opts[0].BatchSize
		}
		if opts[0].FlushInterval > 0 {
			o.FlushInterval = opts[0].FlushInterval
		}
	}
	svc := &Service{
		db:        db,
		ch:        make(chan *model.AuditLog, o.QueueSize),
		stopCh:    make(chan struct{}),
		batchSize: o.BatchSize,
		interval:  o.FlushInterval,
		logger:    logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an audit entry for async DB write. A full queue drops the entry.
func (svc *Service) Log(entry AuditEntry) {
	record := &model.AuditLog{
		TraceID:       entry.TraceID,
		RoomID:        entry.RoomID,
		ParticipantID: entry.ParticipantID,
		TokenID:       entry.TokenID,
		TradeID:       entry.TradeID,
		Action:        entry.Action,
		Request:       marshal(entry.Request),
		Response:      marshal(entry.Response),
		Error:         entry.Error,
		DurationMs:    entry.DurationMs,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action), zap.String("trade_id", entry.TradeID))
	}
}

func marshal(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, svc.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= svc.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Nop discards every entry.
type Nop struct{}

// Log implements Logger.
func (Nop) Log(AuditEntry) {}
