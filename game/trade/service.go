package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/tabletrade/audit"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"go.uber.org/zap"
)

// RecordKey is the room key holding the single active trade.
const RecordKey = "activeTrade"

var (
	ErrNotClaimed      = errors.New("claim a token before starting a trade")
	ErrTooFar          = errors.New("trade partner is too far away")
	ErrTradeInProgress = errors.New("trade already in progress")
	ErrTargetUnclaimed = errors.New("that token has no owner to trade with")
	ErrNotTradeable    = errors.New("that token cannot trade")
	ErrSameToken       = errors.New("a token cannot trade with itself")
	ErrNotAddressed    = errors.New("only the invited participant can respond to this trade")
	ErrCancelDenied    = errors.New("only trade participants or the GM can cancel a trade")
	ErrNoTrade         = errors.New("no active trade")
	ErrTradeChanged    = errors.New("the trade changed, refresh and try again")
	ErrNotPending      = errors.New("trade is not awaiting acceptance")
	ErrNotActive       = errors.New("trade is not active")
	ErrCorruptRecord   = errors.New("active trade record is unreadable")
)

// Config tunes the coordinator.
type Config struct {
	ProximityUnits float64
	// CompareAndSwap makes initiation write only if the record is still
	// absent at write time. This narrows the race between two initiators; it
	// is not a lock, and stores without an atomic set-if-absent still race.
	CompareAndSwap bool
}

// Coordinator owns the negotiation state machine over the shared record:
// none -> pending-acceptance -> active -> none, or none -> active for a
// player's own second token and party tokens.
type Coordinator struct {
	store  scene.Store
	grid   scene.Grid
	cfg    Config
	audit  audit.Logger
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(store scene.Store, grid scene.Grid, cfg Config, auditor audit.Logger, logger *zap.Logger) *Coordinator {
	if cfg.ProximityUnits <= 0 {
		cfg.ProximityUnits = 5
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Coordinator{
		store:  store,
		grid:   grid,
		cfg:    cfg,
		audit:  auditor,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Current returns the live record, or nil when none exists.
func (co *Coordinator) Current(ctx context.Context) (*model.ActiveTrade, error) {
	raw, err := co.store.RoomGet(ctx, RecordKey)
	if err != nil {
		if scene.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecord(raw)
}

func decodeRecord(raw []byte) (*model.ActiveTrade, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var t model.ActiveTrade
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if t.ID == "" {
		return nil, ErrCorruptRecord
	}
	return &t, nil
}

// Initiate starts a trade between the actor's claimed token and a target.
// All preconditions are checked before anything is written.
func (co *Coordinator) Initiate(ctx context.Context, actor model.Participant, initiatorTokenID, targetTokenID string) (model.ActiveTrade, error) {
	start := time.Now()
	req := map[string]string{"tokenId": initiatorTokenID, "targetTokenId": targetTokenID}

	rec, err := co.initiate(ctx, actor, initiatorTokenID, targetTokenID)
	co.record(ctx, audit.ActionTradeInitiate, actor, initiatorTokenID, rec.ID, req, rec, err, start)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	co.logger.Info("trade initiated",
		zap.String("trade_id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.String("initiator_token", rec.Initiator.TokenID),
		zap.String("target_token", rec.Target.TokenID))
	return rec, nil
}

func (co *Coordinator) initiate(ctx context.Context, actor model.Participant, initiatorTokenID, targetTokenID string) (model.ActiveTrade, error) {
	if initiatorTokenID == "" || actor.ID == "" {
		return model.ActiveTrade{}, ErrNotClaimed
	}
	if initiatorTokenID == targetTokenID {
		return model.ActiveTrade{}, ErrSameToken
	}
	from, err := co.store.Token(ctx, initiatorTokenID)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	if from.ClaimedBy != actor.ID {
		return model.ActiveTrade{}, ErrNotClaimed
	}
	to, err := co.store.Token(ctx, targetTokenID)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	if to.Kind == model.TokenLore {
		return model.ActiveTrade{}, ErrNotTradeable
	}

	if d := co.grid.Distance(from.Position, to.Position); d > co.cfg.ProximityUnits {
		return model.ActiveTrade{}, fmt.Errorf("%w: %.1f units apart, limit %.0f", ErrTooFar, d, co.cfg.ProximityUnits)
	}

	cur, err := co.Current(ctx)
	if err != nil && !errors.Is(err, ErrCorruptRecord) {
		return model.ActiveTrade{}, err
	}
	if cur != nil || errors.Is(err, ErrCorruptRecord) {
		return model.ActiveTrade{}, ErrTradeInProgress
	}

	instant := to.ClaimedBy == actor.ID || to.Kind == model.TokenParty
	if !instant && !to.Claimed() {
		return model.ActiveTrade{}, ErrTargetUnclaimed
	}

	rec := model.ActiveTrade{
		ID:        co.newID(),
		Status:    model.TradePending,
		Initiator: model.TradeParticipant{TokenID: from.ID, PlayerID: actor.ID, Name: from.Name},
		Target:    model.TradeParticipant{TokenID: to.ID, PlayerID: to.ClaimedBy, Name: to.Name},
		CreatedAt: co.now().UTC(),
	}
	if instant {
		rec.Status = model.TradeActive
		rec.Target.PlayerID = actor.ID
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	if co.cfg.CompareAndSwap {
		ok, err := co.store.RoomSetIfAbsent(ctx, RecordKey, raw)
		if err != nil {
			return model.ActiveTrade{}, err
		}
		if !ok {
			return model.ActiveTrade{}, ErrTradeInProgress
		}
	} else if err := co.store.RoomSet(ctx, RecordKey, raw); err != nil {
		return model.ActiveTrade{}, err
	}
	return rec, nil
}

// load reads the live record and checks it is the one the caller expects.
// An empty expectedID accepts whatever is live.
func (co *Coordinator) load(ctx context.Context, expectedID string) (*model.ActiveTrade, error) {
	cur, err := co.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNoTrade
	}
	if expectedID != "" && cur.ID != expectedID {
		return nil, ErrTradeChanged
	}
	return cur, nil
}

// recheck re-reads the record just before a write and refuses if another
// client replaced or cleared it since load.
func (co *Coordinator) recheck(ctx context.Context, id string) error {
	cur, err := co.Current(ctx)
	if err != nil {
		return err
	}
	if cur == nil || cur.ID != id {
		return ErrTradeChanged
	}
	return nil
}

// Accept moves a pending trade to active. Only the addressed participant may accept.
func (co *Coordinator) Accept(ctx context.Context, actor model.Participant, tradeID string) (model.ActiveTrade, error) {
	start := time.Now()
	rec, err := co.accept(ctx, actor, tradeID)
	co.record(ctx, audit.ActionTradeAccept, actor, "", tradeID, map[string]string{"tradeId": tradeID}, rec, err, start)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	co.logger.Info("trade accepted", zap.String("trade_id", rec.ID), zap.String("participant_id", actor.ID))
	return rec, nil
}

func (co *Coordinator) accept(ctx context.Context, actor model.Participant, tradeID string) (model.ActiveTrade, error) {
	cur, err := co.load(ctx, tradeID)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	if cur.Status != model.TradePending {
		return model.ActiveTrade{}, ErrNotPending
	}
	if !cur.AddressedTo(actor.ID) {
		return model.ActiveTrade{}, ErrNotAddressed
	}
	cur.Status = model.TradeActive
	raw, err := json.Marshal(cur)
	if err != nil {
		return model.ActiveTrade{}, err
	}
	if err := co.recheck(ctx, cur.ID); err != nil {
		return model.ActiveTrade{}, err
	}
	if err := co.store.RoomSet(ctx, RecordKey, raw); err != nil {
		return model.ActiveTrade{}, err
	}
	return *cur, nil
}

// Decline clears a pending trade. Only the addressed participant may decline.
func (co *Coordinator) Decline(ctx context.Context, actor model.Participant, tradeID string) error {
	start := time.Now()
	err := co.clear(ctx, tradeID, func(cur *model.ActiveTrade) error {
		if cur.Status != model.TradePending {
			return ErrNotPending
		}
		if !cur.AddressedTo(actor.ID) {
			return ErrNotAddressed
		}
		return nil
	})
	co.record(ctx, audit.ActionTradeDecline, actor, "", tradeID, map[string]string{"tradeId": tradeID}, nil, err, start)
	if err == nil {
		co.logger.Info("trade declined", zap.String("trade_id", tradeID), zap.String("participant_id", actor.ID))
	}
	return err
}

// Cancel clears a pending or active trade. Either participant or a GM may
// cancel; a GM may also clear an unreadable record.
func (co *Coordinator) Cancel(ctx context.Context, actor model.Participant, tradeID string) error {
	start := time.Now()
	_, loadErr := co.Current(ctx)
	var err error
	if errors.Is(loadErr, ErrCorruptRecord) && actor.IsGM() {
		err = co.store.RoomDelete(ctx, RecordKey)
	} else {
		err = co.clear(ctx, tradeID, func(cur *model.ActiveTrade) error {
			if actor.IsGM() || cur.Involves(actor.ID) {
				return nil
			}
			return ErrCancelDenied
		})
	}
	co.record(ctx, audit.ActionTradeCancel, actor, "", tradeID, map[string]string{"tradeId": tradeID}, nil, err, start)
	if err == nil {
		co.logger.Info("trade cancelled", zap.String("trade_id", tradeID), zap.String("participant_id", actor.ID))
	}
	return err
}

// Retire removes an active trade once the execution surface has completed it.
func (co *Coordinator) Retire(ctx context.Context, tradeID string) error {
	start := time.Now()
	err := co.clear(ctx, tradeID, func(cur *model.ActiveTrade) error {
		if cur.Status != model.TradeActive {
			return ErrNotActive
		}
		return nil
	})
	co.record(ctx, audit.ActionTradeRetire, model.Participant{}, "", tradeID, map[string]string{"tradeId": tradeID}, nil, err, start)
	return err
}

func (co *Coordinator) clear(ctx context.Context, tradeID string, allow func(*model.ActiveTrade) error) error {
	cur, err := co.load(ctx, tradeID)
	if err != nil {
		return err
	}
	if err := allow(cur); err != nil {
		return err
	}
	if err := co.recheck(ctx, cur.ID); err != nil {
		return err
	}
	return co.store.RoomDelete(ctx, RecordKey)
}

func (co *Coordinator) record(ctx context.Context, action string, actor model.Participant, tokenID, tradeID string, req, resp any, err error, start time.Time) {
	entry := audit.AuditEntry{
		TraceID:       audit.TraceID(ctx),
		ParticipantID: actor.ID,
		TokenID:       tokenID,
		TradeID:       tradeID,
		Action:        action,
		Request:       req,
		DurationMs:    int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Response = resp
	}
	co.audit.Log(entry)
}
