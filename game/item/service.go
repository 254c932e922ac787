package item

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kasuganosora/tabletrade/audit"
	"github.com/kasuganosora/tabletrade/game/character"
	"github.com/kasuganosora/tabletrade/game/encumbrance"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"go.uber.org/zap"
)

// Persister is the durable copy behind the scene store.
type Persister interface {
	Save(ctx context.Context, campaignID, tokenID string, c model.Character) error
	Load(ctx context.Context, campaignID, tokenID string) (model.Character, error)
}

// CharacterView is a character with its derived stats.
type CharacterView struct {
	TokenID      string                       `json:"tokenId"`
	Character    model.Character              `json:"character"`
	Stats        encumbrance.Stats            `json:"stats"`
	StorageStats map[string]encumbrance.Stats `json:"storageStats"`
}

// Service applies inventory commands to the character stored on a token.
// Each command is a read-merge-write on that token's metadata followed by a
// best-effort durable save.
type Service struct {
	store      scene.Store
	resolver   *Resolver
	repo       Persister
	audit      audit.Logger
	campaignID string
	logger     *zap.Logger
}

// NewService creates a new item Service.
func NewService(store scene.Store, resolver *Resolver, repo Persister, auditor audit.Logger, campaignID string, logger *zap.Logger) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		store:      store,
		resolver:   resolver,
		repo:       repo,
		audit:      auditor,
		campaignID: campaignID,
		logger:     logger,
	}
}

// CanEdit reports whether actor may mutate the character on tok. The claim
// owner and GMs may; party tokens belong to everyone.
func CanEdit(actor model.Participant, tok model.Token) bool {
	if actor.IsGM() || tok.Kind == model.TokenParty {
		return true
	}
	return actor.ID != "" && tok.ClaimedBy == actor.ID
}

// Get returns the character stored on a token with its stats.
func (svc *Service) Get(ctx context.Context, tokenID string) (CharacterView, error) {
	tok, err := svc.store.Token(ctx, tokenID)
	if err != nil {
		return CharacterView{}, err
	}
	return svc.view(tokenID, character.FromToken(tok)), nil
}

func (svc *Service) view(tokenID string, c model.Character) CharacterView {
	engine := svc.resolver.Engine()
	v := CharacterView{
		TokenID:      tokenID,
		Character:    c,
		Stats:        engine.Compute(c),
		StorageStats: make(map[string]encumbrance.Stats, len(c.Storages)),
	}
	for _, s := range c.Storages {
		v.StorageStats[s.ID] = engine.ComputeStorage(s)
	}
	return v
}

// Equip equips an item on the token's character.
func (svc *Service) Equip(ctx context.Context, actor model.Participant, tokenID string, req EquipRequest) (EquipResult, error) {
	return apply(ctx, svc, actor, tokenID, audit.ActionItemEquip, req, func(c *model.Character) (EquipResult, error) {
		return svc.resolver.Equip(c, req)
	})
}

// Unequip unequips an item on the token's character.
func (svc *Service) Unequip(ctx context.Context, actor model.Participant, tokenID string, req UnequipRequest) (UnequipResult, error) {
	return apply(ctx, svc, actor, tokenID, audit.ActionItemUnequip, req, func(c *model.Character) (UnequipResult, error) {
		return svc.resolver.Unequip(c, req)
	})
}

// Transfer moves an item between the character and one of its storages.
func (svc *Service) Transfer(ctx context.Context, actor model.Participant, tokenID string, req TransferRequest) (TransferResult, error) {
	return apply(ctx, svc, actor, tokenID, audit.ActionItemTransfer, req, func(c *model.Character) (TransferResult, error) {
		return svc.resolver.TransferItem(c, req)
	})
}

// MoveCoins moves coins between the wallet and a storage or vault.
func (svc *Service) MoveCoins(ctx context.Context, actor model.Participant, tokenID string, req CoinRequest) (CoinResult, error) {
	return apply(ctx, svc, actor, tokenID, audit.ActionCoinsMove, req, func(c *model.Character) (CoinResult, error) {
		return svc.resolver.MoveCoins(c, req)
	})
}

// Restore overwrites the token's character with the last durable save. Only
// a GM may restore, typically after a save failed and the scene diverged.
func (svc *Service) Restore(ctx context.Context, actor model.Participant, tokenID string) (CharacterView, error) {
	start := time.Now()
	entry := audit.AuditEntry{
		TraceID:       audit.TraceID(ctx),
		ParticipantID: actor.ID,
		TokenID:       tokenID,
		Action:        audit.ActionCharacterRestore,
	}
	view, err := svc.restore(ctx, actor, tokenID)
	entry.DurationMs = int(time.Since(start).Milliseconds())
	if err != nil {
		entry.Error = err.Error()
	}
	svc.audit.Log(entry)
	return view, err
}

func (svc *Service) restore(ctx context.Context, actor model.Participant, tokenID string) (CharacterView, error) {
	if !actor.IsGM() {
		return CharacterView{}, ErrForbidden
	}
	if svc.repo == nil {
		return CharacterView{}, ErrNoDurableCopy
	}
	saved, err := svc.repo.Load(ctx, svc.campaignID, tokenID)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			return CharacterView{}, ErrNoDurableCopy
		}
		return CharacterView{}, err
	}
	tok, err := svc.store.UpdateMetadata(ctx, tokenID, func(meta map[string]json.RawMessage) error {
		return character.PutMetadata(meta, saved)
	})
	if err != nil {
		return CharacterView{}, err
	}
	svc.logger.Info("character restored from durable copy",
		zap.String("token_id", tokenID), zap.String("participant_id", actor.ID))
	return svc.view(tokenID, character.FromToken(tok)), nil
}

// apply authorizes actor, runs fn against a working copy inside the token's
// metadata update, and persists the result. A failed fn writes nothing. A
// failed durable save is logged and the scene write stands.
func apply[T any](ctx context.Context, svc *Service, actor model.Participant, tokenID, action string, req any, fn func(c *model.Character) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	entry := audit.AuditEntry{
		TraceID:       audit.TraceID(ctx),
		ParticipantID: actor.ID,
		TokenID:       tokenID,
		Action:        action,
		Request:       req,
	}
	fail := func(err error) (T, error) {
		entry.Error = err.Error()
		entry.DurationMs = int(time.Since(start).Milliseconds())
		svc.audit.Log(entry)
		return zero, err
	}

	tok, err := svc.store.Token(ctx, tokenID)
	if err != nil {
		return fail(err)
	}
	if !CanEdit(actor, tok) {
		return fail(ErrForbidden)
	}

	var (
		result  T
		updated model.Character
	)
	_, err = svc.store.UpdateMetadata(ctx, tokenID, func(meta map[string]json.RawMessage) error {
		c, err := character.FromMetadata(meta)
		if err != nil {
			return err
		}
		if c.Name == "" {
			c.Name = tok.Name
		}
		work := c.Clone()
		res, err := fn(&work)
		if err != nil {
			return err
		}
		result, updated = res, work
		return character.PutMetadata(meta, work)
	})
	if err != nil {
		return fail(err)
	}

	if svc.repo != nil {
		if err := svc.repo.Save(ctx, svc.campaignID, tokenID, updated); err != nil {
			svc.logger.Warn("character persist failed, scene state kept",
				zap.String("token_id", tokenID), zap.String("action", action), zap.Error(err))
		}
	}
	entry.Response = result
	entry.DurationMs = int(time.Since(start).Milliseconds())
	svc.audit.Log(entry)
	svc.logger.Debug("inventory command applied",
		zap.String("action", action), zap.String("token_id", tokenID), zap.String("participant_id", actor.ID))
	return result, nil
}
