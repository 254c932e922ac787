// Package partner finds the tokens a participant can currently trade with.
package partner

import (
	"context"
	"sort"

	"github.com/kasuganosora/tabletrade/game/character"
	"github.com/kasuganosora/tabletrade/game/trade"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"go.uber.org/zap"
)

// Discovery lists trade partners near a requester's token.
type Discovery struct {
	store          scene.Store
	grid           scene.Grid
	proximityUnits float64
	logger         *zap.Logger
}

// NewDiscovery creates a Discovery using the same grid and range as the
// trade coordinator.
func NewDiscovery(store scene.Store, grid scene.Grid, proximityUnits float64, logger *zap.Logger) *Discovery {
	if proximityUnits <= 0 {
		proximityUnits = 5
	}
	return &Discovery{store: store, grid: grid, proximityUnits: proximityUnits, logger: logger}
}

// Classify returns how tok relates to requester, or false when tok is not a
// partner for them at all.
func Classify(requester model.Participant, tok model.Token) (model.Classification, bool) {
	switch tok.Kind {
	case model.TokenLore:
		return "", false
	case model.TokenParty:
		return model.ClassParty, true
	case model.TokenNPC:
		if !requester.IsGM() && tok.ClaimedBy != requester.ID {
			return "", false
		}
	}
	if !tok.Claimed() {
		return "", false
	}
	switch {
	case tok.ClaimedBy == requester.ID:
		return model.ClassSelf, true
	case tok.Kind == model.TokenNPC:
		return model.ClassNPC, true
	case tok.Kind == model.TokenMerchant:
		return model.ClassMerchant, true
	default:
		return model.ClassOtherPlayer, true
	}
}

// Discover returns the candidates within range of requesterTokenID ordered
// by distance, then name. The requester's own token is never included.
func (d *Discovery) Discover(ctx context.Context, requester model.Participant, requesterTokenID string) ([]model.PartnerCandidate, error) {
	if requesterTokenID == "" {
		return nil, trade.ErrNotClaimed
	}
	origin, err := d.store.Token(ctx, requesterTokenID)
	if err != nil {
		return nil, err
	}
	if origin.ClaimedBy != requester.ID && !requester.IsGM() {
		return nil, trade.ErrNotClaimed
	}

	tokens, err := d.store.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PartnerCandidate, 0, len(tokens))
	for _, tok := range tokens {
		if tok.ID == origin.ID {
			continue
		}
		class, ok := Classify(requester, tok)
		if !ok {
			continue
		}
		dist := d.grid.Distance(origin.Position, tok.Position)
		if dist > d.proximityUnits {
			continue
		}
		out = append(out, model.PartnerCandidate{
			Token:          tok,
			Character:      character.FromToken(tok),
			Classification: class,
			Distance:       dist,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Token.Name < out[j].Token.Name
	})
	d.logger.Debug("partners discovered",
		zap.String("participant_id", requester.ID),
		zap.String("token_id", origin.ID),
		zap.Int("count", len(out)))
	return out, nil
}
