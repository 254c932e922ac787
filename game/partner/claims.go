package partner

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/kasuganosora/tabletrade/scheduler"
	"go.uber.org/zap"
)

// ClaimTracker keeps the list of tokens a session's participant has claimed.
type ClaimTracker struct {
	store   scene.Store
	session *scene.Session
	logger  *zap.Logger

	mu      sync.RWMutex
	claimed []model.Token
}

// NewClaimTracker creates a ClaimTracker for session.
func NewClaimTracker(store scene.Store, session *scene.Session, logger *zap.Logger) *ClaimTracker {
	return &ClaimTracker{store: store, session: session, logger: logger}
}

// Refresh reloads the claimed tokens and reports whether the set of ids changed.
func (ct *ClaimTracker) Refresh(ctx context.Context) (bool, error) {
	tokens, err := ct.store.Tokens(ctx)
	if err != nil {
		return false, err
	}
	me := ct.session.Participant().ID
	var claimed []model.Token
	for _, tok := range tokens {
		if me != "" && tok.ClaimedBy == me {
			claimed = append(claimed, tok)
		}
	}
	sort.SliceStable(claimed, func(i, j int) bool {
		if claimed[i].Name != claimed[j].Name {
			return claimed[i].Name < claimed[j].Name
		}
		return claimed[i].ID < claimed[j].ID
	})

	ct.mu.Lock()
	changed := !slices.EqualFunc(ct.claimed, claimed, func(a, b model.Token) bool { return a.ID == b.ID })
	ct.claimed = claimed
	ct.mu.Unlock()
	return changed, nil
}

// Claimed returns the tokens seen by the last refresh.
func (ct *ClaimTracker) Claimed() []model.Token {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return slices.Clone(ct.claimed)
}

// Current returns the selected claimed token, else the first claimed token.
func (ct *ClaimTracker) Current() (model.Token, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	for _, id := range ct.session.Selection() {
		for _, tok := range ct.claimed {
			if tok.ID == id {
				return tok, true
			}
		}
	}
	if len(ct.claimed) == 0 {
		return model.Token{}, false
	}
	return ct.claimed[0], true
}

// Start registers a periodic refresh on s under name. onChange, if set, runs
// after a refresh that changed the claimed set.
func (ct *ClaimTracker) Start(s *scheduler.Scheduler, name string, interval time.Duration, onChange func([]model.Token)) {
	s.AddTicker(name, interval, func(ctx context.Context) {
		changed, err := ct.Refresh(ctx)
		if err != nil {
			if ctx.Err() == nil {
				ct.logger.Warn("claimed token refresh failed",
					zap.String("participant_id", ct.session.Participant().ID), zap.Error(err))
			}
			return
		}
		if changed && onChange != nil {
			onChange(ct.Claimed())
		}
	})
}
