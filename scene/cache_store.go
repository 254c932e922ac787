package scene

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/model"
	"go.uber.org/zap"
)

// Transport selects how Subscribe learns about changes.
type Transport string

const (
	TransportPoll   Transport = "poll"
	TransportPubSub Transport = "pubsub"
)

// StoreConfig configures a CacheStore.
type StoreConfig struct {
	RoomID       string
	Transport    Transport
	PollInterval time.Duration
}

// CacheStore implements Store over the shared cache. Tokens live in one hash
// per room; room keys are plain KV entries.
type CacheStore struct {
	cache  cache.Cache
	pubsub cache.PubSub
	cfg    StoreConfig
	logger *zap.Logger

	tokenMu sync.Mutex // serializes this process's read-merge-write on tokens
}

// NewCacheStore creates a CacheStore. A nil pubsub forces polling.
func NewCacheStore(c cache.Cache, ps cache.PubSub, cfg StoreConfig, logger *zap.Logger) *CacheStore {
	if cfg.RoomID == "" {
		cfg.RoomID = "default"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if ps == nil {
		cfg.Transport = TransportPoll
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportPoll
	}
	return &CacheStore{cache: c, pubsub: ps, cfg: cfg, logger: logger}
}

func (s *CacheStore) tokensKey() string {
	return "scene:" + s.cfg.RoomID + ":tokens"
}

func (s *CacheStore) roomKey(key string) string {
	return "scene:" + s.cfg.RoomID + ":room:" + key
}

func (s *CacheStore) channel(key string) string {
	return "scene:" + s.cfg.RoomID + ":changed:" + key
}

// Token loads one token.
func (s *CacheStore) Token(ctx context.Context, id string) (model.Token, error) {
	raw, err := s.cache.HGet(ctx, s.tokensKey(), id)
	if err != nil {
		if cache.IsNotFound(err) {
			return model.Token{}, fmt.Errorf("%w: token %s", ErrNotFound, id)
		}
		return model.Token{}, fmt.Errorf("scene: get token %s: %w", id, err)
	}
	var t model.Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return model.Token{}, fmt.Errorf("scene: decode token %s: %w", id, err)
	}
	return t, nil
}

// Tokens lists every token in the room ordered by id. Undecodable entries are skipped.
func (s *CacheStore) Tokens(ctx context.Context) ([]model.Token, error) {
	all, err := s.cache.HGetAll(ctx, s.tokensKey())
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scene: list tokens: %w", err)
	}
	out := make([]model.Token, 0, len(all))
	for id, raw := range all {
		var t model.Token
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			s.logger.Warn("skip undecodable token", zap.String("token_id", id), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutToken writes a whole token.
func (s *CacheStore) PutToken(ctx context.Context, t model.Token) error {
	if t.ID == "" {
		return fmt.Errorf("scene: token id is required")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("scene: encode token %s: %w", t.ID, err)
	}
	if err := s.cache.HSet(ctx, s.tokensKey(), t.ID, string(raw)); err != nil {
		return fmt.Errorf("scene: put token %s: %w", t.ID, err)
	}
	return nil
}

// UpdateMetadata reads the token, lets fn patch its metadata, and writes it back.
func (s *CacheStore) UpdateMetadata(ctx context.Context, id string, fn MetadataFunc) (model.Token, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	t, err := s.Token(ctx, id)
	if err != nil {
		return model.Token{}, err
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]json.RawMessage)
	}
	if err := fn(t.Metadata); err != nil {
		return model.Token{}, err
	}
	if err := s.PutToken(ctx, t); err != nil {
		return model.Token{}, err
	}
	return t, nil
}

// RoomGet reads a room-scoped key.
func (s *CacheStore) RoomGet(ctx context.Context, key string) ([]byte, error) {
	v, err := s.cache.Get(ctx, s.roomKey(key))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, fmt.Errorf("%w: room key %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("scene: get %s: %w", key, err)
	}
	return []byte(v), nil
}

// RoomSet writes a room-scoped key. Last write wins.
func (s *CacheStore) RoomSet(ctx context.Context, key string, value []byte) error {
	if err := s.cache.Set(ctx, s.roomKey(key), string(value), 0); err != nil {
		return fmt.Errorf("scene: set %s: %w", key, err)
	}
	s.notify(ctx, key)
	return nil
}

// RoomSetIfAbsent writes a room-scoped key only if nobody else holds it.
func (s *CacheStore) RoomSetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.cache.SetNX(ctx, s.roomKey(key), string(value), 0)
	if err != nil {
		return false, fmt.Errorf("scene: setnx %s: %w", key, err)
	}
	if ok {
		s.notify(ctx, key)
	}
	return ok, nil
}

// RoomDelete sets a room-scoped key absent.
func (s *CacheStore) RoomDelete(ctx context.Context, key string) error {
	if err := s.cache.Del(ctx, s.roomKey(key)); err != nil {
		return fmt.Errorf("scene: delete %s: %w", key, err)
	}
	s.notify(ctx, key)
	return nil
}

func (s *CacheStore) notify(ctx context.Context, key string) {
	if s.cfg.Transport != TransportPubSub {
		return
	}
	if err := s.pubsub.Publish(ctx, s.channel(key), key); err != nil {
		s.logger.Warn("scene change notification failed", zap.String("key", key), zap.Error(err))
	}
}

// Subscribe watches a room key. In poll mode the key is re-read every
// PollInterval; in pubsub mode a change notification triggers the re-read.
// Either way only changed values are delivered.
func (s *CacheStore) Subscribe(ctx context.Context, key string) (<-chan []byte, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	var wake <-chan *cache.Message
	var unsubscribe func()
	if s.cfg.Transport == TransportPubSub {
		ch, unsub, err := s.pubsub.Subscribe(ctx, s.channel(key))
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("scene: subscribe %s: %w", key, err)
		}
		wake, unsubscribe = ch, unsub
	}

	out := make(chan []byte, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		if unsubscribe != nil {
			defer unsubscribe()
		}

		var last []byte
		first := true
		emit := func() bool {
			v, err := s.RoomGet(ctx, key)
			if err != nil && !IsNotFound(err) {
				if ctx.Err() == nil {
					s.logger.Warn("scene poll failed", zap.String("key", key), zap.Error(err))
				}
				return true
			}
			if !first && bytes.Equal(v, last) && (v == nil) == (last == nil) {
				return true
			}
			first = false
			last = v
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.cfg.Transport == TransportPubSub {
					continue
				}
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
			}
			if !emit() {
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return out, stop, nil
}
