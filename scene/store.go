package scene

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kasuganosora/tabletrade/model"
)

var (
	// ErrNotFound is returned for a missing token or room key.
	ErrNotFound = errors.New("scene: not found")
)

// IsNotFound reports whether err marks a missing token or room key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// MetadataFunc mutates a token's metadata in place during UpdateMetadata.
// Returning an error aborts the write.
type MetadataFunc func(meta map[string]json.RawMessage) error

// Store is the host's replicated scene surface: per-token metadata and
// room-scoped shared keys. Writes from any client become visible to all
// eventually; a read returns the latest value this client has observed.
type Store interface {
	Token(ctx context.Context, id string) (model.Token, error)
	Tokens(ctx context.Context) ([]model.Token, error)
	PutToken(ctx context.Context, t model.Token) error
	UpdateMetadata(ctx context.Context, id string, fn MetadataFunc) (model.Token, error)

	RoomGet(ctx context.Context, key string) ([]byte, error)
	RoomSet(ctx context.Context, key string, value []byte) error
	// RoomSetIfAbsent writes value only when key is absent at write time.
	RoomSetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	RoomDelete(ctx context.Context, key string) error

	// Subscribe delivers the key's value whenever it changes, starting with the
	// current value. A nil slice means the key is absent. The returned func
	// stops the subscription and closes the channel.
	Subscribe(ctx context.Context, key string) (<-chan []byte, func(), error)
}
