package testutil

import (
	"testing"
	"time"

	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/config"
	dbadapter "github.com/kasuganosora/tabletrade/db"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/kasuganosora/tabletrade/scene"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB opens an in-memory sqlite DB and runs AutoMigrate.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: dbadapter.MemoryPath,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// SetupTestScene creates a polling scene store over a fresh local cache.
func SetupTestScene(t *testing.T) *scene.CacheStore {
	t.Helper()
	c, ps := SetupTestCache(t)
	return scene.NewCacheStore(c, ps, scene.StoreConfig{
		RoomID:       "test-room",
		Transport:    scene.TransportPoll,
		PollInterval: 10 * time.Millisecond,
	}, zap.NewNop())
}

// PutTokens seeds the scene with tokens.
func PutTokens(t *testing.T, s scene.Store, tokens ...model.Token) {
	t.Helper()
	for _, tok := range tokens {
		require.NoError(t, s.PutToken(t.Context(), tok), "PutTokens: %s", tok.ID)
	}
}
