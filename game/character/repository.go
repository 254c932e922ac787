package character

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/tabletrade/cache"
	"github.com/kasuganosora/tabletrade/model"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no durable or cached copy exists.
var ErrNotFound = errors.New("character record not found")

// Repository saves characters keyed by (campaign, token). Every save writes a
// zstd-compressed copy to the cache first, so a load can fall back to it when
// the database is unreachable.
type Repository struct {
	db       *gorm.DB
	cache    cache.Cache
	cacheTTL time.Duration
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	logger   *zap.Logger
}

// NewRepository creates a Repository. Either backend may be nil.
func NewRepository(db *gorm.DB, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) (*Repository, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("character: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("character: zstd reader: %w", err)
	}
	return &Repository{db: db, cache: c, cacheTTL: cacheTTL, enc: enc, dec: dec, logger: logger}, nil
}

// Close releases the decoder.
func (r *Repository) Close() {
	r.dec.Close()
}

func cacheKey(campaignID, tokenID string) string {
	return "character:" + campaignID + ":" + tokenID
}

// Save writes the character. A cache failure is logged; a database failure
// is returned after the cache copy has been written.
func (r *Repository) Save(ctx context.Context, campaignID, tokenID string, c model.Character) error {
	payload, err := Encode(c)
	if err != nil {
		return fmt.Errorf("character: encode: %w", err)
	}

	if r.cache != nil {
		packed := r.enc.EncodeAll(payload, nil)
		if err := r.cache.Set(ctx, cacheKey(campaignID, tokenID), string(packed), r.cacheTTL); err != nil {
			r.logger.Warn("character cache write failed",
				zap.String("campaign_id", campaignID), zap.String("token_id", tokenID), zap.Error(err))
		}
	}
	if r.db == nil {
		return nil
	}

	rec := model.CharacterRecord{
		CampaignID:    campaignID,
		TokenID:       tokenID,
		SchemaVersion: model.CurrentSchemaVersion,
		Payload:       datatypes.JSON(payload),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "campaign_id"}, {Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schema_version", "payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("character: save %s/%s: %w", campaignID, tokenID, err)
	}
	return nil
}

// Load reads the character from the database, or from the cache copy when the
// database has no row or cannot be reached.
func (r *Repository) Load(ctx context.Context, campaignID, tokenID string) (model.Character, error) {
	var dbErr error
	if r.db != nil {
		var rec model.CharacterRecord
		dbErr = r.db.WithContext(ctx).
			Where("campaign_id = ? AND token_id = ?", campaignID, tokenID).
			First(&rec).Error
		if dbErr == nil {
			return Decode(rec.Payload)
		}
		if !errors.Is(dbErr, gorm.ErrRecordNotFound) {
			r.logger.Warn("character db read failed, trying cache",
				zap.String("campaign_id", campaignID), zap.String("token_id", tokenID), zap.Error(dbErr))
		}
	}

	if r.cache != nil {
		packed, err := r.cache.Get(ctx, cacheKey(campaignID, tokenID))
		if err == nil {
			payload, err := r.dec.DecodeAll([]byte(packed), nil)
			if err != nil {
				return model.Character{}, fmt.Errorf("character: decompress cache entry: %w", err)
			}
			return Decode(payload)
		}
		if !cache.IsNotFound(err) {
			r.logger.Warn("character cache read failed", zap.String("token_id", tokenID), zap.Error(err))
		}
	}

	if dbErr != nil && !errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return model.Character{}, fmt.Errorf("character: load %s/%s: %w", campaignID, tokenID, dbErr)
	}
	return model.Character{}, ErrNotFound
}
