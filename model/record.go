package model

import (
	"time"

	"gorm.io/datatypes"
)

// CharacterRecord is the durable copy of a character, keyed by (campaign, token).
type CharacterRecord struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CampaignID    string         `gorm:"uniqueIndex:idx_campaign_token;size:64;not null" json:"campaign_id"`
	TokenID       string         `gorm:"uniqueIndex:idx_campaign_token;size:64;not null" json:"token_id"`
	SchemaVersion int            `gorm:"default:0" json:"schema_version"`
	Payload       datatypes.JSON `json:"payload"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
