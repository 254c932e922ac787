package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records trade transitions and inventory commands.
type AuditLog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID       string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	RoomID        string         `gorm:"size:64" json:"room_id"`
	ParticipantID string         `gorm:"index:idx_audit_participant;size:64" json:"participant_id"`
	TokenID       string         `gorm:"size:64" json:"token_id"`
	TradeID       string         `gorm:"index:idx_audit_trade;size:36" json:"trade_id"`
	Action        string         `gorm:"size:64;not null" json:"action"`
	Request       datatypes.JSON `json:"request"`
	Response      datatypes.JSON `json:"response"`
	Error         string         `gorm:"type:text" json:"error"`
	DurationMs    int            `json:"duration_ms"`
	CreatedAt     time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
