package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModerationLog captures auditable actions taken from the moderation
// console: sanctions, report resolutions and account deletions.
type ModerationLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ActorID   string            `gorm:"size:64;not null;index" json:"actor_id"`
	Action    string            `gorm:"size:64;not null;index" json:"action"`
	TargetID  string            `gorm:"size:64" json:"target_id"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
