package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatMessage is an immutable entry in the message log, addressed to a room
// identifier. Messages are retained indefinitely and never mutated after
// creation; visibility filtering happens at read time. Seq is an
// auto-incrementing sequence that preserves insertion order when two messages
// share the same creation timestamp.
type ChatMessage struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string    `gorm:"size:64;uniqueIndex;not null" json:"id"`
	SenderID    string    `gorm:"size:64;not null;index" json:"sender_id"`
	SenderName  string    `gorm:"size:255;not null" json:"sender_name"`
	SenderEmail string    `gorm:"size:255" json:"sender_email,omitempty"`
	RoomID      string    `gorm:"size:300;not null;index:idx_room_created" json:"room_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `gorm:"index:idx_room_created" json:"created_at"`
}

// BeforeCreate assigns a UUID when the record has no identifier yet.
func (m *ChatMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
