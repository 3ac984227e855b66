package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enumerates the roles a user can hold. Exactly one role is
// assigned per account.
type UserRole string

// UserStatus enumerates the moderation states of an account.
type UserStatus string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdmin   UserRole = "ADMIN"

	StatusActive UserStatus = "ACTIVE"
	StatusMuted  UserStatus = "MUTED"
	StatusBanned UserStatus = "BANNED"
)

// User represents a member of the learning community. Status and violations
// are mutated only through the moderation service; blocks, preferences and
// the room marker only by the owning user.
type User struct {
	ID           string     `gorm:"primaryKey;size:64" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         UserRole   `gorm:"size:16;not null;default:STUDENT" json:"role"`
	Stage        string     `gorm:"size:128" json:"stage"`
	Grade        string     `gorm:"size:128" json:"grade"`
	SchoolName   string     `gorm:"size:255" json:"school_name"`
	Classroom    string     `gorm:"size:64" json:"classroom"`
	Status       UserStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`

	// Notification preferences.
	ChatNotifications         bool `gorm:"not null;default:true" json:"chat_notifications"`
	AnnouncementNotifications bool `gorm:"not null;default:true" json:"announcement_notifications"`

	// CurrentRoomID marks the room the user is presently viewing, if any.
	CurrentRoomID *string `gorm:"size:300" json:"current_room_id"`

	Blocks     []UserBlock       `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Violations []ViolationRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"violations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the record has no identifier yet.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserBlock records that OwnerID hides messages sent by BlockedID. The block
// affects the owner's views only; the blocked party is never notified or
// restricted.
type UserBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"size:64;not null;uniqueIndex:idx_owner_blocked" json:"owner_id"`
	BlockedID string    `gorm:"size:64;not null;uniqueIndex:idx_owner_blocked" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ViolationRecord is an immutable audit entry appended when a sanction is
// applied. Records are never edited or removed.
type ViolationRecord struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"size:64;not null;index" json:"user_id"`
	Type      SanctionType `gorm:"size:16;not null" json:"type"`
	Reason    string       `gorm:"type:text;not null" json:"reason"`
	CreatedAt time.Time    `json:"created_at"`
}
