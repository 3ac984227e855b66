package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
)

// ErrSenderSuppressed indicates the sender was muted when the append was
// attempted. The status is re-read inside the insert transaction so a mute
// committed after the caller's permission check still suppresses the send.
var ErrSenderSuppressed = errors.New("sender is muted")

// MessageRepository is the append-only log of chat messages.
type MessageRepository interface {
	// CreateFromSender appends the message after re-validating the sender's
	// status within the same transaction.
	CreateFromSender(ctx context.Context, message *models.ChatMessage) error
	// ListByRoom returns the room's messages oldest first, skipping any
	// message whose sender appears in excludedSenders.
	ListByRoom(ctx context.Context, roomID string, excludedSenders []string) ([]models.ChatMessage, error)
	// ListDirect returns both sides of a direct conversation. Each party
	// stores its messages under the counterpart's id, so the query matches
	// the (room, sender) pair in either direction.
	ListDirect(ctx context.Context, viewerID, counterpartID string, excludedSenders []string) ([]models.ChatMessage, error)
	LatestByRoom(ctx context.Context, roomID string) (models.ChatMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateFromSender(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sender models.User
		if err := tx.Select("id", "status").First(&sender, "id = ?", message.SenderID).Error; err != nil {
			return err
		}
		if sender.Status == models.StatusMuted {
			return ErrSenderSuppressed
		}
		return tx.Create(message).Error
	})
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, excludedSenders []string) ([]models.ChatMessage, error) {
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if len(excludedSenders) > 0 {
		query = query.Where("sender_id NOT IN ?", excludedSenders)
	}

	var messages []models.ChatMessage
	if err := query.Order("created_at ASC, seq ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListDirect(ctx context.Context, viewerID, counterpartID string, excludedSenders []string) ([]models.ChatMessage, error) {
	query := r.db.WithContext(ctx).
		Where("(room_id = ? AND sender_id = ?) OR (room_id = ? AND sender_id = ?)",
			counterpartID, viewerID, viewerID, counterpartID)
	if len(excludedSenders) > 0 {
		query = query.Where("sender_id NOT IN ?", excludedSenders)
	}

	var messages []models.ChatMessage
	if err := query.Order("created_at ASC, seq ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) LatestByRoom(ctx context.Context, roomID string) (models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, seq DESC").
		First(&message).Error
	if err != nil {
		return models.ChatMessage{}, err
	}
	return message, nil
}
