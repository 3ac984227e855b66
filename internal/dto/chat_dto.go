package dto

import (
	"time"

	"github.com/wecan-app/wecan-api/internal/models"
)

// ChatPublishRequest is the payload used to append a message to a room.
// Target accepts the reserved broadcast id, a composed class-room key or a
// counterpart user id.
type ChatPublishRequest struct {
	Target string `json:"target" validate:"required,min=1,max=300"`
	Text   string `json:"text" validate:"required,min=1,max=4000"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email,omitempty"`
	RoomID      string    `json:"room_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		SenderName:  message.SenderName,
		SenderEmail: message.SenderEmail,
		RoomID:      message.RoomID,
		Text:        message.Text,
		CreatedAt:   message.CreatedAt,
	}
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}

// RoomResponse describes a resolved room and its membership.
type RoomResponse struct {
	ID      string          `json:"id"`
	Kind    models.RoomKind `json:"kind"`
	Members []UserResponse  `json:"members,omitempty"`
}

// RoomLobbyResponse lists the rooms available to the current user.
type RoomLobbyResponse struct {
	ClassRoom RoomResponse   `json:"class_room"`
	Broadcast RoomResponse   `json:"broadcast"`
	Contacts  []UserResponse `json:"contacts"`
}
