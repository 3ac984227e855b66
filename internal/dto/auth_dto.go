package dto

import (
	"time"

	"github.com/wecan-app/wecan-api/internal/models"
)

// RegisterRequest carries the signup form payload.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=255"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Stage           string `json:"stage" validate:"omitempty,max=128"`
	Grade           string `json:"grade" validate:"omitempty,max=128"`
	SchoolName      string `json:"school_name" validate:"omitempty,max=255"`
	Classroom       string `json:"classroom" validate:"omitempty,max=64"`
}

// LoginRequest carries the credential payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the serialized representation of a user account.
type UserResponse struct {
	ID                        string            `json:"id"`
	Name                      string            `json:"name"`
	Email                     string            `json:"email"`
	Role                      models.UserRole   `json:"role"`
	Stage                     string            `json:"stage,omitempty"`
	Grade                     string            `json:"grade,omitempty"`
	SchoolName                string            `json:"school_name,omitempty"`
	Classroom                 string            `json:"classroom,omitempty"`
	Status                    models.UserStatus `json:"status"`
	ChatNotifications         bool              `json:"chat_notifications"`
	AnnouncementNotifications bool              `json:"announcement_notifications"`
	CurrentRoomID             *string           `json:"current_room_id,omitempty"`
	ViolationCount            int               `json:"violation_count"`
	CreatedAt                 time.Time         `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:                        user.ID,
		Name:                      user.Name,
		Email:                     user.Email,
		Role:                      user.Role,
		Stage:                     user.Stage,
		Grade:                     user.Grade,
		SchoolName:                user.SchoolName,
		Classroom:                 user.Classroom,
		Status:                    user.Status,
		ChatNotifications:         user.ChatNotifications,
		AnnouncementNotifications: user.AnnouncementNotifications,
		CurrentRoomID:             user.CurrentRoomID,
		ViolationCount:            len(user.Violations),
		CreatedAt:                 user.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of user models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserResponse(user))
	}
	return out
}

// AuthResponse bundles the authenticated user with their session token.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
