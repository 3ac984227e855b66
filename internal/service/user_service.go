package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
)

// ErrSelfBlock indicates a user attempted to block themselves.
var ErrSelfBlock = errors.New("cannot block yourself")

// UserService covers account self-service: profile edits, notification
// preferences, block lists, and the remembered room.
type UserService interface {
	UpdateProfile(ctx context.Context, userID string, req dto.ProfileUpdateRequest) (dto.UserResponse, error)
	Block(ctx context.Context, ownerID, blockedID string) error
	Unblock(ctx context.Context, ownerID, blockedID string) error
	BlockList(ctx context.Context, ownerID string) (dto.BlockListResponse, error)
	SetCurrentRoom(ctx context.Context, userID string, req dto.CurrentRoomRequest) error
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user self-service layer.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

// UpdateProfile applies the provided fields. Nil pointers leave the stored
// value untouched.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Stage != nil {
		updates["stage"] = strings.TrimSpace(*req.Stage)
	}
	if req.Grade != nil {
		updates["grade"] = strings.TrimSpace(*req.Grade)
	}
	if req.SchoolName != nil {
		updates["school_name"] = strings.TrimSpace(*req.SchoolName)
	}
	if req.Classroom != nil {
		updates["classroom"] = strings.TrimSpace(*req.Classroom)
	}
	if req.ChatNotifications != nil {
		updates["chat_notifications"] = *req.ChatNotifications
	}
	if req.AnnouncementNotifications != nil {
		updates["announcement_notifications"] = *req.AnnouncementNotifications
	}

	if len(updates) == 0 {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.UserResponse{}, ErrUserNotFound
			}
			return dto.UserResponse{}, err
		}
		return dto.NewUserResponse(user), nil
	}

	user, err := s.users.Update(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	s.logger.Info().Str("user_id", userID).Int("fields", len(updates)).Msg("profile updated")
	return dto.NewUserResponse(user), nil
}

// Block hides the blocked user's messages from the owner. Blocking the same
// user twice is a no-op.
func (s *userService) Block(ctx context.Context, ownerID, blockedID string) error {
	if ownerID == blockedID {
		return ErrSelfBlock
	}

	if _, err := s.users.GetByID(ctx, blockedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.users.Block(ctx, ownerID, blockedID); err != nil {
		return err
	}

	s.logger.Info().Str("owner_id", ownerID).Str("blocked_id", blockedID).Msg("user blocked")
	return nil
}

func (s *userService) Unblock(ctx context.Context, ownerID, blockedID string) error {
	if err := s.users.Unblock(ctx, ownerID, blockedID); err != nil {
		return err
	}
	s.logger.Info().Str("owner_id", ownerID).Str("blocked_id", blockedID).Msg("user unblocked")
	return nil
}

func (s *userService) BlockList(ctx context.Context, ownerID string) (dto.BlockListResponse, error) {
	ids, err := s.users.ListBlockedIDs(ctx, ownerID)
	if err != nil {
		return dto.BlockListResponse{}, err
	}
	return dto.BlockListResponse{BlockedIDs: ids}, nil
}

// SetCurrentRoom remembers where the user left off so the client can restore
// the conversation on the next login. An empty room clears the memory.
func (s *userService) SetCurrentRoom(ctx context.Context, userID string, req dto.CurrentRoomRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	var roomID *string
	if req.RoomID != nil {
		if trimmed := strings.TrimSpace(*req.RoomID); trimmed != "" {
			room, err := models.ParseRoomID(trimmed)
			if err != nil {
				return ErrUnknownRoomTarget
			}
			id := room.ID()
			roomID = &id
		}
	}

	if err := s.users.SetCurrentRoom(ctx, userID, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
