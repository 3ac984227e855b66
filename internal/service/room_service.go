package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
)

// ErrUnknownRoomTarget indicates the requested conversation target could not
// be resolved to a room.
var ErrUnknownRoomTarget = errors.New("unknown room target")

// RoomService resolves conversation targets to stable room keys and lists the
// membership of a room. Resolution is deterministic: the same user and target
// always map to the same key.
type RoomService interface {
	Resolve(ctx context.Context, viewer models.User, target string) (models.RoomKey, error)
	Members(ctx context.Context, room models.RoomKey, viewer models.User) ([]models.User, error)
}

type roomService struct {
	users repository.UserRepository
}

// NewRoomService constructs the room resolver.
func NewRoomService(users repository.UserRepository) RoomService {
	return &roomService{users: users}
}

// Resolve maps a target string to a room key. The target "public" names the
// broadcast room, "class" names the viewer's own class room, and any other
// value is treated as the counterpart user id of a direct conversation.
func (s *roomService) Resolve(ctx context.Context, viewer models.User, target string) (models.RoomKey, error) {
	switch strings.TrimSpace(target) {
	case "", models.BroadcastRoomID:
		return models.BroadcastRoom(), nil
	case "class":
		return models.ClassRoom(viewer.Stage, viewer.Grade), nil
	}

	counterpartID := strings.TrimSpace(target)
	if _, err := s.users.GetByID(ctx, counterpartID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoomKey{}, ErrUnknownRoomTarget
		}
		return models.RoomKey{}, err
	}
	return models.DirectRoom(counterpartID)
}

// Members returns the users that belong to a room. Broadcast membership is
// every account, class membership is everyone sharing the stage/grade pair,
// and a direct room holds the viewer plus the counterpart.
func (s *roomService) Members(ctx context.Context, room models.RoomKey, viewer models.User) ([]models.User, error) {
	switch room.Kind() {
	case models.RoomBroadcast:
		users, _, err := s.users.List(ctx, repository.UserFilter{})
		return users, err
	case models.RoomClass:
		stage, grade, ok := room.ClassComponents()
		if !ok {
			return nil, ErrUnknownRoomTarget
		}
		return s.users.ListByClass(ctx, stage, grade)
	case models.RoomDirect:
		counterpart, err := s.users.GetByID(ctx, room.ID())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownRoomTarget
			}
			return nil, err
		}
		if counterpart.ID == viewer.ID {
			return []models.User{viewer}, nil
		}
		return []models.User{viewer, counterpart}, nil
	default:
		return nil, ErrUnknownRoomTarget
	}
}
