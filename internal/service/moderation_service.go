package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/observability"
	"github.com/wecan-app/wecan-api/internal/repository"
)

var (
	// ErrProtectedRole indicates the sanction target is an administrator.
	// Admin accounts never receive sanctions.
	ErrProtectedRole = errors.New("cannot sanction an administrator")
	// ErrUnknownSanction indicates the sanction type is outside the closed set.
	ErrUnknownSanction = errors.New("unknown sanction type")
)

// ModerationService is the moderation controller: it applies sanctions,
// removes accounts, and keeps an audit trail of every action taken.
type ModerationService interface {
	ListUsers(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error)
	ApplySanction(ctx context.Context, actorID, targetID string, req dto.SanctionRequest) (dto.SanctionResponse, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
	Violations(ctx context.Context, targetID string) ([]dto.ViolationResponse, error)
	AuditLog(ctx context.Context, req dto.ModerationLogListRequest) (dto.ModerationLogListResponse, error)
}

type moderationService struct {
	users     repository.UserRepository
	audit     repository.ModerationLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewModerationService constructs the moderation controller.
func NewModerationService(users repository.UserRepository, audit repository.ModerationLogRepository, validate *validator.Validate, logger zerolog.Logger) ModerationService {
	return &moderationService{
		users:     users,
		audit:     audit,
		validator: validate,
		logger:    logger.With().Str("component", "moderation_service").Logger(),
		tracer:    otel.Tracer("github.com/wecan-app/wecan-api/internal/service/moderation"),
	}
}

func (s *moderationService) ListUsers(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminUserListResponse{}, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	users, total, err := s.users.List(ctx, repository.UserFilter{
		Search:   req.Search,
		Stage:    req.Stage,
		Grade:    req.Grade,
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	return dto.AdminUserListResponse{
		Items:      dto.NewUserResponseSlice(users),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

// ApplySanction escalates or lifts a sanction on the target account. The
// status transition and the violation record are written in one transaction;
// REACTIVATE restores the account but still records a warning-typed
// violation, so the history keeps its full length.
func (s *moderationService) ApplySanction(ctx context.Context, actorID, targetID string, req dto.SanctionRequest) (dto.SanctionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SanctionResponse{}, err
	}

	sanction := models.SanctionType(req.Type)
	if !sanction.Valid() {
		return dto.SanctionResponse{}, ErrUnknownSanction
	}

	ctx, span := s.tracer.Start(ctx, "moderation.apply_sanction", trace.WithAttributes(
		attribute.String("moderation.target_id", targetID),
		attribute.String("moderation.sanction", string(sanction)),
	))
	defer span.End()

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SanctionResponse{}, ErrUserNotFound
		}
		return dto.SanctionResponse{}, err
	}

	if target.IsAdmin() {
		s.logger.Warn().Str("actor_id", actorID).Str("target_id", targetID).Msg("sanction refused for administrator target")
		return dto.SanctionResponse{}, ErrProtectedRole
	}

	nextStatus := sanction.NextStatus(target.Status)
	violation := models.ViolationRecord{
		UserID: target.ID,
		Type:   sanction.ViolationType(),
		Reason: req.Reason,
	}

	updated, err := s.users.ApplySanction(ctx, target.ID, nextStatus, violation)
	if err != nil {
		span.RecordError(err)
		return dto.SanctionResponse{}, err
	}

	s.recordAudit(ctx, actorID, "sanction."+string(sanction), target.ID, datatypes.JSONMap{
		"reason":      req.Reason,
		"prev_status": string(target.Status),
		"next_status": string(nextStatus),
	})
	observability.Sanctions().WithLabelValues(string(sanction)).Inc()

	violations, err := s.users.ListViolations(ctx, target.ID)
	if err != nil {
		return dto.SanctionResponse{}, err
	}

	s.logger.Info().
		Str("actor_id", actorID).
		Str("target_id", target.ID).
		Str("sanction", string(sanction)).
		Str("status", string(updated.Status)).
		Msg("sanction applied")

	return dto.SanctionResponse{
		User:       dto.NewUserResponse(updated),
		Violations: dto.NewViolationResponseSlice(violations),
	}, nil
}

// DeleteUser removes the account together with its blocks and violation
// history. Administrator accounts cannot be deleted through moderation.
func (s *moderationService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if target.IsAdmin() {
		return ErrProtectedRole
	}

	if err := s.users.Delete(ctx, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.recordAudit(ctx, actorID, "user.delete", target.ID, datatypes.JSONMap{
		"email": target.Email,
	})

	s.logger.Info().Str("actor_id", actorID).Str("target_id", target.ID).Msg("account deleted")
	return nil
}

func (s *moderationService) Violations(ctx context.Context, targetID string) ([]dto.ViolationResponse, error) {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	violations, err := s.users.ListViolations(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return dto.NewViolationResponseSlice(violations), nil
}

func (s *moderationService) AuditLog(ctx context.Context, req dto.ModerationLogListRequest) (dto.ModerationLogListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	entries, total, err := s.audit.List(ctx, repository.ModerationLogFilter{
		ActorID:  req.ActorID,
		Action:   req.Action,
		TargetID: req.TargetID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.ModerationLogListResponse{}, err
	}

	return dto.ModerationLogListResponse{
		Items:      dto.NewModerationLogEntryResponseSlice(entries),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

// recordAudit writes a moderation log entry. Audit failures are logged but do
// not fail the action itself, which already committed.
func (s *moderationService) recordAudit(ctx context.Context, actorID, action, targetID string, metadata datatypes.JSONMap) {
	entry := models.ModerationLog{
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Metadata: metadata,
	}
	if err := s.audit.Create(ctx, &entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Str("target_id", targetID).Msg("failed to write moderation log entry")
	}
}
