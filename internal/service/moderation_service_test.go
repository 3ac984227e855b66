package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
)

type moderationFixture struct {
	db         *gorm.DB
	users      repository.UserRepository
	audit      repository.ModerationLogRepository
	moderation ModerationService
}

func newModerationFixture(t *testing.T) moderationFixture {
	t.Helper()
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	audit := repository.NewModerationLogRepository(db)
	svc := NewModerationService(users, audit, validator.New(), testLogger())
	return moderationFixture{db: db, users: users, audit: audit, moderation: svc}
}

func (f moderationFixture) seedUser(t *testing.T, name, email string, role models.UserRole) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Status:       models.StatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), &user))
	return user
}

func TestModerationServiceBanThenReactivate(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	student := f.seedUser(t, "Ahmed", "ahmed@example.com", models.RoleStudent)

	banned, err := f.moderation.ApplySanction(context.Background(), admin.ID, student.ID, dto.SanctionRequest{
		Type:   models.SanctionBan,
		Reason: "سلوك غير لائق",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusBanned, banned.User.Status)
	require.Len(t, banned.Violations, 1)
	require.Equal(t, models.SanctionBan, banned.Violations[0].Type)

	restored, err := f.moderation.ApplySanction(context.Background(), admin.ID, student.ID, dto.SanctionRequest{
		Type:   models.SanctionReactivate,
		Reason: "تمت المراجعة",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, restored.User.Status)

	// Reactivation keeps the full history: two entries, the second logged as
	// a warning.
	require.Len(t, restored.Violations, 2)
	require.Equal(t, models.SanctionBan, restored.Violations[0].Type)
	require.Equal(t, models.SanctionWarning, restored.Violations[1].Type)
}

func TestModerationServiceWarningKeepsStatus(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	student := f.seedUser(t, "Ahmed", "ahmed@example.com", models.RoleStudent)

	result, err := f.moderation.ApplySanction(context.Background(), admin.ID, student.ID, dto.SanctionRequest{
		Type:   models.SanctionWarning,
		Reason: "تنبيه",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, result.User.Status)
	require.Len(t, result.Violations, 1)
}

func TestModerationServiceRefusesAdminTarget(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	other := f.seedUser(t, "Other Admin", "other@example.com", models.RoleAdmin)

	_, err := f.moderation.ApplySanction(context.Background(), admin.ID, other.ID, dto.SanctionRequest{
		Type:   models.SanctionBan,
		Reason: "n/a",
	})
	require.ErrorIs(t, err, ErrProtectedRole)

	require.ErrorIs(t, f.moderation.DeleteUser(context.Background(), admin.ID, other.ID), ErrProtectedRole)
}

func TestModerationServiceUnknownTarget(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)

	_, err := f.moderation.ApplySanction(context.Background(), admin.ID, "missing", dto.SanctionRequest{
		Type:   models.SanctionMute,
		Reason: "spam",
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestModerationServiceWritesAuditTrail(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	student := f.seedUser(t, "Ahmed", "ahmed@example.com", models.RoleStudent)

	_, err := f.moderation.ApplySanction(context.Background(), admin.ID, student.ID, dto.SanctionRequest{
		Type:   models.SanctionMute,
		Reason: "spam",
	})
	require.NoError(t, err)

	require.NoError(t, f.moderation.DeleteUser(context.Background(), admin.ID, student.ID))

	log, err := f.moderation.AuditLog(context.Background(), dto.ModerationLogListRequest{ActorID: admin.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), log.Pagination.TotalItems)

	actions := []string{log.Items[0].Action, log.Items[1].Action}
	require.Contains(t, actions, "sanction.MUTE")
	require.Contains(t, actions, "user.delete")
}

func TestModerationServiceDeleteRemovesAccount(t *testing.T) {
	f := newModerationFixture(t)
	admin := f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	student := f.seedUser(t, "Ahmed", "ahmed@example.com", models.RoleStudent)

	require.NoError(t, f.moderation.DeleteUser(context.Background(), admin.ID, student.ID))
	require.ErrorIs(t, f.moderation.DeleteUser(context.Background(), admin.ID, student.ID), ErrUserNotFound)
}

func TestModerationServiceListUsers(t *testing.T) {
	f := newModerationFixture(t)
	f.seedUser(t, "Admin", "admin@example.com", models.RoleAdmin)
	f.seedUser(t, "Ahmed", "ahmed@example.com", models.RoleStudent)
	f.seedUser(t, "Sara", "sara@example.com", models.RoleStudent)

	listed, err := f.moderation.ListUsers(context.Background(), dto.AdminUserListRequest{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), listed.Pagination.TotalItems)
	require.Equal(t, 2, listed.Pagination.TotalPages)
	require.Len(t, listed.Items, 2)

	searched, err := f.moderation.ListUsers(context.Background(), dto.AdminUserListRequest{Search: "sara"})
	require.NoError(t, err)
	require.Equal(t, int64(1), searched.Pagination.TotalItems)
}
