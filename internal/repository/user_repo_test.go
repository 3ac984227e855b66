package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/models"
)

func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func seedUser(t *testing.T, repo UserRepository, name, email string) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		Stage:        "اعدادي",
		Grade:        "الثالث",
		Status:       models.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), &user))
	return user
}

func TestUserRepositoryEmailUnique(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	seedUser(t, repo, "Ahmed", "ahmed@example.com")

	dup := models.User{Name: "Other", Email: "ahmed@example.com", PasswordHash: "hash"}
	err := repo.Create(context.Background(), &dup)
	require.ErrorIs(t, err, ErrEmailConflict)
}

func TestUserRepositoryApplySanctionAtomically(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	user := seedUser(t, repo, "Ahmed", "ahmed@example.com")

	updated, err := repo.ApplySanction(context.Background(), user.ID, models.StatusMuted, models.ViolationRecord{
		Type:   models.SanctionMute,
		Reason: "spam",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusMuted, updated.Status)

	violations, err := repo.ListViolations(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, models.SanctionMute, violations[0].Type)

	_, err = repo.ApplySanction(context.Background(), "missing", models.StatusBanned, models.ViolationRecord{Type: models.SanctionBan, Reason: "x"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepositoryViolationsOrderedOldestFirst(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	user := seedUser(t, repo, "Ahmed", "ahmed@example.com")

	_, err := repo.ApplySanction(context.Background(), user.ID, models.StatusBanned, models.ViolationRecord{Type: models.SanctionBan, Reason: "first"})
	require.NoError(t, err)
	_, err = repo.ApplySanction(context.Background(), user.ID, models.StatusActive, models.ViolationRecord{Type: models.SanctionWarning, Reason: "second"})
	require.NoError(t, err)

	violations, err := repo.ListViolations(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, violations, 2)
	require.Equal(t, "first", violations[0].Reason)
	require.Equal(t, "second", violations[1].Reason)
}

func TestUserRepositoryBlockIsIdempotent(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	owner := seedUser(t, repo, "Ahmed", "ahmed@example.com")
	other := seedUser(t, repo, "Sara", "sara@example.com")

	require.NoError(t, repo.Block(context.Background(), owner.ID, other.ID))
	require.NoError(t, repo.Block(context.Background(), owner.ID, other.ID))

	ids, err := repo.ListBlockedIDs(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Equal(t, []string{other.ID}, ids)

	require.NoError(t, repo.Unblock(context.Background(), owner.ID, other.ID))
	ids, err = repo.ListBlockedIDs(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestUserRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	user := seedUser(t, repo, "Ahmed", "ahmed@example.com")
	other := seedUser(t, repo, "Sara", "sara@example.com")

	require.NoError(t, repo.Block(context.Background(), user.ID, other.ID))
	require.NoError(t, repo.Block(context.Background(), other.ID, user.ID))
	_, err := repo.ApplySanction(context.Background(), user.ID, models.StatusMuted, models.ViolationRecord{Type: models.SanctionMute, Reason: "spam"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), user.ID))

	_, err = repo.GetByID(context.Background(), user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var blocks int64
	require.NoError(t, db.Model(&models.UserBlock{}).Count(&blocks).Error)
	require.Zero(t, blocks)

	var violations int64
	require.NoError(t, db.Model(&models.ViolationRecord{}).Count(&violations).Error)
	require.Zero(t, violations)

	require.ErrorIs(t, repo.Delete(context.Background(), user.ID), gorm.ErrRecordNotFound)
}

func TestUserRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	seedUser(t, repo, "Ahmed", "ahmed@example.com")
	seedUser(t, repo, "Sara", "sara@example.com")
	banned := seedUser(t, repo, "Omar", "omar@example.com")
	_, err := repo.ApplySanction(context.Background(), banned.ID, models.StatusBanned, models.ViolationRecord{Type: models.SanctionBan, Reason: "abuse"})
	require.NoError(t, err)

	all, total, err := repo.List(context.Background(), UserFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, all, 3)

	bannedOnly, total, err := repo.List(context.Background(), UserFilter{Status: string(models.StatusBanned)})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, bannedOnly, 1)
	require.Equal(t, banned.ID, bannedOnly[0].ID)

	searched, total, err := repo.List(context.Background(), UserFilter{Search: "sara"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Sara", searched[0].Name)

	paged, total, err := repo.List(context.Background(), UserFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestUserRepositorySetCurrentRoom(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.UserBlock{}, &models.ViolationRecord{})
	repo := NewUserRepository(db)

	user := seedUser(t, repo, "Ahmed", "ahmed@example.com")

	room := "اعدادي_الثالث"
	require.NoError(t, repo.SetCurrentRoom(context.Background(), user.ID, &room))

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentRoomID)
	require.Equal(t, room, *stored.CurrentRoomID)

	require.NoError(t, repo.SetCurrentRoom(context.Background(), user.ID, nil))
	stored, err = repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Nil(t, stored.CurrentRoomID)

	require.ErrorIs(t, repo.SetCurrentRoom(context.Background(), "missing", &room), gorm.ErrRecordNotFound)
}
