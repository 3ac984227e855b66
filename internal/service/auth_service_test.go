package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserBlock{},
		&models.ViolationRecord{},
		&models.ChatMessage{},
		&models.Report{},
		&models.ModerationLog{},
	))
	return db
}

func registerTestUser(t *testing.T, svc AuthService, name, email string) dto.UserResponse {
	t.Helper()
	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
		Stage:           "اعدادي",
		Grade:           "الثالث",
	})
	require.NoError(t, err)
	return user
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, validator.New(), "secret", time.Hour, testLogger())

	created := registerTestUser(t, svc, "Ahmed", "Ahmed@Example.com")
	require.Equal(t, "ahmed@example.com", created.Email)
	require.Equal(t, models.RoleStudent, created.Role)
	require.Equal(t, models.StatusActive, created.Status)

	auth, err := svc.Login(context.Background(), dto.LoginRequest{Email: "ahmed@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, auth.Token)
	require.Equal(t, created.ID, auth.User.ID)

	token, err := jwt.Parse(auth.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	require.Equal(t, created.ID, claims["sub"])
	require.Equal(t, "student", claims["role"])
}

func TestAuthServiceRejectsDuplicateEmail(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), validator.New(), "secret", time.Hour, testLogger())

	registerTestUser(t, svc, "Ahmed", "ahmed@example.com")

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:            "Imposter",
		Email:           "AHMED@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

// staleEmailLookupRepo simulates a concurrent registration: the email lookup
// reports the address as free even though the row already exists, so the
// unique index is the last line of defense.
type staleEmailLookupRepo struct {
	repository.UserRepository
}

func (staleEmailLookupRepo) GetByEmail(context.Context, string) (models.User, error) {
	return models.User{}, gorm.ErrRecordNotFound
}

func TestAuthServiceRegisterMapsConcurrentEmailConflict(t *testing.T) {
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(staleEmailLookupRepo{users}, validator.New(), "secret", time.Hour, testLogger())

	registerTestUser(t, svc, "Ahmed", "ahmed@example.com")

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:            "Racer",
		Email:           "ahmed@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthServiceRejectsPasswordMismatch(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), validator.New(), "secret", time.Hour, testLogger())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:            "Ahmed",
		Email:           "ahmed@example.com",
		Password:        "password123",
		ConfirmPassword: "different123",
	})
	require.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestAuthServiceRejectsShortPassword(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), validator.New(), "secret", time.Hour, testLogger())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:            "Ahmed",
		Email:           "ahmed@example.com",
		Password:        "short",
		ConfirmPassword: "short",
	})
	require.Error(t, err)
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
}

func TestAuthServiceBanCheckedAfterPassword(t *testing.T) {
	db := setupServiceDB(t)
	users := repository.NewUserRepository(db)
	svc := NewAuthService(users, validator.New(), "secret", time.Hour, testLogger())

	created := registerTestUser(t, svc, "Ahmed", "ahmed@example.com")
	_, err := users.ApplySanction(context.Background(), created.ID, models.StatusBanned, models.ViolationRecord{Type: models.SanctionBan, Reason: "abuse"})
	require.NoError(t, err)

	// A wrong password never reveals the ban.
	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "ahmed@example.com", Password: "wrongpassword"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "ahmed@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrAccountBanned)
}

func TestAuthServiceUnknownEmail(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), validator.New(), "secret", time.Hour, testLogger())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	require.ErrorIs(t, err, ErrUserNotFound)
}
