package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/repository"
)

var (
	// ErrUserNotFound indicates no account exists for the given identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned indicates the account is banned and cannot hold a
	// session. It is only returned after the credentials checked out, so a
	// failed password guess never learns the ban status.
	ErrAccountBanned = errors.New("account is banned")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordMismatch indicates the confirmation did not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// AuthService is the session gate: it registers accounts and validates
// credentials, rejecting banned accounts at login time.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	CurrentUser(ctx context.Context, userID string) (dto.UserResponse, error)
}

type authService struct {
	users     repository.UserRepository
	validator *validator.Validate
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, validate *validator.Validate, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		users:     users,
		validator: validate,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/wecan-app/wecan-api/internal/service/auth"),
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, err
	}

	if req.Password != req.ConfirmPassword {
		return dto.UserResponse{}, ErrPasswordMismatch
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:                      strings.TrimSpace(req.Name),
		Email:                     email,
		PasswordHash:              string(hash),
		Role:                      models.RoleStudent,
		Stage:                     strings.TrimSpace(req.Stage),
		Grade:                     strings.TrimSpace(req.Grade),
		SchoolName:                strings.TrimSpace(req.SchoolName),
		Classroom:                 strings.TrimSpace(req.Classroom),
		Status:                    models.StatusActive,
		ChatNotifications:         true,
		AnnouncementNotifications: true,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrEmailConflict) {
			// A concurrent registration won the race between the email
			// check above and the insert.
			return dto.UserResponse{}, ErrEmailTaken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UserResponse{}, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("account registered")
	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrUserNotFound
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	// The ban check runs only after the password matched.
	if user.Status == models.StatusBanned {
		s.logger.Warn().Str("user_id", user.ID).Msg("banned account attempted login")
		return dto.AuthResponse{}, ErrAccountBanned
	}

	token, err := s.issueToken(user)
	if err != nil {
		span.RecordError(err)
		return dto.AuthResponse{}, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("login succeeded")
	return dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)}, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) issueToken(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": strings.ToLower(string(user.Role)),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
