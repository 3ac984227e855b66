package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/handler"
	"github.com/wecan-app/wecan-api/internal/service"
)

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func jsonRequest(t *testing.T, method, path string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type mockAuthService struct {
	registerResponse dto.UserResponse
	loginResponse    dto.AuthResponse
	currentUser      dto.UserResponse
	err              error
}

func (m *mockAuthService) Register(_ context.Context, _ dto.RegisterRequest) (dto.UserResponse, error) {
	if m.err != nil {
		return dto.UserResponse{}, m.err
	}
	return m.registerResponse, nil
}

func (m *mockAuthService) Login(_ context.Context, _ dto.LoginRequest) (dto.AuthResponse, error) {
	if m.err != nil {
		return dto.AuthResponse{}, m.err
	}
	return m.loginResponse, nil
}

func (m *mockAuthService) CurrentUser(_ context.Context, _ string) (dto.UserResponse, error) {
	if m.err != nil {
		return dto.UserResponse{}, m.err
	}
	return m.currentUser, nil
}

func TestAuthHandler_RegisterSuccess(t *testing.T) {
	svc := &mockAuthService{registerResponse: dto.UserResponse{ID: "u1", Email: "ahmed@example.com"}}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth"))

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Name:            "Ahmed",
		Email:           "ahmed@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool             `json:"success"`
		Data    dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "u1", response.Data.ID)
}

func TestAuthHandler_LoginErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "unknown user", err: service.ErrUserNotFound, statusCode: fiber.StatusUnauthorized},
		{name: "bad password", err: service.ErrInvalidCredentials, statusCode: fiber.StatusUnauthorized},
		{name: "banned", err: service.ErrAccountBanned, statusCode: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAuthService{err: tc.err}
			app := fiber.New()
			handler.NewAuthHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth"))

			req := jsonRequest(t, http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "ahmed@example.com", Password: "password123"})
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestAuthHandler_RegisterConflict(t *testing.T) {
	svc := &mockAuthService{err: service.ErrEmailTaken}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/v1/auth"))

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Name:            "Ahmed",
		Email:           "ahmed@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAuthHandler_MeRequiresSession(t *testing.T) {
	svc := &mockAuthService{currentUser: dto.UserResponse{ID: "u1"}}
	app := fiber.New()

	authenticated := app.Group("/api/v1/auth", func(c *fiber.Ctx) error {
		c.Locals("user_id", "u1")
		return c.Next()
	})
	handler.NewAuthHandler(svc, zerolog.New(io.Discard)).RegisterProtected(authenticated)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	anonymous := fiber.New()
	handler.NewAuthHandler(svc, zerolog.New(io.Discard)).RegisterProtected(anonymous.Group("/api/v1/auth"))
	resp, err = anonymous.Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
