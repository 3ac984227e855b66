package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/handler"
	"github.com/wecan-app/wecan-api/internal/models"
	"github.com/wecan-app/wecan-api/internal/service"
)

type mockModerationService struct {
	sanction     dto.SanctionResponse
	users        dto.AdminUserListResponse
	violations   []dto.ViolationResponse
	audit        dto.ModerationLogListResponse
	err          error
	lastActorID  string
	lastTargetID string
	lastSanction dto.SanctionRequest
}

func (m *mockModerationService) ListUsers(_ context.Context, _ dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	return m.users, m.err
}

func (m *mockModerationService) ApplySanction(_ context.Context, actorID, targetID string, req dto.SanctionRequest) (dto.SanctionResponse, error) {
	m.lastActorID = actorID
	m.lastTargetID = targetID
	m.lastSanction = req
	if m.err != nil {
		return dto.SanctionResponse{}, m.err
	}
	return m.sanction, nil
}

func (m *mockModerationService) DeleteUser(_ context.Context, actorID, targetID string) error {
	m.lastActorID = actorID
	m.lastTargetID = targetID
	return m.err
}

func (m *mockModerationService) Violations(_ context.Context, _ string) ([]dto.ViolationResponse, error) {
	return m.violations, m.err
}

func (m *mockModerationService) AuditLog(_ context.Context, _ dto.ModerationLogListRequest) (dto.ModerationLogListResponse, error) {
	return m.audit, m.err
}

type mockReportService struct {
	report dto.ReportResponse
	list   dto.ReportListResponse
	err    error
}

func (m *mockReportService) File(_ context.Context, _ string, _ dto.ReportCreateRequest) (dto.ReportResponse, error) {
	if m.err != nil {
		return dto.ReportResponse{}, m.err
	}
	return m.report, nil
}

func (m *mockReportService) RequestSupport(_ context.Context, _ string, _ dto.SupportRequest) (dto.ReportResponse, error) {
	if m.err != nil {
		return dto.ReportResponse{}, m.err
	}
	return m.report, nil
}

func (m *mockReportService) List(_ context.Context, _ string, _, _ int) (dto.ReportListResponse, error) {
	return m.list, m.err
}

func (m *mockReportService) UpdateStatus(_ context.Context, _, _ string, _ dto.ReportStatusUpdateRequest) (dto.ReportResponse, error) {
	if m.err != nil {
		return dto.ReportResponse{}, m.err
	}
	return m.report, nil
}

func newAdminApp(moderation service.ModerationService, reports service.ReportService) *fiber.App {
	app := fiber.New()
	admin := app.Group("/api/v1/admin", func(c *fiber.Ctx) error {
		c.Locals("user_id", "admin-1")
		c.Locals("user_role", "admin")
		return c.Next()
	})
	handler.NewAdminHandler(moderation, reports, zerolog.New(io.Discard)).Register(admin)
	return app
}

func TestAdminHandler_ApplySanction(t *testing.T) {
	moderation := &mockModerationService{sanction: dto.SanctionResponse{
		User: dto.UserResponse{ID: "u1", Status: models.StatusMuted},
	}}
	app := newAdminApp(moderation, &mockReportService{})

	req := jsonRequest(t, http.MethodPost, "/api/v1/admin/users/u1/sanctions", dto.SanctionRequest{
		Type:   models.SanctionMute,
		Reason: "spam",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "admin-1", moderation.lastActorID)
	require.Equal(t, "u1", moderation.lastTargetID)
	require.Equal(t, models.SanctionMute, moderation.lastSanction.Type)
}

func TestAdminHandler_SanctionErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "admin target", err: service.ErrProtectedRole, statusCode: fiber.StatusForbidden},
		{name: "unknown user", err: service.ErrUserNotFound, statusCode: fiber.StatusNotFound},
		{name: "bad sanction type", err: service.ErrUnknownSanction, statusCode: fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAdminApp(&mockModerationService{err: tc.err}, &mockReportService{})
			req := jsonRequest(t, http.MethodPost, "/api/v1/admin/users/u1/sanctions", dto.SanctionRequest{
				Type:   models.SanctionBan,
				Reason: "n/a",
			})
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestAdminHandler_DeleteUser(t *testing.T) {
	moderation := &mockModerationService{}
	app := newAdminApp(moderation, &mockReportService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "u1", moderation.lastTargetID)

	app = newAdminApp(&mockModerationService{err: service.ErrProtectedRole}, &mockReportService{})
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminHandler_UpdateReport(t *testing.T) {
	reports := &mockReportService{report: dto.ReportResponse{ID: "r1", Status: models.ReportResolved}}
	app := newAdminApp(&mockModerationService{}, reports)

	req := jsonRequest(t, http.MethodPatch, "/api/v1/admin/reports/r1/status", dto.ReportStatusUpdateRequest{
		Status: models.ReportResolved,
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.ReportResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, models.ReportResolved, response.Data.Status)

	app = newAdminApp(&mockModerationService{}, &mockReportService{err: service.ErrReportNotFound})
	req = jsonRequest(t, http.MethodPatch, "/api/v1/admin/reports/missing/status", dto.ReportStatusUpdateRequest{Status: models.ReportDismissed})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminHandler_ListUsersRejectsBadPaging(t *testing.T) {
	app := newAdminApp(&mockModerationService{}, &mockReportService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?page=abc", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
