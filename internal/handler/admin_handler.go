package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/service"
	"github.com/wecan-app/wecan-api/internal/utils"
)

// AdminHandler exposes the moderation console: user administration,
// sanctions, the report review queue and the audit trail.
type AdminHandler struct {
	moderation service.ModerationService
	reports    service.ReportService
	logger     zerolog.Logger
}

// NewAdminHandler constructs the admin handler.
func NewAdminHandler(moderation service.ModerationService, reports service.ReportService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		moderation: moderation,
		reports:    reports,
		logger:     logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires the moderation console routes.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/users", h.listUsers)
	router.Post("/users/:id/sanctions", h.applySanction)
	router.Get("/users/:id/violations", h.violations)
	router.Delete("/users/:id", h.deleteUser)
	router.Get("/reports", h.listReports)
	router.Patch("/reports/:id/status", h.updateReport)
	router.Get("/moderation-log", h.auditLog)
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.AdminUserListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Stage:    strings.TrimSpace(c.Query("stage")),
		Grade:    strings.TrimSpace(c.Query("grade")),
		Status:   strings.TrimSpace(c.Query("status")),
	}

	users, err := h.moderation.ListUsers(requestContext(c), req)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return utils.SendSuccess(c, "users", users)
}

func (h *AdminHandler) applySanction(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	targetID := strings.TrimSpace(c.Params("id"))
	if targetID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	var payload dto.SanctionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.moderation.ApplySanction(requestContext(c), actorID, targetID, payload)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrUnknownSanction):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrProtectedRole):
			return utils.SendError(c, fiber.StatusForbidden, "cannot sanction an administrator")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to apply sanction")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to apply sanction")
		}
	}

	return utils.SendSuccess(c, "sanction applied", result)
}

func (h *AdminHandler) violations(c *fiber.Ctx) error {
	targetID := strings.TrimSpace(c.Params("id"))
	if targetID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	violations, err := h.moderation.Violations(requestContext(c), targetID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list violations")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list violations")
	}

	return utils.SendSuccess(c, "violations", violations)
}

func (h *AdminHandler) deleteUser(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	targetID := strings.TrimSpace(c.Params("id"))
	if targetID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	if err := h.moderation.DeleteUser(requestContext(c), actorID, targetID); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrProtectedRole):
			return utils.SendError(c, fiber.StatusForbidden, "cannot delete an administrator")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete user")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete user")
		}
	}

	return utils.SendSuccess(c, "account deleted", nil)
}

func (h *AdminHandler) listReports(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	reports, err := h.reports.List(requestContext(c), strings.TrimSpace(c.Query("status")), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list reports")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list reports")
	}

	return utils.SendSuccess(c, "reports", reports)
}

func (h *AdminHandler) updateReport(c *fiber.Ctx) error {
	actorID := userIDFromContext(c)
	reportID := strings.TrimSpace(c.Params("id"))
	if reportID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "report id required")
	}

	var payload dto.ReportStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.reports.UpdateStatus(requestContext(c), actorID, reportID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrReportNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "report not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to update report")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update report")
		}
	}

	return utils.SendSuccess(c, "report updated", report)
}

func (h *AdminHandler) auditLog(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.ModerationLogListRequest{
		ActorID:  strings.TrimSpace(c.Query("actor_id")),
		Action:   strings.TrimSpace(c.Query("action")),
		TargetID: strings.TrimSpace(c.Query("target_id")),
		Page:     page,
		PageSize: pageSize,
	}

	entries, err := h.moderation.AuditLog(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list audit entries")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list audit entries")
	}

	return utils.SendSuccess(c, "audit log", entries)
}
