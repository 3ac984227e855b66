package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/service"
	"github.com/wecan-app/wecan-api/internal/utils"
)

// ReportHandler exposes report filing for users.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires the report filing routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Post("", h.file)
	router.Post("/support", h.support)
}

func (h *ReportHandler) file(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ReportCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.service.File(requestContext(c), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSelfReport):
			return utils.SendError(c, fiber.StatusBadRequest, "cannot report yourself")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrDuplicateReport):
			return utils.SendError(c, fiber.StatusTooManyRequests, "report already filed")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to file report")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to file report")
		}
	}

	return utils.SendCreated(c, "report filed", report)
}

func (h *ReportHandler) support(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.SupportRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.service.RequestSupport(requestContext(c), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrDuplicateReport):
			return utils.SendError(c, fiber.StatusTooManyRequests, "request already filed")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to file support request")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to file support request")
		}
	}

	return utils.SendCreated(c, "support request filed", report)
}
