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

// UserHandler exposes account self-service endpoints.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the user handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the self-service routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Patch("/me", h.updateProfile)
	router.Put("/me/room", h.setCurrentRoom)
	router.Get("/me/blocks", h.blockList)
	router.Post("/me/blocks/:id", h.block)
	router.Delete("/me/blocks/:id", h.unblock)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.UpdateProfile(requestContext(c), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("profile update failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update profile")
		}
	}

	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) setCurrentRoom(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CurrentRoomRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.SetCurrentRoom(requestContext(c), userID, payload); err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrUnknownRoomTarget):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid room id")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to set current room")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to save room")
		}
	}

	return utils.SendSuccess(c, "current room saved", nil)
}

func (h *UserHandler) blockList(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	blocks, err := h.service.BlockList(requestContext(c), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load block list")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load block list")
	}

	return utils.SendSuccess(c, "block list", blocks)
}

func (h *UserHandler) block(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	blockedID := strings.TrimSpace(c.Params("id"))
	if blockedID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	if err := h.service.Block(requestContext(c), userID, blockedID); err != nil {
		switch {
		case errors.Is(err, service.ErrSelfBlock):
			return utils.SendError(c, fiber.StatusBadRequest, "cannot block yourself")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to block user")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to block user")
		}
	}

	return utils.SendSuccess(c, "user blocked", nil)
}

func (h *UserHandler) unblock(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	blockedID := strings.TrimSpace(c.Params("id"))
	if blockedID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	if err := h.service.Unblock(requestContext(c), userID, blockedID); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to unblock user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to unblock user")
	}

	return utils.SendSuccess(c, "user unblocked", nil)
}
