package handler

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/middleware"
	"github.com/wecan-app/wecan-api/internal/service"
	"github.com/wecan-app/wecan-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/rooms", h.lobby)
	router.Get("/rooms/:target/messages", h.feed)
	router.Get("/rooms/:target/participants", h.participants)
	router.Post("/messages", h.publish)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	target := strings.TrimSpace(conn.Query("target"))
	if target == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "target required"))
		_ = conn.Close()
		return
	}

	role, _ := conn.Locals("user_role").(string)
	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		Role:          role,
		Target:        target,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("target", target).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("target", target).Msg("chat websocket disconnected")
}

func (h *ChatHandler) lobby(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	lobby, err := h.service.Lobby(requestContext(c), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build chat lobby")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load rooms")
	}

	return utils.SendSuccess(c, "chat rooms", lobby)
}

func (h *ChatHandler) feed(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	target := roomTarget(c)
	if target == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "target required")
	}

	messages, err := h.service.Feed(requestContext(c), userID, target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUnknownRoomTarget):
			return utils.SendError(c, fiber.StatusNotFound, "unknown conversation target")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to load chat feed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load messages")
		}
	}

	return utils.SendSuccess(c, "chat feed", messages)
}

func (h *ChatHandler) participants(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	target := roomTarget(c)
	if target == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "target required")
	}

	members, err := h.service.Participants(requestContext(c), userID, target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUnknownRoomTarget):
			return utils.SendError(c, fiber.StatusNotFound, "unknown conversation target")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list room participants")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load participants")
		}
	}

	return utils.SendSuccess(c, "room participants", members)
}

func (h *ChatHandler) publish(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ChatPublishRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	message, err := h.service.Publish(requestContext(c), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrEmptyMessage):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSenderMuted):
			return utils.SendError(c, fiber.StatusForbidden, "account is muted")
		case errors.Is(err, service.ErrUnknownRoomTarget):
			return utils.SendError(c, fiber.StatusNotFound, "unknown conversation target")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to publish chat message")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to send message")
		}
	}

	return utils.SendCreated(c, "message sent", message)
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

// roomTarget reads the conversation target from the route. Class-room keys
// embed non-ASCII stage/grade names, so the path segment is percent-decoded.
func roomTarget(c *fiber.Ctx) string {
	target := strings.TrimSpace(c.Params("target"))
	if decoded, err := url.PathUnescape(target); err == nil {
		target = strings.TrimSpace(decoded)
	}
	return target
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		if v, ok := value.(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
