package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/internal/service"
	"github.com/wecan-app/wecan-api/internal/utils"
)

// AssistantHandler exposes the learning assistant endpoints.
type AssistantHandler struct {
	service service.AssistantService
	logger  zerolog.Logger
}

// NewAssistantHandler constructs the assistant handler.
func NewAssistantHandler(service service.AssistantService, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		service: service,
		logger:  logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register wires the assistant routes.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/explain", h.explain)
	router.Post("/quiz", h.quiz)
	router.Post("/chat", h.chat)
}

func (h *AssistantHandler) explain(c *fiber.Ctx) error {
	var payload dto.ExplainRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Explain(requestContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("explanation request failed")
		return utils.SendError(c, fiber.StatusBadRequest, "invalid explanation request")
	}

	return utils.SendSuccess(c, "explanation generated", result)
}

func (h *AssistantHandler) quiz(c *fiber.Ctx) error {
	var payload dto.QuizRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	quiz, err := h.service.GenerateQuiz(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQuizUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "quiz generation unavailable")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("quiz generation failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate quiz")
		}
	}

	return utils.SendSuccess(c, "quiz generated", quiz)
}

func (h *AssistantHandler) chat(c *fiber.Ctx) error {
	var payload dto.AssistantChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	reply, err := h.service.Chat(requestContext(c), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("assistant chat failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "assistant unavailable")
	}

	return utils.SendSuccess(c, "assistant reply", reply)
}
