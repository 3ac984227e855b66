package service

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/pkg/ai"
)

// Arabic fallback strings shown to the client when the provider fails or
// returns nothing. The API degrades to an apology instead of an error page.
const (
	explainFailureText  = "حدث خطأ أثناء الاتصال بالذكاء الاصطناعي. يرجى المحاولة مرة أخرى."
	explainEmptyText    = "عذرًا، لم أتمكن من شرح هذا الدرس."
	chatFailureText     = "حدث خطأ في الشبكة، يرجى المحاولة لاحقاً."
	chatEmptyText       = "لا أستطيع الرد حالياً."
)

// ErrQuizUnavailable indicates quiz generation failed. Unlike the free-text
// features there is no meaningful textual fallback for structured output.
var ErrQuizUnavailable = errors.New("quiz generation unavailable")

// AssistantService exposes the learning assistant: lesson explanations, quiz
// generation, and a tutoring conversation.
type AssistantService interface {
	Explain(ctx context.Context, req dto.ExplainRequest) (dto.ExplainResponse, error)
	GenerateQuiz(ctx context.Context, req dto.QuizRequest) (dto.QuizResponse, error)
	Chat(ctx context.Context, req dto.AssistantChatRequest) (dto.AssistantChatResponse, error)
}

type assistantService struct {
	assistant ai.Assistant
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantService wraps an AI provider behind the fail-soft policy.
func NewAssistantService(assistant ai.Assistant, validate *validator.Validate, logger zerolog.Logger) AssistantService {
	return &assistantService{
		assistant: assistant,
		validator: validate,
		logger:    logger.With().Str("component", "assistant_service").Logger(),
	}
}

func (s *assistantService) Explain(ctx context.Context, req dto.ExplainRequest) (dto.ExplainResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ExplainResponse{}, err
	}

	input := ai.ExplainInput{
		Prompt:   req.Prompt,
		Level:    req.Level,
		MimeType: req.MimeType,
	}
	if req.Attachment != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Attachment)
		if err != nil {
			return dto.ExplainResponse{}, err
		}
		input.Attachment = raw
	}

	text, err := s.assistant.Explain(ctx, input)
	if err != nil {
		s.logger.Warn().Err(err).Msg("explanation request failed, serving fallback")
		return dto.ExplainResponse{Text: explainFailureText}, nil
	}
	if text == "" {
		return dto.ExplainResponse{Text: explainEmptyText}, nil
	}
	return dto.ExplainResponse{Text: text}, nil
}

func (s *assistantService) GenerateQuiz(ctx context.Context, req dto.QuizRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz, err := s.assistant.GenerateQuiz(ctx, req.SourceText)
	if err != nil {
		s.logger.Warn().Err(err).Msg("quiz generation failed")
		return dto.QuizResponse{}, ErrQuizUnavailable
	}

	questions := make([]dto.QuizQuestionResponse, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questions = append(questions, dto.QuizQuestionResponse{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	return dto.QuizResponse{Title: quiz.Title, Questions: questions}, nil
}

func (s *assistantService) Chat(ctx context.Context, req dto.AssistantChatRequest) (dto.AssistantChatResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssistantChatResponse{}, err
	}

	history := make([]ai.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, ai.Turn{Role: turn.Role, Text: turn.Text})
	}

	text, err := s.assistant.Chat(ctx, history, req.Message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("assistant chat failed, serving fallback")
		return dto.AssistantChatResponse{Text: chatFailureText}, nil
	}
	if text == "" {
		return dto.AssistantChatResponse{Text: chatEmptyText}, nil
	}
	return dto.AssistantChatResponse{Text: text}, nil
}
