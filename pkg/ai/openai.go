package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wecan",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of assistant requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wecan",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed assistant requests",
	}, []string{"model", "operation"})
)

// quizSchema validates the JSON payload the model returns for quiz
// generation before it is accepted.
const quizSchema = `{
	"type": "object",
	"required": ["title", "questions"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["question", "options", "correct_answer"],
				"properties": {
					"question": {"type": "string", "minLength": 1},
					"options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
					"correct_answer": {"type": "integer", "minimum": 0}
				}
			}
		}
	}
}`

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client     *openai.Client
	cfg        OpenAIConfig
	tracer     trace.Tracer
	logger     zerolog.Logger
	quizSchema *jsonschema.Schema
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	schema, err := jsonschema.CompileString("quiz.schema.json", quizSchema)
	if err != nil {
		return nil, fmt.Errorf("compile quiz schema: %w", err)
	}

	tracer := otel.Tracer("github.com/wecan-app/wecan-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	return &OpenAIAssistant{
		client:     client,
		cfg:        cfg,
		tracer:     tracer,
		logger:     logger,
		quizSchema: schema,
	}, nil
}

// Explain produces a tutor-style explanation of the requested topic, grounded
// on the attached document when one is provided.
func (a *OpenAIAssistant) Explain(parent context.Context, input ExplainInput) (string, error) {
	ctx, span := a.tracer.Start(parent, "openai.explain", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(input.Attachment) > 0 {
		mime := strings.TrimSpace(input.MimeType)
		if mime == "" {
			mime = mimetype.Detect(input.Attachment).String()
		}
		span.SetAttributes(attribute.String("attachment.mime_type", mime))
		message.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(input.Attachment)),
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: explainPrompt(input)},
		}
	} else {
		message.Content = explainPrompt(input)
	}

	content, err := a.complete(ctx, "explain", []openai.ChatCompletionMessage{message}, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return content, nil
}

// GenerateQuiz asks the model for a multiple-choice quiz over the source text
// and validates the returned JSON before accepting it.
func (a *OpenAIAssistant) GenerateQuiz(parent context.Context, sourceText string) (Quiz, error) {
	ctx, span := a.tracer.Start(parent, "openai.generate_quiz", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: "You generate multiple-choice quizzes in Arabic. Respond with a JSON object containing " +
				"title (string) and questions (array of {question, options, correct_answer}). " +
				"correct_answer is the zero-based index of the right option. Generate 5 questions.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: "Generate a quiz based on the following text.\n\n" + sourceText,
		},
	}

	content, err := a.complete(ctx, "quiz", messages, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Quiz{}, err
	}

	quiz, err := a.parseQuiz(content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, "quiz").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Quiz{}, err
	}

	return quiz, nil
}

// Chat continues an assistant conversation.
func (a *OpenAIAssistant) Chat(parent context.Context, history []Turn, message string) (string, error) {
	ctx, span := a.tracer.Start(parent, "openai.chat", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
		attribute.Int("history.turns", len(history)),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleSystem,
		Content: "أنت مساعد تعليمي ذكي لمنصة 'We Can'. اسمك 'مساعد We Can'. تحدث باللغة العربية بأسلوب مشجع " +
			"ومفيد للطلاب. ساعدهم في فهم دروسهم والإجابة على أسئلتهم الدراسية.",
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "model" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	content, err := a.complete(ctx, "chat", messages, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return content, nil
}

func (a *OpenAIAssistant) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessage, jsonResponse bool) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages:    messages,
	}
	if jsonResponse {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(a.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		return "", fmt.Errorf("openai %s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		return "", fmt.Errorf("no choices returned from openai")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (a *OpenAIAssistant) parseQuiz(content string) (Quiz, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Quiz{}, fmt.Errorf("parse quiz json: %w", err)
	}

	if err := a.quizSchema.Validate(raw); err != nil {
		return Quiz{}, fmt.Errorf("quiz payload rejected: %w", err)
	}

	var quiz Quiz
	if err := json.Unmarshal([]byte(content), &quiz); err != nil {
		return Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}

	for i, question := range quiz.Questions {
		if question.CorrectAnswer >= len(question.Options) {
			return Quiz{}, fmt.Errorf("question %d: correct answer out of range", i)
		}
	}

	return quiz, nil
}

func explainPrompt(input ExplainInput) string {
	builder := strings.Builder{}
	builder.WriteString("You are an expert tutor for Sudanese students")
	if input.Level != "" {
		builder.WriteString(" in grade ")
		builder.WriteString(input.Level)
	}
	builder.WriteString(".\n\n")
	builder.WriteString("Task: Analyze the provided content (text or file) and explain the specific topic requested below.\n")
	builder.WriteString("If a file is provided, look for the specific page number or lesson topic mentioned.\n\n")
	builder.WriteString("Student Request (Page No / Topic): ")
	builder.WriteString(input.Prompt)
	builder.WriteString("\n\nOutput Requirements:\n")
	builder.WriteString("1. Explain clearly in simple Arabic.\n")
	builder.WriteString("2. Use bullet points for key concepts.\n")
	builder.WriteString("3. Highlight important definitions.\n")
	return builder.String()
}
