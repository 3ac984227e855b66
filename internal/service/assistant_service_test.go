package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/wecan-app/wecan-api/internal/dto"
	"github.com/wecan-app/wecan-api/pkg/ai"
)

type assistantStub struct {
	explainText string
	chatText    string
	quiz        ai.Quiz
	err         error

	lastExplain ai.ExplainInput
	lastHistory []ai.Turn
}

func (s *assistantStub) Explain(_ context.Context, input ai.ExplainInput) (string, error) {
	s.lastExplain = input
	return s.explainText, s.err
}

func (s *assistantStub) GenerateQuiz(_ context.Context, _ string) (ai.Quiz, error) {
	return s.quiz, s.err
}

func (s *assistantStub) Chat(_ context.Context, history []ai.Turn, _ string) (string, error) {
	s.lastHistory = history
	return s.chatText, s.err
}

func TestAssistantServiceExplainFallsBackOnError(t *testing.T) {
	stub := &assistantStub{err: errors.New("provider down")}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	resp, err := svc.Explain(context.Background(), dto.ExplainRequest{Prompt: "اشرح الدرس"})
	require.NoError(t, err)
	require.Equal(t, explainFailureText, resp.Text)
}

func TestAssistantServiceExplainFallsBackOnEmpty(t *testing.T) {
	stub := &assistantStub{}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	resp, err := svc.Explain(context.Background(), dto.ExplainRequest{Prompt: "اشرح الدرس"})
	require.NoError(t, err)
	require.Equal(t, explainEmptyText, resp.Text)
}

func TestAssistantServiceExplainDecodesAttachment(t *testing.T) {
	stub := &assistantStub{explainText: "شرح"}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	resp, err := svc.Explain(context.Background(), dto.ExplainRequest{
		Prompt:     "اشرح هذه الصفحة",
		Attachment: "aGVsbG8=",
		MimeType:   "application/pdf",
	})
	require.NoError(t, err)
	require.Equal(t, "شرح", resp.Text)
	require.Equal(t, []byte("hello"), stub.lastExplain.Attachment)
	require.Equal(t, "application/pdf", stub.lastExplain.MimeType)

	_, err = svc.Explain(context.Background(), dto.ExplainRequest{Prompt: "x", Attachment: "%%%"})
	require.Error(t, err)
}

func TestAssistantServiceQuizErrorsSurface(t *testing.T) {
	stub := &assistantStub{err: errors.New("provider down")}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	_, err := svc.GenerateQuiz(context.Background(), dto.QuizRequest{SourceText: "نص تعليمي طويل بما يكفي لتوليد اختبار"})
	require.ErrorIs(t, err, ErrQuizUnavailable)
}

func TestAssistantServiceQuizConverts(t *testing.T) {
	stub := &assistantStub{quiz: ai.Quiz{
		Title: "اختبار",
		Questions: []ai.QuizQuestion{
			{Question: "س١", Options: []string{"أ", "ب", "ج", "د"}, CorrectAnswer: 2},
		},
	}}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	quiz, err := svc.GenerateQuiz(context.Background(), dto.QuizRequest{SourceText: "نص تعليمي طويل بما يكفي لتوليد اختبار"})
	require.NoError(t, err)
	require.Equal(t, "اختبار", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	require.Equal(t, 2, quiz.Questions[0].CorrectAnswer)
}

func TestAssistantServiceChatFallsBack(t *testing.T) {
	stub := &assistantStub{err: errors.New("timeout")}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	resp, err := svc.Chat(context.Background(), dto.AssistantChatRequest{Message: "مرحبا"})
	require.NoError(t, err)
	require.Equal(t, chatFailureText, resp.Text)

	stub.err = nil
	resp, err = svc.Chat(context.Background(), dto.AssistantChatRequest{Message: "مرحبا"})
	require.NoError(t, err)
	require.Equal(t, chatEmptyText, resp.Text)
}

func TestAssistantServiceChatPassesHistory(t *testing.T) {
	stub := &assistantStub{chatText: "أهلاً"}
	svc := NewAssistantService(stub, validator.New(), testLogger())

	resp, err := svc.Chat(context.Background(), dto.AssistantChatRequest{
		History: []dto.AssistantTurn{
			{Role: "user", Text: "سؤال"},
			{Role: "model", Text: "جواب"},
		},
		Message: "تابع",
	})
	require.NoError(t, err)
	require.Equal(t, "أهلاً", resp.Text)
	require.Len(t, stub.lastHistory, 2)
	require.Equal(t, "model", stub.lastHistory[1].Role)
}
