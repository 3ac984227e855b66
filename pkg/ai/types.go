package ai

import "context"

// ExplainInput carries a lesson-explanation request. Attachment, when
// present, is the raw bytes of an uploaded document (PDF or image) the model
// should ground its explanation on.
type ExplainInput struct {
	Prompt     string
	Level      string
	Attachment []byte
	MimeType   string
}

// QuizQuestion is one generated multiple-choice question. CorrectAnswer is
// the index of the correct option.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// Quiz is a generated multiple-choice quiz.
type Quiz struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// Turn is one prior exchange in an assistant conversation.
type Turn struct {
	Role string
	Text string
}

// Assistant describes the opaque text-generation capability consumed by the
// learning features. Implementations talk to an external provider; callers
// are expected to treat any error as recoverable.
type Assistant interface {
	Explain(ctx context.Context, input ExplainInput) (string, error)
	GenerateQuiz(ctx context.Context, sourceText string) (Quiz, error)
	Chat(ctx context.Context, history []Turn, message string) (string, error)
}
