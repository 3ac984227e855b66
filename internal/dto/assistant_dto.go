package dto

// ExplainRequest asks the assistant to explain a lesson topic or page,
// optionally grounded on an uploaded document (base64 payload).
type ExplainRequest struct {
	Prompt     string `json:"prompt" validate:"required,min=1,max=2000"`
	Level      string `json:"level" validate:"omitempty,max=128"`
	Attachment string `json:"attachment" validate:"omitempty"`
	MimeType   string `json:"mime_type" validate:"omitempty,max=128"`
}

// ExplainResponse carries the generated explanation.
type ExplainResponse struct {
	Text string `json:"text"`
}

// QuizRequest asks the assistant to generate a quiz from source text.
type QuizRequest struct {
	SourceText string `json:"source_text" validate:"required,min=20,max=20000"`
}

// QuizQuestionResponse is one generated multiple-choice question.
type QuizQuestionResponse struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// QuizResponse is the generated quiz.
type QuizResponse struct {
	Title     string                 `json:"title"`
	Questions []QuizQuestionResponse `json:"questions"`
}

// AssistantTurn is one prior exchange in the assistant conversation.
type AssistantTurn struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required,max=4000"`
}

// AssistantChatRequest continues a conversation with the assistant.
type AssistantChatRequest struct {
	History []AssistantTurn `json:"history" validate:"omitempty,max=50,dive"`
	Message string          `json:"message" validate:"required,min=1,max=4000"`
}

// AssistantChatResponse carries the assistant's reply.
type AssistantChatResponse struct {
	Text string `json:"text"`
}
