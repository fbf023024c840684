package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
)

// RetryMessage is the answer returned when any step of Ask fails.
const RetryMessage = "Got error from AI: retry sending the message"

// DummyAnswer is the fixed answer of a service created WithDummy(true).
const DummyAnswer = "I am dummy answer"

var (
	// ErrModelRequired is returned when a chat model is not provided.
	ErrModelRequired = errors.New("chat model required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrEmptyAnswer is returned when the model produces no choices.
	ErrEmptyAnswer = errors.New("model returned no answer")
)

// Result is the outcome of one question.
type Result struct {
	// OK is false when the question could not be answered.
	OK bool
	// Messages holds the question and the answer to append to the history.
	// Empty when OK is false.
	Messages []core.Message
	// Answer is the model's answer, or RetryMessage on failure.
	Answer string
}

// Service answers questions about one data source.
type Service struct {
	model         llms.Model
	retriever     schema.Retriever
	contextualize prompts.ChatPromptTemplate
	qa            prompts.ChatPromptTemplate
	dummy         bool
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDummy makes Ask return DummyAnswer without calling the model.
func WithDummy(dummy bool) Option {
	return func(s *Service) error {
		s.dummy = dummy
		return nil
	}
}

// NewService creates a service over model and retriever.
func NewService(model llms.Model, retriever schema.Retriever, opts ...Option) (*Service, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	s := &Service{
		model:         model,
		retriever:     retriever,
		contextualize: newContextualizePrompt(),
		qa:            newQAPrompt(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "chat")
	return s, nil
}

// Ask answers input given the prior history. It never returns an error:
// failures are logged and reported as a Result with OK false and
// RetryMessage as the answer.
func (s *Service) Ask(ctx context.Context, history []core.Message, input string) Result {
	if s.dummy {
		return success(input, DummyAnswer)
	}

	answer, err := s.answer(ctx, history, input)
	if err != nil {
		s.logger.Error(RetryMessage, "err", err)
		return Result{OK: false, Answer: RetryMessage}
	}
	return success(input, answer)
}

func success(input, answer string) Result {
	return Result{
		OK:       true,
		Messages: []core.Message{core.HumanMessage(input), core.AIMessage(answer)},
		Answer:   answer,
	}
}

func (s *Service) answer(ctx context.Context, history []core.Message, input string) (string, error) {
	chatHistory := toChatMessages(history)

	question := input
	if len(history) > 0 {
		var err error
		question, err = s.generate(ctx, s.contextualize, map[string]any{
			varHistory: chatHistory,
			varInput:   input,
		})
		if err != nil {
			return "", err
		}
		s.logger.Debug("contextualized question", "input", input, "question", question)
	}

	docs, err := s.retriever.GetRelevantDocuments(ctx, question)
	if err != nil {
		return "", err
	}
	s.logger.Debug("retrieved documents", "count", len(docs))

	return s.generate(ctx, s.qa, map[string]any{
		varContext: stuff(docs),
		varHistory: chatHistory,
		varInput:   input,
	})
}

// generate renders prompt with values and returns the first choice.
func (s *Service) generate(ctx context.Context, prompt prompts.ChatPromptTemplate, values map[string]any) (string, error) {
	messages, err := prompt.FormatMessages(values)
	if err != nil {
		return "", err
	}
	content := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		content[i] = llms.TextParts(m.GetType(), m.GetContent())
	}

	resp, err := s.model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	return resp.Choices[0].Content, nil
}

// stuff joins the page contents of docs for the QA prompt.
func stuff(docs []schema.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.PageContent
	}
	return strings.Join(parts, DocumentSeparator)
}

func toChatMessages(history []core.Message) []llms.ChatMessage {
	out := make([]llms.ChatMessage, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleAI:
			out = append(out, llms.AIChatMessage{Content: m.Content})
		default:
			out = append(out, llms.HumanChatMessage{Content: m.Content})
		}
	}
	return out
}
