package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel is an OpenAI-compatible chat completion model with the
// configured temperature applied to every call.
type ChatModel struct {
	llm         llms.Model
	temperature float64
	logger      *slog.Logger
}

var _ llms.Model = (*ChatModel)(nil)

func newChatModel(config *ai.Config, logger *slog.Logger) (*ChatModel, error) {
	llm, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(token(config)),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}
	return &ChatModel{
		llm:         llm,
		temperature: config.Temperature,
		logger:      logger.With("component", "openai-chat"),
	}, nil
}

// GenerateContent forwards messages to the chat completion endpoint.
// Caller options override the configured temperature.
func (m *ChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.logger.Debug("generating chat completion", "messages", len(messages))

	opts := append([]llms.CallOption{llms.WithTemperature(m.temperature)}, options...)
	resp, err := m.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		m.logger.Error("chat completion failed", "err", err)
		return nil, err
	}
	return resp, nil
}

func (m *ChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
