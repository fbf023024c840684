package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// ChatModel adapts a Gemini model to llms.Model.
type ChatModel struct {
	models      *genai.Models
	model       string
	temperature float64
	logger      *slog.Logger
}

var _ llms.Model = (*ChatModel)(nil)

var errNoUserMessage = errors.New("at least one message must be from the user")

// GenerateContent sends messages to Gemini. System messages become the
// system instruction; human and AI messages keep their order.
func (m *ChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{Temperature: m.temperature}
	for _, opt := range options {
		opt(&opts)
	}

	contents, system, err := convertMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(opts.StopWords) > 0 {
		config.StopSequences = opts.StopWords
	}

	m.logger.Debug("generating chat completion", "messages", len(contents))
	resp, err := m.models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		m.logger.Error("chat generation failed", "err", err)
		return nil, fmt.Errorf("chat generation failed: %w", err)
	}
	return convertResponse(resp)
}

func (m *ChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// convertMessages maps langchaingo messages onto Gemini contents.
// Multiple system messages are joined by blank lines.
func convertMessages(messages []llms.MessageContent) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.New("messages cannot be empty")
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	hasUser := false
	for _, msg := range messages {
		text := messageText(msg)
		var role string
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			system = append(system, text)
			continue
		case llms.ChatMessageTypeAI:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
			hasUser = true
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		})
	}
	if !hasUser {
		return nil, "", errNoUserMessage
	}
	return contents, strings.Join(system, "\n\n"), nil
}

func messageText(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			b.WriteString(p.Text)
		case *llms.TextContent:
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// convertResponse keeps one choice per candidate that produced text.
func convertResponse(resp *genai.GenerateContentResponse) (*llms.ContentResponse, error) {
	out := &llms.ContentResponse{}
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			var text strings.Builder
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() == 0 {
				continue
			}
			out.Choices = append(out.Choices, &llms.ContentChoice{
				Content:    text.String(),
				StopReason: string(candidate.FinishReason),
			})
		}
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("no response generated from chat model")
	}
	return out, nil
}
