package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockChatModel is a test double for llms.Model.
type MockChatModel struct {
	// GenerateContentFunc is called by GenerateContent if set.
	// If nil, the model answers with DefaultAnswerPrefix followed by the
	// text of the last message.
	GenerateContentFunc func(ctx context.Context, messages []llms.MessageContent) (string, error)

	mu    sync.Mutex
	calls [][]llms.MessageContent
}

// DefaultAnswerPrefix starts every answer produced by the default behavior.
const DefaultAnswerPrefix = "mock answer: "

var _ llms.Model = (*MockChatModel)(nil)

// NewMockChatModel creates a mock chat model with default echo behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// GenerateContent records messages and returns a single choice.
func (m *MockChatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	fn := m.GenerateContentFunc
	m.mu.Unlock()

	var (
		text string
		err  error
	)
	if fn != nil {
		text, err = fn(ctx, messages)
	} else {
		text = DefaultAnswerPrefix + lastText(messages)
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text, StopReason: "stop"}},
	}, nil
}

// Call implements the single-prompt form of llms.Model.
func (m *MockChatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// CallCount returns the number of GenerateContent calls.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the messages of every call in order.
func (m *MockChatModel) Calls() [][]llms.MessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llms.MessageContent(nil), m.calls...)
}

// Reset clears recorded calls and injected behavior.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.GenerateContentFunc = nil
}

// MessageText concatenates the text parts of a message.
func MessageText(msg llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func lastText(messages []llms.MessageContent) string {
	if len(messages) == 0 {
		return ""
	}
	return MessageText(messages[len(messages)-1])
}
