package ai_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status code", errors.New("Error 429, Message: too many requests"), true},
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"quota", errors.New("you exceeded your current quota"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ai.IsRateLimitError(tt.err))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", errors.New("Error 429, Message: too many requests"), true},
		{"gemini unavailable", errors.New("Error 503, Message: overloaded, Status: UNAVAILABLE"), true},
		{"openai status code", errors.New("API returned unexpected status code: 502: bad gateway"), true},
		{"leading status", errors.New("500 internal server error"), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), true},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}, true},
		{"bad request", errors.New("Error 400, Message: invalid argument, Status: INVALID_ARGUMENT"), false},
		{"unauthorized", errors.New("API returned unexpected status code: 401: invalid api key"), false},
		{"number in message", errors.New("input of 512 tokens exceeds model limit"), false},
		{"canceled", fmt.Errorf("embed: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ai.IsRetryableError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"please retry", errors.New("Error 429, Message: ... Please retry in 45.5s., Status: RESOURCE_EXHAUSTED"), 45500 * time.Millisecond},
		{"retryDelay field", errors.New(`details: retryDelay: 12s`), 12 * time.Second},
		{"case insensitive", errors.New("please RETRY IN 3s"), 3 * time.Second},
		{"no delay", errors.New("Error 429"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ai.ExtractRetryDelay(tt.err))
		})
	}
}

func newRetrying(t *testing.T, inner ai.AIProvider, maxRetries int) ai.AIProvider {
	t.Helper()
	p, err := ai.NewRetrying(inner, maxRetries, time.Millisecond, ai.WithMaxRetryDelay(5*time.Millisecond))
	require.NoError(t, err)
	return p
}

func TestRetrying_EmbedRecoversFromTransientFailure(t *testing.T) {
	inner := mock.NewMockProvider()
	attempts := 0
	inner.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("503 service unavailable")
		}
		return [][]float32{{1, 0}}, nil
	}

	p := newRetrying(t, inner, 2)
	vectors, err := p.Embedder().EmbedTexts(context.Background(), []string{"a"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}}, vectors)
	assert.Equal(t, 3, attempts)
}

func TestRetrying_ExhaustedRetriesReturnUpstreamError(t *testing.T) {
	inner := mock.NewMockProvider()
	cause := errors.New("connection refused")
	inner.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, cause
	}

	p := newRetrying(t, inner, 2)
	_, err := p.Embedder().EmbedText(context.Background(), "a")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "embed", upstream.Op)
	assert.Equal(t, 3, inner.GetMockEmbedder().CallCount())
}

func TestRetrying_ZeroRetriesStillWraps(t *testing.T) {
	inner := mock.NewMockProvider()
	inner.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("boom")
	}

	p := newRetrying(t, inner, 0)
	_, err := p.Embedder().EmbedText(context.Background(), "a")

	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Equal(t, 1, inner.GetMockEmbedder().CallCount())
}

func TestRetrying_ContextCancellationIsNotRetried(t *testing.T) {
	inner := mock.NewMockProvider()
	inner.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, context.Canceled
	}

	p := newRetrying(t, inner, 5)
	_, err := p.Embedder().EmbedText(context.Background(), "a")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.GetMockEmbedder().CallCount())
}

func TestRetrying_ClientErrorIsNotRetried(t *testing.T) {
	inner := mock.NewMockProvider()
	cause := errors.New("API returned unexpected status code: 401: invalid api key")
	inner.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, cause
	}

	p := newRetrying(t, inner, 5)
	_, err := p.Embedder().EmbedText(context.Background(), "a")

	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, inner.GetMockEmbedder().CallCount())
}

func TestRetrying_ChatModel(t *testing.T) {
	inner := mock.NewMockProvider()
	failures := 1
	inner.GetMockChatModel().GenerateContentFunc = func(ctx context.Context, messages []llms.MessageContent) (string, error) {
		if failures > 0 {
			failures--
			return "", errors.New("Error 429, Message: Please retry in 0.001s")
		}
		return "ok", nil
	}

	p := newRetrying(t, inner, 1)
	answer, err := p.ChatModel().Call(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, 2, inner.GetMockChatModel().CallCount())
}

func TestRetrying_ChatModelFailure(t *testing.T) {
	inner := mock.NewMockProvider()
	inner.GetMockChatModel().GenerateContentFunc = func(ctx context.Context, messages []llms.MessageContent) (string, error) {
		return "", errors.New("bad gateway")
	}

	p := newRetrying(t, inner, 1)
	_, err := p.ChatModel().GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
	})

	var upstream *core.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "chat", upstream.Op)
}

func TestRetrying_CloseDelegates(t *testing.T) {
	inner := mock.NewMockProvider()
	p := newRetrying(t, inner, 1)

	require.NoError(t, p.Close())
	assert.True(t, inner.Closed())
}

func TestNewRetrying_Validation(t *testing.T) {
	_, err := ai.NewRetrying(nil, 1, time.Millisecond)
	assert.Error(t, err)

	_, err = ai.NewRetrying(mock.NewMockProvider(), -1, time.Millisecond)
	assert.Error(t, err)

	_, err = ai.NewRetrying(mock.NewMockProvider(), 1, time.Millisecond, ai.WithMaxRetryDelay(0))
	assert.Error(t, err)
}
