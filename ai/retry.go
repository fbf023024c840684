package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/llms"
)

// DefaultMaxRetryDelay caps the wait between two attempts, including
// delays suggested by the upstream API.
const DefaultMaxRetryDelay = 90 * time.Second

// IsRateLimitError checks if an error is an upstream rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// serverErrorRegex matches a 5xx status code at the start of a message or
// after "Error", "status" or "status code".
var serverErrorRegex = regexp.MustCompile(`(?i)(?:^|error[:\s]+|status(?: code)?[:\s]+)5\d\d\b`)

var serverErrorPhrases = []string{
	"internal server error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"status: unavailable",
	"status: internal",
	"connection reset",
	"connection refused",
	"broken pipe",
}

// IsRetryableError reports whether an upstream call that failed with err is
// worth repeating: rate limits, 5xx responses and network failures.
// Context cancellation and deadline errors never are.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsRateLimitError(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	if serverErrorRegex.MatchString(msg) {
		return true
	}
	lower := strings.ToLower(msg)
	for _, phrase := range serverErrorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses the API-suggested retry delay from an upstream error.
// Returns 0 if no delay is found in the error message.
//
// Example error message:
// "Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// RetryOption configures a retrying provider.
type RetryOption func(*retryPolicy) error

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(p *retryPolicy) error {
		p.logger = logger
		return nil
	}
}

// WithMaxRetryDelay caps the wait between attempts.
func WithMaxRetryDelay(d time.Duration) RetryOption {
	return func(p *retryPolicy) error {
		if d <= 0 {
			return errors.New("max retry delay must be positive")
		}
		p.maxDelay = d
		return nil
	}
}

type retryPolicy struct {
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
}

// retryDo runs fn until it succeeds, the attempts are exhausted, ctx is done
// or fn fails with an error IsRetryableError rejects.
// The final error is always a *core.UpstreamError.
func retryDo[T any](ctx context.Context, p *retryPolicy, op string, fn func() (T, error)) (T, error) {
	result, err := retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.MaxDelay(p.maxDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if d := ExtractRetryDelay(err); d > 0 {
				return d
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(IsRetryableError),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("upstream call failed, retrying",
				"op", op, "attempt", n+1, "rate_limited", IsRateLimitError(err), "err", err)
		}),
	)
	if err != nil {
		var zero T
		var upstream *core.UpstreamError
		if errors.As(err, &upstream) {
			return zero, err
		}
		return zero, &core.UpstreamError{Op: op, Err: err}
	}
	return result, nil
}

// Retrying wraps an AIProvider so every embedding and chat call is retried
// with exponential backoff. Rate-limited calls wait for the delay the
// upstream API suggests when it provides one.
type Retrying struct {
	inner    AIProvider
	embedder *retryingEmbedder
	model    *retryingModel
}

// NewRetrying wraps inner. maxRetries is the number of retries after the
// first attempt and delay the initial backoff.
func NewRetrying(inner AIProvider, maxRetries int, delay time.Duration, opts ...RetryOption) (AIProvider, error) {
	if inner == nil {
		return nil, errors.New("retrying provider: inner provider is required")
	}
	if maxRetries < 0 {
		return nil, errors.New("retrying provider: maxRetries cannot be negative")
	}
	p := &retryPolicy{
		attempts: uint(maxRetries) + 1,
		delay:    delay,
		maxDelay: DefaultMaxRetryDelay,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "ai-retry")

	return &Retrying{
		inner:    inner,
		embedder: &retryingEmbedder{inner: inner.Embedder(), policy: p},
		model:    &retryingModel{inner: inner.ChatModel(), policy: p},
	}, nil
}

// Embedder returns the retrying embedder.
func (r *Retrying) Embedder() Embedder {
	return r.embedder
}

// ChatModel returns the retrying chat model.
func (r *Retrying) ChatModel() llms.Model {
	return r.model
}

// Close closes the wrapped provider.
func (r *Retrying) Close() error {
	return r.inner.Close()
}

type retryingEmbedder struct {
	inner  Embedder
	policy *retryPolicy
}

func (e *retryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return retryDo(ctx, e.policy, "embed", func() ([]float32, error) {
		return e.inner.EmbedText(ctx, text)
	})
}

func (e *retryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return retryDo(ctx, e.policy, "embed", func() ([][]float32, error) {
		return e.inner.EmbedTexts(ctx, texts)
	})
}

type retryingModel struct {
	inner  llms.Model
	policy *retryPolicy
}

var _ llms.Model = (*retryingModel)(nil)

func (m *retryingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return retryDo(ctx, m.policy, "chat", func() (*llms.ContentResponse, error) {
		return m.inner.GenerateContent(ctx, messages, options...)
	})
}

func (m *retryingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
