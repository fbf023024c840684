package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// Provider aggregates the Gemini embedder and chat model over one client.
type Provider struct {
	client   *genai.Client
	embedder *Embedder
	model    *ChatModel
	logger   *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider) error

// WithLogger sets the provider's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) error {
		p.logger = logger
		return nil
	}
}

// NewProvider validates config and creates a genai client for the Gemini API.
func NewProvider(ctx context.Context, config *ai.Config, opts ...Option) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderGemini {
		return nil, fmt.Errorf("gemini provider: config is for provider %q", config.Provider)
	}

	p := &Provider{}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	p.client = client
	p.embedder = &Embedder{
		models: client.Models,
		model:  config.EmbeddingModel,
		logger: p.logger.With("component", "gemini-embedder"),
	}
	p.model = &ChatModel{
		models:      client.Models,
		model:       config.ChatModel,
		temperature: config.Temperature,
		logger:      p.logger.With("component", "gemini-chat"),
	}
	p.logger = p.logger.With("component", "gemini-provider")
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the Gemini chat model.
func (p *Provider) ChatModel() llms.Model {
	return p.model
}

// Close drops the client reference. genai.Client holds no resources that
// need explicit release.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	p.client = nil
	return nil
}
