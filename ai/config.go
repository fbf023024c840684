// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the backend: ProviderGemini or ProviderOpenAI.
	Provider string

	// Host is the base URL for OpenAI-compatible APIs.
	// Example: "http://localhost:11434/v1" for a local Ollama server.
	// Ignored by the Gemini provider.
	Host string

	// APIKey authenticates against the upstream API.
	// Required for Gemini, optional for local OpenAI-compatible servers.
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "gemini-embedding-001", "embeddinggemma"
	EmbeddingModel string

	// ChatModel is the model identifier used to answer questions.
	// Example: "gemini-1.5-flash", "qwen2.5:3b"
	ChatModel string

	// Temperature is the sampling temperature of the chat model.
	// Default: 0
	Temperature float64

	// MaxRetries is the number of retries after a failed upstream call.
	// Default: 2
	MaxRetries int

	// RetryDelay is the initial backoff between retries.
	// Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the backend and resets host and models to its defaults.
// Options that set models or host must come after WithProvider.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
		c.Host = ""
		c.EmbeddingModel = ""
		c.ChatModel = ""
		c.applyProviderDefaults()
	}
}

// WithHost sets the OpenAI-compatible host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the upstream API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithTemperature sets the chat model sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithRetry sets the retry count and initial delay for upstream calls.
func WithRetry(maxRetries int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config for the hosted Gemini API.
// The API key still has to be supplied.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderGemini,
		EmbeddingModel: DefaultGeminiEmbeddingModel,
		ChatModel:      DefaultGeminiChatModel,
		Temperature:    0,
		MaxRetries:     2,
		RetryDelay:     time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithChatModel("llama3.2"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *Config) applyProviderDefaults() {
	switch c.Provider {
	case ProviderGemini:
		if c.EmbeddingModel == "" {
			c.EmbeddingModel = DefaultGeminiEmbeddingModel
		}
		if c.ChatModel == "" {
			c.ChatModel = DefaultGeminiChatModel
		}
	case ProviderOpenAI:
		if c.Host == "" {
			c.Host = DefaultOpenAIHost
		}
		if c.EmbeddingModel == "" {
			c.EmbeddingModel = DefaultOpenAIEmbeddingModel
		}
		if c.ChatModel == "" {
			c.ChatModel = DefaultOpenAIChatModel
		}
	}
}

// Normalize ensures the configuration is in a canonical form.
// Empty fields get the provider's defaults and OpenAI-compatible hosts get
// the /v1 suffix required by most servers (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderGemini
	}
	c.applyProviderDefaults()

	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for the gemini provider")
		}
	case ProviderOpenAI:
		if c.Host == "" {
			return errors.New("ai config: Host is required for the openai provider")
		}
	default:
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxRetries < 0 {
		return errors.New("ai config: MaxRetries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay cannot be negative")
	}
	return nil
}
