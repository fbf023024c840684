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


package openai

import (
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
)

// Provider aggregates the OpenAI-compatible embedder and chat model.
type Provider struct {
	config   *ai.Config
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

// NewProvider validates config and creates both services against config.Host.
func NewProvider(config *ai.Config, opts ...Option) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{config: config}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	embedder, err := newEmbedder(config, p.logger)
	if err != nil {
		return nil, err
	}
	model, err := newChatModel(config, p.logger)
	if err != nil {
		return nil, err
	}

	p.embedder = embedder
	p.model = model
	p.logger = p.logger.With("component", "openai-provider")
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the chat model.
func (p *Provider) ChatModel() llms.Model {
	return p.model
}

func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
