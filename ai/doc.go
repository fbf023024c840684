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


// Package ai provides abstractions for the upstream AI services used by docchat.
//
// This package defines interfaces for text embeddings and groups them with a
// langchaingo chat model behind AIProvider. The core packages depend on these
// abstractions rather than on a concrete API client.
//
// # Implementation Packages
//
//   - ai/gemini: Google Gemini API via google.golang.org/genai
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) via langchaingo
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, gemini.NewProvider, NewRetrying)
// return INTERFACE types to prevent accidental coupling to concrete
// implementations. Mock constructors return CONCRETE types so tests can
// inject behavior and assert on calls:
//
//	provider := mock.NewMockProvider()              // *mock.MockProvider
//	provider.GetMockEmbedder().EmbedTextFunc = ...  // needs concrete type
//	count := provider.GetMockChatModel().CallCount()
//
// # Retries
//
// NewRetrying wraps any provider with exponential backoff. Rate-limited calls
// honor the delay suggested by the upstream error. Failures that survive the
// retries are returned as *core.UpstreamError.
//
//	config := ai.NewConfig(ai.WithAPIKey(key))
//	base, err := gemini.NewProvider(ctx, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider, err := ai.NewRetrying(base, config.MaxRetries, config.RetryDelay)
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
