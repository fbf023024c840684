package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/docchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the two OpenAI endpoints the provider uses.
func fakeServer(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		inputs, _ := body["input"].([]any)
		data := make([]map[string]any, len(inputs))
		for i := range inputs {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i + 1), 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": body["model"]})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "hello back"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestProvider(t *testing.T, host string) ai.AIProvider {
	t.Helper()
	cfg := ai.NewConfig(
		ai.WithProvider(ai.ProviderOpenAI),
		ai.WithHost(host),
		ai.WithEmbeddingModel("test-embed"),
		ai.WithChatModel("test-chat"),
	)
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestProvider_Embed(t *testing.T) {
	srv, requests := fakeServer(t)
	p := newTestProvider(t, srv.URL)

	vectors, err := p.Embedder().EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {2, 0}}, vectors)

	vector, err := p.Embedder().EmbedText(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)

	require.NotEmpty(t, *requests)
	assert.Equal(t, "test-embed", (*requests)[0]["model"])
}

func TestProvider_Chat(t *testing.T) {
	srv, requests := fakeServer(t)
	p := newTestProvider(t, srv.URL)

	answer, err := p.ChatModel().Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", answer)

	require.Len(t, *requests, 1)
	assert.Equal(t, "test-chat", (*requests)[0]["model"])
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI))
	cfg.ChatModel = ""
	cfg.Temperature = 5

	_, err := NewProvider(cfg)
	assert.Error(t, err)
}
