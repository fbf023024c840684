package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// MaxBatchSize is the largest number of texts sent in one EmbedContent call.
const MaxBatchSize = 100

// Embedder generates embeddings with a Gemini embedding model.
type Embedder struct {
	models *genai.Models
	model  string
	logger *slog.Logger
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in batches of at most MaxBatchSize.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		result, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{})
		if err != nil {
			e.logger.Error("failed to generate embeddings", "count", end-start, "err", err)
			return nil, fmt.Errorf("embedding generation failed: %w", err)
		}
		batch, err := embeddingValues(result, end-start)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embeddingValues extracts want vectors from an EmbedContent response.
func embeddingValues(result *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if result == nil || len(result.Embeddings) != want {
		got := 0
		if result != nil {
			got = len(result.Embeddings)
		}
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", want, got)
	}
	vectors := make([][]float32, want)
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
