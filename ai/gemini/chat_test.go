package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

func TestConvertMessages(t *testing.T) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "be brief"),
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
		llms.TextParts(llms.ChatMessageTypeAI, "hello"),
		llms.TextParts(llms.ChatMessageTypeSystem, "context: notes"),
		llms.TextParts(llms.ChatMessageTypeHuman, "what", " now?"),
	}

	contents, system, err := convertMessages(messages)
	require.NoError(t, err)

	assert.Equal(t, "be brief\n\ncontext: notes", system)
	require.Len(t, contents, 3)
	assert.EqualValues(t, "user", contents[0].Role)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	assert.EqualValues(t, "model", contents[1].Role)
	assert.Equal(t, "what now?", contents[2].Parts[0].Text)
}

func TestConvertMessages_Errors(t *testing.T) {
	_, _, err := convertMessages(nil)
	assert.Error(t, err)

	_, _, err = convertMessages([]llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "only system"),
	})
	assert.ErrorIs(t, err, errNoUserMessage)
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{}}},
			{
				Content: &genai.Content{Parts: []*genai.Part{
					genai.NewPartFromText("Paris "),
					genai.NewPartFromText("is the capital."),
				}},
				FinishReason: genai.FinishReasonStop,
			},
		},
	}

	out, err := convertResponse(resp)
	require.NoError(t, err)
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "Paris is the capital.", out.Choices[0].Content)
	assert.Equal(t, "STOP", out.Choices[0].StopReason)
}

func TestConvertResponse_Empty(t *testing.T) {
	_, err := convertResponse(nil)
	assert.Error(t, err)

	_, err = convertResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestEmbeddingValues(t *testing.T) {
	result := &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 2}}, {Values: []float32{3}}},
	}

	vectors, err := embeddingValues(result, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}, {3}}, vectors)

	_, err = embeddingValues(result, 3)
	assert.Error(t, err)

	_, err = embeddingValues(&genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{}},
	}, 1)
	assert.Error(t, err)
}
