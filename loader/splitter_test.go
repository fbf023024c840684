package loader

import (
	"strings"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

func TestNewSplitter(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: 1000, overlap: 100},
		{name: "no overlap", size: 10, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative size", size: -5, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: true},
		{name: "overlap exceeds size", size: 10, overlap: 11, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.size, tt.overlap)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSplitter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, s.ChunkSize)
			assert.Equal(t, tt.overlap, s.Overlap)
		})
	}
}

func TestSplitter_ShortText(t *testing.T) {
	s := DefaultSplitter()

	spans := s.SplitText("hello world")
	require.Len(t, spans, 1)
	assert.Equal(t, "hello world", spans[0].Text)
	assert.Equal(t, 0, spans[0].Offset)

	exact := strings.Repeat("a", 1000)
	spans = s.SplitText(exact)
	require.Len(t, spans, 1)
	assert.Equal(t, exact, spans[0].Text)
}

func TestSplitter_EmptyText(t *testing.T) {
	assert.Empty(t, DefaultSplitter().SplitText(""))
}

func TestSplitter_LongText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2500; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	spans := DefaultSplitter().SplitText(text)
	require.Len(t, spans, 3)

	assert.Equal(t, 0, spans[0].Offset)
	assert.Equal(t, 900, spans[1].Offset)
	assert.Equal(t, 1800, spans[2].Offset)

	assert.Len(t, spans[0].Text, 1000)
	assert.Len(t, spans[1].Text, 1000)
	assert.Len(t, spans[2].Text, 700)

	assert.Equal(t, text[0:1000], spans[0].Text)
	assert.Equal(t, text[900:1900], spans[1].Text)
	assert.Equal(t, text[1800:], spans[2].Text)

	// consecutive chunks share exactly the overlap
	for i := 1; i < len(spans); i++ {
		prev := spans[i-1].Text
		assert.Equal(t, prev[len(prev)-100:], spans[i].Text[:100])
	}
}

func TestSplitter_CountsRunesNotBytes(t *testing.T) {
	s, err := NewSplitter(4, 1)
	require.NoError(t, err)

	spans := s.SplitText("héllo wörld")
	require.NotEmpty(t, spans)
	for _, span := range spans {
		assert.LessOrEqual(t, len([]rune(span.Text)), 4)
	}
	assert.Equal(t, "héll", spans[0].Text)
	assert.Equal(t, "lo w", spans[1].Text)
	assert.Equal(t, 3, spans[1].Offset)
}

func TestSplitter_SplitCopiesMetadata(t *testing.T) {
	s, err := NewSplitter(5, 1)
	require.NoError(t, err)

	docs := []schema.Document{
		{PageContent: "abcdefghij", Metadata: map[string]any{core.MetaSource: "/data/a.md"}},
		{PageContent: "", Metadata: map[string]any{core.MetaSource: "/data/empty.md"}},
		{PageContent: "xyz", Metadata: map[string]any{core.MetaSource: "/data/b.md"}},
	}

	chunks := s.Split(docs)
	require.Len(t, chunks, 4)

	assert.Equal(t, "abcde", chunks[0].PageContent)
	assert.Equal(t, "efghi", chunks[1].PageContent)
	assert.Equal(t, "ij", chunks[2].PageContent)
	assert.Equal(t, "xyz", chunks[3].PageContent)

	for i, c := range chunks[:3] {
		assert.Equal(t, "/data/a.md", c.Metadata[core.MetaSource])
		assert.Equal(t, i, c.Metadata[core.MetaPosition])
	}
	assert.Equal(t, 8, chunks[2].Metadata[core.MetaOffset])
	assert.Equal(t, "/data/b.md", chunks[3].Metadata[core.MetaSource])
	assert.Equal(t, 0, chunks[3].Metadata[core.MetaPosition])

	// chunk metadata is a copy
	chunks[0].Metadata["extra"] = true
	_, leaked := docs[0].Metadata["extra"]
	assert.False(t, leaked)
}
