package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	fp := core.HashBytes([]byte("hello world"))

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "minimal chunk",
			chunk: &core.Chunk{
				Id:      core.ID(1),
				Source:  "notes",
				Content: "hello",
			},
		},
		{
			name: "full chunk",
			chunk: &core.Chunk{
				Id:          core.ChunkID(fp, 3),
				Source:      "notes",
				Path:        "/data/notes/a.md",
				Fingerprint: fp,
				Position:    3,
				Offset:      2700,
				Content:     "hello world, with ünïcödé",
				Metadata: map[string]string{
					core.MetaSource: "/data/notes/a.md",
					core.MetaFormat: core.FormatMarkdown,
					core.MetaTitle:  "Greeting",
				},
				Vector:     []float32{0.1, -0.2, 0.3, 0},
				InsertedAt: now,
			},
		},
		{
			name: "large content",
			chunk: &core.Chunk{
				Id:      core.ID(99),
				Source:  "docs",
				Content: string(make([]byte, 10000)),
				Vector:  make([]float32, 768),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestMarshalChunk_MatchesGeneratedSerializer(t *testing.T) {
	chunk := &core.Chunk{
		Id:       5,
		Source:   "notes",
		Content:  "x",
		Metadata: map[string]string{"b": "2", "a": "1"},
		Vector:   []float32{0.5},
	}
	data := MarshalChunk(chunk)
	require.Equal(t, byte(chunkVersion), data[0])

	decoded, n, err := core.ChunkMUS.Unmarshal(data[1:])
	require.NoError(t, err)
	assert.Equal(t, len(data)-1, n)
	assert.Equal(t, chunk.Metadata, decoded.Metadata)
	assert.Equal(t, chunk.Vector, decoded.Vector)
}

func TestUnmarshalChunk_TimesAreUTC(t *testing.T) {
	local := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("test", 3600))
	decoded, err := UnmarshalChunk(MarshalChunk(&core.Chunk{Source: "notes", InsertedAt: local}))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, decoded.InsertedAt.Location())
	assert.True(t, local.Equal(decoded.InsertedAt))
}

func TestUnmarshalChunk_Invalid(t *testing.T) {
	valid := MarshalChunk(&core.Chunk{
		Id:       7,
		Source:   "notes",
		Content:  "some content",
		Metadata: map[string]string{"k": "v"},
		Vector:   []float32{1, 2, 3},
	})

	t.Run("empty", func(t *testing.T) {
		_, err := UnmarshalChunk(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("truncated", func(t *testing.T) {
		for cut := 1; cut < len(valid); cut++ {
			_, err := UnmarshalChunk(valid[:cut])
			assert.Error(t, err, "cut at %d", cut)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		data := append([]byte{}, valid...)
		data[0] = 9
		_, err := UnmarshalChunk(data)
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	checkpoint := &core.Checkpoint{
		ProcessorType: "ingest",
		LastID:        core.ID(12345),
		Count:         42,
		UpdatedAt:     now,
	}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(checkpoint))
	require.NoError(t, err)
	assert.Equal(t, checkpoint, decoded)

	_, err = UnmarshalCheckpoint([]byte{})
	assert.Error(t, err)
}
