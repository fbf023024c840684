package badger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dbDir := filepath.Join(t.TempDir(), "db", "notes")
	backend, err := OpenBackend(dbDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(dbDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestOpenBackend_Persists(t *testing.T) {
	dbDir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dbDir, false)
	require.NoError(t, err)
	repo, err := NewChunkRepository(backend, "")
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, &core.Chunk{Source: "notes", Content: "persisted", Fingerprint: "fp"})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dbDir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err = NewChunkRepository(backend, "")
	require.NoError(t, err)

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	// Closing twice is harmless
	require.NoError(t, backend.Close())

	err = backend.WithTx(nil, false)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func addVectors(t *testing.T, repo storage.ChunkRepository, vectors map[string][]float32) {
	t.Helper()
	var chunks []*core.Chunk
	i := 0
	for content, vector := range vectors {
		chunks = append(chunks, &core.Chunk{
			Source:      "notes",
			Fingerprint: core.Fingerprint("fp" + strconv.Itoa(i)),
			Content:     content,
			Vector:      vector,
		})
		i++
	}
	_, err := repo.AddChunks(context.Background(), chunks...)
	require.NoError(t, err)
}

func TestFindSimilar_NoChunks(t *testing.T) {
	repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	results, err := repo.FindSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_WithChunks(t *testing.T) {
	repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	addVectors(t, repo, map[string][]float32{
		"First chunk":                {1.0, 0.0, 0.0}, // Very similar to query
		"Second chunk":               {0.9, 0.1, 0.0}, // Somewhat similar
		"Third chunk":                {0.0, 0.0, 1.0}, // Not similar
		"Fourth chunk without vector": nil,            // Skipped
	})

	results, err := repo.FindSimilar(context.Background(), []float32{1.0, 0.0, 0.0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for i := 0; i < len(results)-1; i++ {
		assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
	}
	assert.Equal(t, "First chunk", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
}

func TestFindSimilar_ThresholdFiltering(t *testing.T) {
	repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	addVectors(t, repo, map[string][]float32{
		"High similarity":   {1.0, 0.0, 0.0},
		"Medium similarity": {0.7, 0.3, 0.0},
		"Low similarity":    {0.3, 0.7, 0.0},
	})
	ctx := context.Background()
	queryVector := []float32{1.0, 0.0, 0.0}

	t.Run("high threshold", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, queryVector, 0.95, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("medium threshold", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, queryVector, 0.6, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("low threshold", func(t *testing.T) {
		results, err := repo.FindSimilar(ctx, queryVector, 0.2, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := repo.FindSimilar(ctx, queryVector, 0.2, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestFindSimilar_LimitResults(t *testing.T) {
	repo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	vectors := map[string][]float32{}
	for i := 0; i < 10; i++ {
		vectors["chunk "+strconv.Itoa(i)] = []float32{0.9, 0.1, 0.0}
	}
	addVectors(t, repo, vectors)

	ctx := context.Background()
	queryVector := []float32{1.0, 0.0, 0.0}

	results, err := repo.FindSimilar(ctx, queryVector, 0.5, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = repo.FindSimilar(ctx, queryVector, 0.5, 100)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestFindSimilar_NamespaceIsolation(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	a, err := NewChunkRepository(backend, "alpha")
	require.NoError(t, err)
	b, err := NewChunkRepository(backend, "beta")
	require.NoError(t, err)

	addVectors(t, a, map[string][]float32{"only in alpha": {1, 0}})

	results, err := b.FindSimilar(context.Background(), []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = a.FindSimilar(context.Background(), []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{-1.0, 0.0, 0.0},
			expected: -1.0,
		},
		{
			name:     "general case",
			a:        []float32{0.6, 0.8},
			b:        []float32{0.8, 0.6},
			expected: 0.96,
		},
		{
			name:     "different lengths - use min",
			a:        []float32{1.0, 2.0, 3.0},
			b:        []float32{1.0, 2.0},
			expected: 5.0,
		},
		{
			name:     "empty vectors",
			a:        []float32{},
			b:        []float32{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, dotProduct(tt.a, tt.b), 0.0001)
		})
	}
}

func TestWithTransaction(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("successful transaction", func(t *testing.T) {
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed transaction", func(t *testing.T) {
		testErr := assert.AnError
		err := backend.WithTransaction(ctx, func(ctx context.Context) error {
			return testErr
		})
		assert.Equal(t, testErr, err)
	})
}
