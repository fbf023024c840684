package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, storage.ChunkRepository, *mock.MockEmbedder) {
	t.Helper()
	chunks, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	store, err := New("notes", chunks, embedder, opts...)
	require.NoError(t, err)
	return store, chunks, embedder
}

func doc(text, path, fp string, position int) schema.Document {
	return schema.Document{
		PageContent: text,
		Metadata: map[string]any{
			core.MetaSource:      path,
			core.MetaFingerprint: fp,
			core.MetaPosition:    position,
			core.MetaOffset:      position * 900,
			core.MetaFormat:      core.FormatMarkdown,
		},
	}
}

var (
	fpA = string(core.HashBytes([]byte("a")))
	fpB = string(core.HashBytes([]byte("b")))
)

func TestNew(t *testing.T) {
	chunks, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		store, err := New("notes", chunks, embedder)
		require.NoError(t, err)
		assert.Equal(t, "notes", store.Source())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		_, err := New("notes", chunks, embedder, WithLogger(nil))
		require.NoError(t, err)
	})

	t.Run("invalid source name", func(t *testing.T) {
		_, err := New("../x", chunks, embedder)
		assert.ErrorIs(t, err, core.ErrInvalidSourceName)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := New("notes", nil, embedder)
		assert.Equal(t, ErrRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := New("notes", chunks, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("bad options", func(t *testing.T) {
		_, err := New("notes", chunks, embedder, WithBatchSize(0))
		assert.Error(t, err)
		_, err = New("notes", chunks, embedder, WithKeywordBoost(-1))
		assert.Error(t, err)
	})
}

func TestAddDocuments(t *testing.T) {
	store, repo, embedder := newTestStore(t, WithBatchSize(2))
	ctx := context.Background()

	docs := []schema.Document{
		doc("hello world", "/data/notes/a.md", fpA, 0),
		doc("second chunk", "/data/notes/a.md", fpA, 1),
		doc("other file", "/data/notes/b.md", fpB, 0),
	}
	ids, err := store.AddDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, 2, embedder.CallCount(), "three chunks in batches of two")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	chunk, err := repo.GetChunk(ctx, core.ChunkID(core.Fingerprint(fpA), 1))
	require.NoError(t, err)
	assert.Equal(t, "notes", chunk.Source)
	assert.Equal(t, "/data/notes/a.md", chunk.Path)
	assert.Equal(t, 1, chunk.Position)
	assert.Equal(t, 900, chunk.Offset)
	assert.Equal(t, core.FormatMarkdown, chunk.Metadata[core.MetaFormat])
	assert.InDelta(t, 1.0, squaredNorm(chunk.Vector), 1e-5)
}

func TestAddDocuments_Idempotent(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	docs := []schema.Document{doc("hello world", "/a.md", fpA, 0)}

	first, err := store.AddDocuments(ctx, docs)
	require.NoError(t, err)
	second, err := store.AddDocuments(ctx, docs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddDocuments_EmbedFailure(t *testing.T) {
	store, _, embedder := newTestStore(t)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("upstream down")
	}

	_, err := store.AddDocuments(context.Background(), []schema.Document{doc("x", "/a.md", fpA, 0)})
	require.Error(t, err)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddDocuments_EmbeddingMismatch(t *testing.T) {
	store, _, embedder := newTestStore(t)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	_, err := store.AddDocuments(context.Background(), []schema.Document{
		doc("x", "/a.md", fpA, 0), doc("y", "/a.md", fpA, 1),
	})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestAddDocuments_EmptyContentRejected(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, err := store.AddDocuments(context.Background(), []schema.Document{doc("", "/a.md", fpA, 0)})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)
}

func TestAddDocuments_Deduplicater(t *testing.T) {
	store, _, _ := newTestStore(t)
	ids, err := store.AddDocuments(context.Background(),
		[]schema.Document{doc("keep", "/a.md", fpA, 0), doc("drop", "/a.md", fpA, 1)},
		vectorstores.WithDeduplicater(func(_ context.Context, d schema.Document) bool {
			return d.PageContent == "drop"
		}),
	)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestAddDocuments_WithoutFingerprint(t *testing.T) {
	store, _, _ := newTestStore(t)
	ids, err := store.AddDocuments(context.Background(), []schema.Document{
		{PageContent: "loose text one"},
		{PageContent: "loose text two"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestSimilaritySearch(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []schema.Document{
		doc("hello world", "/data/notes/a.md", fpA, 0),
		doc("quarterly revenue figures", "/data/notes/b.md", fpB, 0),
	})
	require.NoError(t, err)

	docs, err := store.SimilaritySearch(ctx, "hello world", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].PageContent)
	assert.Equal(t, "/data/notes/a.md", docs[0].Metadata[core.MetaSource])
	assert.InDelta(t, 1.0, docs[0].Score, 1e-5)
}

func TestSimilaritySearch_ScoreThreshold(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []schema.Document{
		doc("hello world", "/a.md", fpA, 0),
		doc("quarterly revenue figures", "/b.md", fpB, 0),
	})
	require.NoError(t, err)

	docs, err := store.SimilaritySearch(ctx, "hello world", 5, vectorstores.WithScoreThreshold(0.99))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].PageContent)
}

func TestSimilaritySearch_EmptyStore(t *testing.T) {
	store, _, _ := newTestStore(t)

	docs, err := store.SimilaritySearch(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSimilaritySearch_UnsupportedOptions(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.SimilaritySearch(ctx, "q", 3, vectorstores.WithNameSpace("other"))
	assert.ErrorIs(t, err, ErrUnsupportedOption)

	_, err = store.SimilaritySearch(ctx, "q", 3, vectorstores.WithFilters(map[string]string{"a": "b"}))
	assert.ErrorIs(t, err, ErrUnsupportedOption)
}

func TestSimilaritySearch_EmbedFailure(t *testing.T) {
	store, _, embedder := newTestStore(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}

	_, err := store.SimilaritySearch(context.Background(), "q", 3)
	assert.Error(t, err)
}

type recordingMonitor struct {
	query       string
	candidates  int
	keywordHits int
	finished    int
}

func (m *recordingMonitor) Start(q string)                                   { m.query = q }
func (m *recordingMonitor) AfterSimilarityScan(results []*core.SearchResult) { m.candidates = len(results) }
func (m *recordingMonitor) KeywordHit(_ *core.Chunk)                         { m.keywordHits++ }
func (m *recordingMonitor) Finish(results []*core.SearchResult)              { m.finished = len(results) }

func TestSearch_KeywordBoostAndMonitor(t *testing.T) {
	monitor := &recordingMonitor{}
	store, repo, embedder := newTestStore(t, WithKeywordBoost(0.3), WithMonitor(monitor))
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []schema.Document{
		doc("the cat sat on the mat", "/a.md", fpA, 0),
		doc("a dog in the fog", "/b.md", fpB, 0),
	})
	require.NoError(t, err)

	plain, err := New("notes", repo, embedder)
	require.NoError(t, err)
	base, err := plain.Search(ctx, "cat mat", 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, base, 1)

	results, err := store.Search(ctx, "cat mat", 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "the cat sat on the mat", results[0].Chunk.Content)
	assert.InDelta(t, base[0].Score+0.3, results[0].Score, 1e-5, "full keyword coverage adds the whole boost")

	assert.Equal(t, "cat mat", monitor.query)
	assert.Equal(t, 2, monitor.candidates)
	assert.Equal(t, 1, monitor.keywordHits)
	assert.Equal(t, 1, monitor.finished)
}

func TestRetriever(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []schema.Document{
		doc("hello world", "/a.md", fpA, 0),
		doc("goodbye world", "/a.md", fpA, 1),
		doc("revenue", "/b.md", fpB, 0),
		doc("more revenue", "/b.md", fpB, 1),
	})
	require.NoError(t, err)

	docs, err := vectorstores.ToRetriever(store, 3).GetRelevantDocuments(ctx, "hello world")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, "hello world", docs[0].PageContent)
}

func squaredNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	return sum
}
