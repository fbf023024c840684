package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// DefaultBatchSize is the number of chunks embedded and upserted together.
const DefaultBatchSize = 64

// candidateFactor widens the similarity scan when keyword boosting may
// reorder results.
const candidateFactor = 3

// Store is a langchaingo vector store over one data source's chunks.
type Store struct {
	source       string
	repository   storage.ChunkRepository
	embedder     ai.Embedder
	batchSize    int
	keywordBoost float32
	monitor      SearchMonitor
	logger       *slog.Logger
}

var _ vectorstores.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per upstream call.
func WithBatchSize(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithKeywordBoost adds weight times the fraction of query terms found in a
// chunk to its similarity score. Zero disables boosting.
func WithKeywordBoost(weight float32) Option {
	return func(s *Store) error {
		if weight < 0 {
			return fmt.Errorf("keyword boost cannot be negative, got %v", weight)
		}
		s.keywordBoost = weight
		return nil
	}
}

// WithMonitor observes every SimilaritySearch.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Store) error {
		s.monitor = monitor
		return nil
	}
}

// New creates a store for the data source named source.
func New(source string, repository storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Store, error) {
	if err := core.ValidateSourceName(source); err != nil {
		return nil, err
	}
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Store{
		source:     source,
		repository: repository,
		embedder:   embedder,
		batchSize:  DefaultBatchSize,
		monitor:    &noopMonitor{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.monitor == nil {
		s.monitor = &noopMonitor{}
	}
	s.logger = s.logger.With("component", "vectorstore", "source", source)
	return s, nil
}

// Source returns the data source name.
func (s *Store) Source() string {
	return s.source
}

// AddDocuments embeds and upserts docs in batches. Each batch is stored in
// one transaction; a failure leaves earlier batches in place, which is safe
// because chunk IDs are deterministic. Returns the IDs of the stored chunks.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	embedTexts := s.embedder.EmbedTexts
	if opts.Embedder != nil {
		embedTexts = opts.Embedder.EmbedDocuments
	}

	chunks := make([]*core.Chunk, 0, len(docs))
	for _, doc := range docs {
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		chunk := s.toChunk(doc)
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	ids := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		batch := chunks[start:min(start+s.batchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := embedTexts(ctx, texts)
		if err != nil {
			s.logger.Error("error embedding chunks", "count", len(batch), "err", err)
			return ids, err
		}
		if len(vectors) != len(batch) {
			return ids, fmt.Errorf("%w: %d texts, %d vectors", ErrEmbeddingMismatch, len(batch), len(vectors))
		}
		for i, c := range batch {
			c.Vector = ai.NormalizeVector(vectors[i])
		}

		stored, err := s.repository.AddChunks(ctx, batch...)
		if err != nil {
			s.logger.Error("error storing chunks", "count", len(batch), "err", err)
			return ids, err
		}
		for _, c := range stored {
			ids = append(ids, strconv.FormatUint(uint64(c.Id), 10))
		}
		s.logger.Debug("stored chunk batch", "count", len(stored), "total", len(ids))
	}
	return ids, nil
}

// SimilaritySearch returns up to numDocuments chunks ranked by cosine
// similarity to query. vectorstores.WithScoreThreshold drops chunks whose
// similarity is below the threshold.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	results, err := s.Search(ctx, query, numDocuments, opts.ScoreThreshold, opts.Embedder)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(results))
	for i, r := range results {
		docs[i] = toDocument(r)
	}
	return docs, nil
}

// Search is SimilaritySearch returning the stored chunks. A non-nil embedder
// overrides the store's embedder for the query.
func (s *Store) Search(ctx context.Context, query string, maxHits int, minSimilarity float32, embedder embeddings.Embedder) ([]*core.SearchResult, error) {
	s.monitor.Start(query)

	var (
		vector []float32
		err    error
	)
	if embedder != nil {
		vector, err = embedder.EmbedQuery(ctx, query)
	} else {
		vector, err = s.embedder.EmbedText(ctx, query)
	}
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	limit := maxHits
	if s.keywordBoost > 0 {
		limit = maxHits * candidateFactor
	}
	results, err := s.repository.FindSimilar(ctx, ai.NormalizeVector(vector), minSimilarity, limit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	s.monitor.AfterSimilarityScan(results)

	if s.keywordBoost > 0 {
		queryTerms := terms(query)
		for _, r := range results {
			coverage := keywordCoverage(queryTerms, r.Chunk.Content)
			if coverage == 1 {
				s.monitor.KeywordHit(r.Chunk)
			}
			r.Score += s.keywordBoost * coverage
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
		if len(results) > maxHits {
			results = results[:maxHits]
		}
	}

	s.monitor.Finish(results)
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repository.CountChunks(ctx)
}

func parseOptions(options []vectorstores.Option) (vectorstores.Options, error) {
	var opts vectorstores.Options
	for _, opt := range options {
		opt(&opts)
	}
	if opts.NameSpace != "" {
		return opts, fmt.Errorf("%w: namespace %q", ErrUnsupportedOption, opts.NameSpace)
	}
	if opts.Filters != nil {
		return opts, fmt.Errorf("%w: filters", ErrUnsupportedOption)
	}
	return opts, nil
}

// toChunk builds a chunk from a split document. Documents without a
// fingerprint are keyed by their content.
func (s *Store) toChunk(doc schema.Document) *core.Chunk {
	chunk := &core.Chunk{
		Source:   s.source,
		Content:  doc.PageContent,
		Metadata: make(map[string]string, len(doc.Metadata)),
	}
	for k, v := range doc.Metadata {
		chunk.Metadata[k] = fmt.Sprint(v)
	}

	chunk.Path = chunk.Metadata[core.MetaSource]
	chunk.Fingerprint = core.Fingerprint(chunk.Metadata[core.MetaFingerprint])
	if chunk.Fingerprint == "" {
		chunk.Fingerprint = core.HashBytes([]byte(doc.PageContent))
	}
	chunk.Position = intMeta(doc.Metadata[core.MetaPosition])
	chunk.Offset = intMeta(doc.Metadata[core.MetaOffset])
	chunk.Id = core.ChunkID(chunk.Fingerprint, chunk.Position)
	return chunk
}

func intMeta(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func toDocument(r *core.SearchResult) schema.Document {
	meta := make(map[string]any, len(r.Chunk.Metadata)+1)
	for k, v := range r.Chunk.Metadata {
		meta[k] = v
	}
	meta[core.MetaSource] = r.Chunk.Path
	meta[core.MetaPosition] = r.Chunk.Position
	meta[core.MetaOffset] = r.Chunk.Offset
	return schema.Document{
		PageContent: r.Chunk.Content,
		Metadata:    meta,
		Score:       r.Score,
	}
}
