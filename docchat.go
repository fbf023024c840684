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


// Package docchat wires the configured AI provider, the ledgers and the
// per-data-source partitions into ingestion pipelines and chat services.
package docchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/gemini"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/ledger"
	"github.com/poiesic/docchat/loader"
	"github.com/poiesic/docchat/reembed"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/vectorstore"
	"github.com/tmc/langchaingo/vectorstores"
)

var (
	// ErrConfigRequired is returned when no configuration is given
	ErrConfigRequired = errors.New("config is required")

	// ErrProviderRequired is returned when no AI provider is given
	ErrProviderRequired = errors.New("AI provider is required")

	// ErrClosed is returned by a workspace after Close
	ErrClosed = errors.New("workspace is closed")
)

// Workspace owns the resources shared by every data source of one
// deployment. It is created once by the process entry point.
type Workspace struct {
	cfg      *config.Config
	provider ai.AIProvider
	ledgers  *ledger.Store
	registry ingestion.Registry
	logger   *slog.Logger
	inMemory bool

	mu         sync.Mutex
	partitions map[string]*partition
	closed     bool
}

// partition is an open badger partition and the vector store over it.
type partition struct {
	db    *badger.Partition
	store *vectorstore.Store
}

// Option configures a Workspace.
type Option func(*Workspace) error

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) error {
		w.logger = logger
		return nil
	}
}

// WithInMemoryPartitions keeps partitions in memory instead of under DBDir.
func WithInMemoryPartitions() Option {
	return func(w *Workspace) error {
		w.inMemory = true
		return nil
	}
}

// NewWorkspace checks that the data directory exists and creates the
// metadata and database roots when absent.
func NewWorkspace(cfg *config.Config, provider ai.AIProvider, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	w := &Workspace{
		cfg:        cfg,
		provider:   provider,
		partitions: map[string]*partition{},
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, &core.ConfigurationError{Path: cfg.DataDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &core.ConfigurationError{Path: cfg.DataDir, Err: errors.New("not a directory")}
	}
	dirs := []string{cfg.MetadataDir}
	if !w.inMemory {
		dirs = append(dirs, cfg.DBDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &core.ConfigurationError{Path: dir, Err: err}
		}
	}

	w.ledgers = ledger.NewStore(cfg.MetadataDir, ledger.WithLogger(w.logger))
	w.registry = NewRegistry(cfg)
	w.logger = w.logger.With("component", "workspace")
	return w, nil
}

// NewRegistry returns the static DATA_SOURCES list when configured and
// the subdirectories of DATA_DIR otherwise.
func NewRegistry(cfg *config.Config) ingestion.Registry {
	if len(cfg.DataSources) > 0 {
		return ingestion.StaticRegistry(cfg.DataSources)
	}
	return ingestion.DirectoryRegistry{Dir: cfg.DataDir}
}

// Config returns the workspace configuration.
func (w *Workspace) Config() *config.Config {
	return w.cfg
}

// Provider returns the AI provider.
func (w *Workspace) Provider() ai.AIProvider {
	return w.provider
}

// Registry returns the data sources known to the workspace.
func (w *Workspace) Registry() ingestion.Registry {
	return w.registry
}

// Ledgers returns the ledger store under MetadataDir.
func (w *Workspace) Ledgers() *ledger.Store {
	return w.ledgers
}

// Sources lists the data source names.
func (w *Workspace) Sources(ctx context.Context) ([]string, error) {
	return w.registry.Sources(ctx)
}

// OpenPartition opens the partition of the data source name, creating it
// under <DBDir>/<name> on first use. Partitions stay open until Close.
func (w *Workspace) OpenPartition(ctx context.Context, name string) (*ingestion.Partition, error) {
	p, err := w.partition(name)
	if err != nil {
		return nil, err
	}
	return &ingestion.Partition{Store: p.store, Checkpoints: p.db.Checkpoints}, nil
}

// Store returns the vector store of the data source name.
func (w *Workspace) Store(ctx context.Context, name string) (*vectorstore.Store, error) {
	if err := w.requireSource(ctx, name); err != nil {
		return nil, err
	}
	p, err := w.partition(name)
	if err != nil {
		return nil, err
	}
	return p.store, nil
}

// NewSearchStore returns a separate vector store over the partition of
// the data source name, configured with opts. It shares the partition
// with Store but not its options.
func (w *Workspace) NewSearchStore(ctx context.Context, name string, opts ...vectorstore.Option) (*vectorstore.Store, error) {
	if err := w.requireSource(ctx, name); err != nil {
		return nil, err
	}
	p, err := w.partition(name)
	if err != nil {
		return nil, err
	}
	opts = append([]vectorstore.Option{vectorstore.WithLogger(w.logger)}, opts...)
	return vectorstore.New(name, p.db.Chunks, w.provider.Embedder(), opts...)
}

func (w *Workspace) partition(name string) (*partition, error) {
	if err := core.ValidateSourceName(name); err != nil {
		return nil, &core.ConfigurationError{Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if p, ok := w.partitions[name]; ok {
		return p, nil
	}

	dir := ""
	if !w.inMemory {
		dir = filepath.Join(w.cfg.DBDir, name)
	}
	db, err := badger.OpenPartition(dir, w.cfg.CollectionName, w.logger)
	if err != nil {
		return nil, &core.StorageError{Op: "open", Path: dir, Err: err}
	}
	store, err := vectorstore.New(name, db.Chunks, w.provider.Embedder(),
		vectorstore.WithLogger(w.logger))
	if err != nil {
		db.Close()
		return nil, err
	}

	p := &partition{db: db, store: store}
	w.partitions[name] = p
	w.logger.Debug("partition opened", "source", name, "dir", dir)
	return p, nil
}

// requireSource fails with a ConfigurationError when name is not a
// registered data source.
func (w *Workspace) requireSource(ctx context.Context, name string) error {
	if err := core.ValidateSourceName(name); err != nil {
		return &core.ConfigurationError{Err: err}
	}
	names, err := w.registry.Sources(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, name) {
		return &core.ConfigurationError{Err: fmt.Errorf("unknown data source %q", name)}
	}
	return nil
}

// NewPipeline builds an ingestion pipeline over the workspace's ledgers
// and partitions. The caller releases it.
func (w *Workspace) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	ld, err := loader.New(
		loader.WithLogger(w.logger),
		loader.WithSpreadsheetLicenseKey(w.cfg.UnidocLicenseKey),
	)
	if err != nil {
		return nil, err
	}
	splitter, err := loader.NewSplitter(w.cfg.ChunkSize, w.cfg.ChunkOverlap)
	if err != nil {
		return nil, &core.ConfigurationError{Err: err}
	}

	opts = append([]ingestion.Option{
		ingestion.WithDataDir(w.cfg.DataDir),
		ingestion.WithPoolSize(w.cfg.IngestWorkers),
		ingestion.WithLogger(w.logger),
	}, opts...)
	return ingestion.NewPipeline(w.ledgers, ld, splitter, w, opts...)
}

// NewChatService answers questions from the documents of the data source name.
func (w *Workspace) NewChatService(ctx context.Context, name string, opts ...chat.Option) (*chat.Service, error) {
	store, err := w.Store(ctx, name)
	if err != nil {
		return nil, err
	}
	retriever := vectorstores.ToRetriever(store, w.cfg.RetrievalK)
	opts = append([]chat.Option{chat.WithLogger(w.logger)}, opts...)
	return chat.NewService(w.provider.ChatModel(), retriever, opts...)
}

// NewReembedder re-embeds the stored chunks of the data source name with
// the workspace's embedder. Progress is written to progress.
func (w *Workspace) NewReembedder(ctx context.Context, name string, cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if err := w.requireSource(ctx, name); err != nil {
		return nil, err
	}
	p, err := w.partition(name)
	if err != nil {
		return nil, err
	}
	return reembed.NewReembedder(p.db.Chunks, w.provider.Embedder(), cfg, progress,
		reembed.WithCheckpoints(p.db.Checkpoints),
		reembed.WithLogger(w.logger))
}

// Close closes every open partition and the AI provider.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for name, p := range w.partitions {
		if err := p.db.Close(); err != nil {
			w.logger.Error("error closing partition", "source", name, "err", err)
			errs = append(errs, err)
		}
	}
	w.partitions = nil

	if err := w.provider.Close(); err != nil {
		w.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewAIProvider creates the provider selected by cfg and wraps it so
// every upstream call is retried.
func NewAIProvider(ctx context.Context, cfg *ai.Config, logger *slog.Logger) (ai.AIProvider, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &core.ConfigurationError{Err: err}
	}

	var (
		inner ai.AIProvider
		err   error
	)
	switch cfg.Provider {
	case ai.ProviderGemini:
		inner, err = gemini.NewProvider(ctx, cfg, gemini.WithLogger(logger))
	case ai.ProviderOpenAI:
		inner, err = openai.NewProvider(cfg, openai.WithLogger(logger))
	default:
		err = fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, &core.ConfigurationError{Err: err}
	}

	provider, err := ai.NewRetrying(inner, cfg.MaxRetries, cfg.RetryDelay, ai.WithRetryLogger(logger))
	if err != nil {
		inner.Close()
		return nil, err
	}
	return provider, nil
}
