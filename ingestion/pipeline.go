package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ledger"
	"github.com/poiesic/docchat/loader"
)

// CheckpointType is the processor type of the checkpoint saved after each
// successful upsert.
const CheckpointType = "ingest"

// DefaultDataDir is the root of the data source directories.
const DefaultDataDir = "data"

// Pipeline ingests the files of data sources into their vector partitions.
// Runs of the same data source are serialized.
type Pipeline struct {
	ledgers  *ledger.Store
	loader   *loader.Loader
	splitter loader.Splitter
	opener   PartitionOpener
	dataDir  string
	pool     *ants.Pool
	locks    sync.Map // source name -> *sync.Mutex
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many data sources RunAll ingests concurrently.
// Default is 1, which runs them one after the other.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithDataDir sets the directory holding one subdirectory per data source.
func WithDataDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir == "" {
			return &core.ConfigurationError{Err: errors.New("data dir is empty")}
		}
		p.dataDir = dir
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	ledgers *ledger.Store,
	ld *loader.Loader,
	splitter loader.Splitter,
	opener PartitionOpener,
	opts ...Option,
) (*Pipeline, error) {
	if ledgers == nil {
		return nil, ErrLedgerStoreRequired
	}
	if ld == nil {
		return nil, ErrLoaderRequired
	}
	if opener == nil {
		return nil, ErrPartitionOpenerRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		ledgers:  ledgers,
		loader:   ld,
		splitter: splitter,
		opener:   opener,
		dataDir:  DefaultDataDir,
		pool:     pool,
		logger:   slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// SourceResult is the outcome of one data source run.
type SourceResult struct {
	Source    string
	Documents int // new files ingested
	Chunks    int // chunks upserted
	Skipped   int // files already processed
	Moved     int // ledger paths updated
	Warnings  []*core.LoadError
	Duration  time.Duration
	Err       error
}

// NoNewContent reports whether the run succeeded without storing anything.
func (r *SourceResult) NoNewContent() bool {
	return r.Err == nil && r.Chunks == 0 && r.Moved == 0
}

// Run ingests the new files of the data source name from <dataDir>/name.
// The ledger is saved only after every chunk was stored, so a failed run
// is retried in full next time.
func (p *Pipeline) Run(ctx context.Context, name string) (*SourceResult, error) {
	mu := p.lock(name)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	result := &SourceResult{Source: name}
	err := p.run(ctx, name, result)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return result, err
	}

	p.logger.Info("data source ingested", "source", name, "documents", result.Documents,
		"chunks", result.Chunks, "skipped", result.Skipped, "moved", result.Moved,
		"warnings", len(result.Warnings), "duration", result.Duration)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, name string, result *SourceResult) error {
	if err := core.ValidateSourceName(name); err != nil {
		return &core.ConfigurationError{Err: err}
	}
	dir := filepath.Join(p.dataDir, name)
	info, err := os.Stat(dir)
	if err != nil {
		return &core.ConfigurationError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &core.ConfigurationError{Path: dir, Err: errors.New("not a directory")}
	}

	plan, err := p.Plan(ctx, name, dir)
	if err != nil {
		return err
	}
	result.Documents = plan.Documents
	result.Skipped = plan.Skipped
	result.Moved = plan.Moved
	result.Warnings = plan.Warnings

	if len(plan.Chunks) > 0 {
		partition, err := p.opener.OpenPartition(ctx, name)
		if err != nil {
			return asStorageError("open", name, err)
		}

		ids, err := partition.Store.AddDocuments(ctx, plan.Chunks)
		if err != nil {
			p.logger.Error("upsert failed, ledger not saved", "source", name, "err", err)
			return asStorageError("upsert", name, err)
		}
		result.Chunks = len(ids)

		if partition.Checkpoints != nil {
			cp := &core.Checkpoint{ProcessorType: CheckpointType, Count: int64(len(ids))}
			if err := partition.Checkpoints.SaveCheckpoint(ctx, cp); err != nil {
				p.logger.Warn("failed to save ingest checkpoint", "source", name, "err", err)
			}
		}
	}

	if plan.Changed {
		if err := p.ledgers.Save(name, plan.Ledger); err != nil {
			return err
		}
	}
	return nil
}

// asStorageError leaves classified errors alone and wraps the rest.
func asStorageError(op, name string, err error) error {
	for _, kind := range []error{core.ErrUpstream, core.ErrStorage, core.ErrConfiguration, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return &core.StorageError{Op: op, Path: name, Err: err}
}

func (p *Pipeline) lock(name string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Summary aggregates a RunAll.
type Summary struct {
	Succeeded int // sources that stored new chunks or updated their ledger
	Skipped   int // sources with no new content
	Failed    int
	Results   []*SourceResult // sorted by source name
}

// Failures returns the results of failed sources.
func (s *Summary) Failures() []*SourceResult {
	var out []*SourceResult
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err joins the errors of every failed source, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Failures() {
		errs = append(errs, fmt.Errorf("%s: %w", r.Source, r.Err))
	}
	return errors.Join(errs...)
}

// RunAll runs every data source of registry on the worker pool. A failing
// source is logged and counted; the others still run. Only a registry
// failure or a cancelled context fails RunAll itself.
func (p *Pipeline) RunAll(ctx context.Context, registry Registry) (*Summary, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	names, err := registry.Sources(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("ingesting data sources", "count", len(names))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*SourceResult, 0, len(names))
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			result, err := p.Run(ctx, name)
			if err != nil {
				p.logger.Error("data source failed", "source", name, "err", err)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			results = append(results, &SourceResult{Source: name, Err: submitErr})
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Source < results[j].Source })
	summary := &Summary{Results: results}
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.NoNewContent():
			summary.Skipped++
		default:
			summary.Succeeded++
		}
	}

	p.logger.Info("ingestion finished", "succeeded", summary.Succeeded,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
