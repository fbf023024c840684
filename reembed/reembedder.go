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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// CheckpointType is the processor type under which progress is saved.
const CheckpointType = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Resume continues after the last chunk recorded by an interrupted run
	Resume bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		r.logger = logger
		return nil
	}
}

// WithCheckpoints enables saving progress so later runs can resume.
func WithCheckpoints(checkpoints storage.CheckpointRepository) Option {
	return func(r *Reembedder) error {
		r.checkpoints = checkpoints
		return nil
	}
}

// Result summarizes a reembedding run.
type Result struct {
	Total     int
	Processed int
	Resumed   bool
	Duration  time.Duration
}

// Reembedder orchestrates the reembedding of all chunks in a partition.
type Reembedder struct {
	repo        storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ChunkIterator
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewChunkIterator(repo, config.BatchSize),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "reembedder")
	return r, nil
}

// Run re-embeds every chunk in the partition with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.repo.CountChunks(ctx)
	if err != nil {
		return nil, &core.StorageError{Op: "count", Err: err}
	}

	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in partition (0 chunks)\n")
		return result, nil
	}

	var after core.ID
	if r.config.Resume && r.checkpoints != nil {
		cp, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointType)
		if err != nil {
			return nil, &core.StorageError{Op: "load checkpoint", Err: err}
		}
		if cp != nil && cp.LastID != 0 {
			after = cp.LastID
			result.Processed = int(cp.Count)
			result.Resumed = true
			r.logger.Info("resuming reembedding", "after", after, "processed", cp.Count)
		}
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()
	tracker.Update(result.Processed)

	err = r.iterator.ForEach(ctx, after, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		result.Processed += len(chunks)
		tracker.Update(result.Processed)
		r.saveCheckpoint(ctx, chunks[len(chunks)-1].Id, result.Processed)
		return nil
	})
	if err != nil {
		result.Duration = tracker.Elapsed()
		return result, err
	}

	tracker.Finish()
	r.saveCheckpoint(ctx, 0, result.Processed)

	result.Duration = tracker.Elapsed()
	rate := 0.0
	if secs := result.Duration.Seconds(); secs > 0 {
		rate = float64(result.Processed) / secs
	}
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		result.Processed, result.Duration.Round(time.Millisecond), rate)
	r.logger.Info("reembedding complete", "chunks", result.Processed, "duration", result.Duration)
	return result, nil
}

// saveCheckpoint records progress. A LastID of 0 marks a completed run.
// Failures are logged; they only cost the ability to resume.
func (r *Reembedder) saveCheckpoint(ctx context.Context, lastID core.ID, processed int) {
	if r.checkpoints == nil {
		return
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		ProcessorType: CheckpointType,
		LastID:        lastID,
		Count:         int64(processed),
	})
	if err != nil {
		r.logger.Warn("failed to save checkpoint", "err", err)
	}
}
