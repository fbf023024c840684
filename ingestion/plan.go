package ingestion

import (
	"context"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ledger"
	"github.com/tmc/langchaingo/schema"
)

// Plan is the work a run would do for one data source.
type Plan struct {
	Source string

	// Chunks are the split documents of files not yet in the ledger.
	Chunks []schema.Document

	// Ledger is the ledger to persist once Chunks are stored.
	Ledger ledger.Ledger

	// Changed reports whether Ledger differs from the persisted ledger.
	Changed bool

	// Documents is the number of new files.
	Documents int

	// Skipped is the number of files whose fingerprint was already known.
	Skipped int

	// Moved is the number of persisted fingerprints now recorded under a
	// different path.
	Moved int

	// Warnings holds files that could not be loaded or hashed.
	Warnings []*core.LoadError
}

// Plan loads dir and the ledger of name and decides what to ingest.
//
// A file whose fingerprint is already recorded is not ingested again; its
// ledger entry takes the file's path, so renames are tracked without
// re-embedding. When several files share a fingerprint the last one in load
// order wins. Nothing is written.
func (p *Pipeline) Plan(ctx context.Context, name, dir string) (*Plan, error) {
	if err := core.ValidateSourceName(name); err != nil {
		return nil, &core.ConfigurationError{Path: dir, Err: err}
	}
	logger := p.logger.With("source", name)

	current, err := p.ledgers.Load(name)
	if err != nil {
		return nil, err
	}

	loaded, err := p.loader.Load(ctx, dir)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Source:   name,
		Ledger:   current.Clone(),
		Warnings: loaded.Warnings,
	}

	var fresh []schema.Document
	for _, doc := range loaded.Documents {
		path, _ := doc.Metadata[core.MetaSource].(string)
		fp, err := core.HashFile(path)
		if err != nil {
			logger.Warn("failed to fingerprint file", "path", path, "err", err)
			plan.Warnings = append(plan.Warnings, &core.LoadError{Path: path, Err: err})
			continue
		}

		if plan.Ledger.Has(fp) {
			plan.Skipped++
			plan.Ledger.Record(fp, path)
			logger.Info("already processed", "path", path)
			continue
		}

		plan.Ledger.Record(fp, path)
		doc.Metadata[core.MetaFingerprint] = string(fp)
		fresh = append(fresh, doc)
	}

	for fp, prev := range current {
		if path, ok := plan.Ledger[fp]; ok && path != prev {
			plan.Moved++
			logger.Info("ledger path updated", "path", path, "previous", prev)
		}
	}

	plan.Documents = len(fresh)
	plan.Chunks = p.splitter.Split(fresh)
	plan.Changed = !plan.Ledger.Equal(current)

	logger.Debug("plan ready", "documents", plan.Documents, "chunks", len(plan.Chunks),
		"skipped", plan.Skipped, "moved", plan.Moved, "warnings", len(plan.Warnings))
	return plan, nil
}
