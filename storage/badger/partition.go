package badger

import (
	"log/slog"
)

// Partition bundles the repositories of one data source over a single
// BadgerDB. Closing the partition closes the database.
type Partition struct {
	Chunks      *ChunkRepository
	Checkpoints *CheckpointRepository
	backend     *Backend
}

// OpenPartition opens (creating if needed) the database at dir and scopes
// its repositories to namespace. An empty namespace uses DefaultNamespace.
func OpenPartition(dir, namespace string, logger *slog.Logger) (*Partition, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	backend, err := OpenBackend(dir, dir == "", WithBackendLogger(logger))
	if err != nil {
		return nil, err
	}
	chunks, err := NewChunkRepository(backend, namespace)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Partition{
		Chunks:      chunks,
		Checkpoints: NewCheckpointRepository(backend, namespace),
		backend:     backend,
	}, nil
}

// Close closes the underlying database. Safe to call more than once.
func (p *Partition) Close() error {
	return p.backend.Close()
}
