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


// Package storage provides the storage abstraction layer for docchat.
//
// This package defines repository interfaces that decouple the vector
// partitions from the pipeline and answer service. Each data source gets its
// own partition, and a partition is reached only through these interfaces.
//
// # Architecture
//
//   - Repository: similarity search, transactions and Close
//   - ChunkRepository: storage of embedded chunks
//   - CheckpointRepository: progress markers for long-running processors
//
// Chunk IDs are derived from the originating file's fingerprint and the
// chunk position, so re-adding a chunk overwrites rather than duplicates.
//
// # Usage
//
// Open a partition:
//
//	backend, err := badger.OpenBackend("/path/to/db/notes", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	chunks, err := badger.NewChunkRepository(backend, "assistant_db")
//
// Use in tests with in-memory storage:
//
//	chunks, checkpoints, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
