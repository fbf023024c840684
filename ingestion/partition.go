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


package ingestion

import (
	"context"

	"github.com/poiesic/docchat/storage"
	"github.com/tmc/langchaingo/vectorstores"
)

// Partition is the vector store of one data source.
type Partition struct {
	// Store receives the chunks of newly ingested files.
	Store vectorstores.VectorStore

	// Checkpoints records each successful upsert. Optional.
	Checkpoints storage.CheckpointRepository
}

// PartitionOpener opens the partition of a data source, creating it on
// first use. The pipeline does not close partitions it is given.
type PartitionOpener interface {
	OpenPartition(ctx context.Context, name string) (*Partition, error)
}

// PartitionOpenerFunc adapts a function to PartitionOpener.
type PartitionOpenerFunc func(ctx context.Context, name string) (*Partition, error)

// OpenPartition calls f.
func (f PartitionOpenerFunc) OpenPartition(ctx context.Context, name string) (*Partition, error) {
	return f(ctx, name)
}
