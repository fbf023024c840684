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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docchat/core"
)

// Record format versions. The first value of every record is its version.
const (
	chunkVersion      uint64 = 1
	checkpointVersion uint64 = 1
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	n := varint.Uint64.Size(chunkVersion)
	buf := make([]byte, n+core.ChunkMUS.Size(*chunk))
	varint.Uint64.Marshal(chunkVersion, buf)
	core.ChunkMUS.Marshal(*chunk, buf[n:])
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	n, err := readVersion(data, chunkVersion, "chunk")
	if err != nil {
		return nil, err
	}
	chunk, _, err := core.ChunkMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if len(chunk.Metadata) == 0 {
		chunk.Metadata = nil
	}
	if len(chunk.Vector) == 0 {
		chunk.Vector = nil
	}
	chunk.InsertedAt = utc(chunk.InsertedAt)
	return &chunk, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	n := varint.Uint64.Size(checkpointVersion)
	buf := make([]byte, n+core.CheckpointMUS.Size(*checkpoint))
	varint.Uint64.Marshal(checkpointVersion, buf)
	core.CheckpointMUS.Marshal(*checkpoint, buf[n:])
	return buf
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	n, err := readVersion(data, checkpointVersion, "checkpoint")
	if err != nil {
		return nil, err
	}
	checkpoint, _, err := core.CheckpointMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	checkpoint.UpdatedAt = utc(checkpoint.UpdatedAt)
	return &checkpoint, nil
}

func readVersion(data []byte, want uint64, kind string) (int, error) {
	v, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if v != want {
		return 0, fmt.Errorf("%w: %s version %d", ErrUnsupportedVersion, kind, v)
	}
	return n, nil
}

// utc keeps the zero time zero; decoded timestamps come back in local time.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
