package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docchat/core"
)

// Key segments. Every key of a partition starts with its namespace so several
// collections could share one database directory.
const (
	chunkSegment      = "chunk"
	checkpointSegment = "chkpt"
)

// makeChunkPrefix returns the prefix shared by every chunk key of namespace.
func makeChunkPrefix(namespace string) []byte {
	return []byte(namespace + ":" + chunkSegment + ":")
}

// makeChunkKey generates the key for a chunk.
// Format: namespace:chunk:id, the ID in BigEndian order so that keys
// iterate in ID order.
func makeChunkKey(namespace string, id core.ID) []byte {
	prefix := makeChunkPrefix(namespace)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// chunkIDFromKey extracts the ID from a chunk key.
func chunkIDFromKey(namespace string, key []byte) (core.ID, bool) {
	prefixLen := len(makeChunkPrefix(namespace))
	if len(key) != prefixLen+8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[prefixLen:])), true
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(namespace, processorType string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", namespace, checkpointSegment, processorType))
}
