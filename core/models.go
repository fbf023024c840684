package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// It is derived from chunk identity so re-adding the same chunk is an overwrite.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of the chunk at position within the file identified by fp.
func ChunkID(fp Fingerprint, position int) ID {
	return IDFromContent(string(fp) + ":" + strconv.Itoa(position))
}

// Role identifies the author of a chat message.
type Role string

const (
	// RoleHuman marks a message written by the user.
	RoleHuman Role = "human"
	// RoleAI marks a message produced by the assistant.
	RoleAI Role = "ai"
)

// Message is a single entry of a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HumanMessage returns a user message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage returns an assistant message.
func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// Metadata keys attached to documents and chunks.
const (
	MetaSource      = "source"
	MetaFormat      = "format"
	MetaTitle       = "title"
	MetaPosition    = "position"
	MetaOffset      = "offset"
	MetaPages       = "pages"
	MetaSheets      = "sheets"
	MetaFingerprint = "fingerprint"
)

// Document formats recorded under MetaFormat.
const (
	FormatMarkdown    = "markdown"
	FormatText        = "text"
	FormatHTML        = "html"
	FormatPDF         = "pdf"
	FormatSpreadsheet = "xlsx"
)

// Chunk is a bounded, overlapping segment of a document's text.
// It is the unit that gets embedded and stored in a data source's partition.
type Chunk struct {
	Id          ID
	Source      string            // Data source name
	Path        string            // Absolute path of the originating file
	Fingerprint Fingerprint       // Fingerprint of the originating file
	Position    int               // Index of the chunk within its document
	Offset      int               // Rune offset of the chunk within its document
	Content     string
	Metadata    map[string]string // Copied from the parent document
	Vector      []float32         // Embedding vector (populated before upsert)
	InsertedAt  time.Time
}

// Checkpoint records the progress of a long-running processor over a partition.
type Checkpoint struct {
	ProcessorType string
	LastID        ID    // Last chunk handled, for resumable scans
	Count         int64 // Items handled by the processor's last run
	UpdatedAt     time.Time
}

// SearchResult represents a chunk returned by similarity search with its score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
