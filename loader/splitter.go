package loader

import (
	"errors"
	"fmt"
	"maps"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/schema"
)

const (
	// DefaultChunkSize is the maximum number of characters in a chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 100
)

// ErrInvalidSplitter is returned by NewSplitter for unusable settings.
var ErrInvalidSplitter = errors.New("invalid splitter settings")

// Splitter cuts documents into fixed windows of runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// DefaultSplitter returns a splitter with DefaultChunkSize and DefaultChunkOverlap.
func DefaultSplitter() Splitter {
	return Splitter{ChunkSize: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// NewSplitter validates the settings. size must be positive and overlap must
// be in [0, size).
func NewSplitter(size, overlap int) (Splitter, error) {
	if size <= 0 {
		return Splitter{}, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidSplitter, size)
	}
	if overlap < 0 || overlap >= size {
		return Splitter{}, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidSplitter, overlap, size)
	}
	return Splitter{ChunkSize: size, Overlap: overlap}, nil
}

// Span locates a chunk inside its document text.
type Span struct {
	Offset int // rune offset of the first character
	Text   string
}

// SplitText returns the windows of text. Window starts advance by
// ChunkSize-Overlap; the final window may be shorter. Text no longer than
// ChunkSize yields a single window equal to the text, empty text yields none.
func (s Splitter) SplitText(text string) []Span {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []Span{{Offset: 0, Text: text}}
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}
	spans := make([]Span, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		spans = append(spans, Span{Offset: start, Text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return spans
}

// Split chunks every document. Each chunk carries a copy of its document's
// metadata plus its position within the document and its rune offset.
func (s Splitter) Split(docs []schema.Document) []schema.Document {
	var out []schema.Document
	for _, doc := range docs {
		for i, span := range s.SplitText(doc.PageContent) {
			meta := make(map[string]any, len(doc.Metadata)+2)
			maps.Copy(meta, doc.Metadata)
			meta[core.MetaPosition] = i
			meta[core.MetaOffset] = span.Offset
			out = append(out, schema.Document{PageContent: span.Text, Metadata: meta})
		}
	}
	return out
}
