package loader

import (
	"context"
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docchat/core"
)

// ErrInvalidText indicates a text file is not valid UTF-8.
var ErrInvalidText = errors.New("file is not valid UTF-8 text")

// Extraction is the text and format-specific metadata pulled out of one file.
type Extraction struct {
	Text     string
	Metadata map[string]any
}

// Extractor pulls plain text out of a file of one format.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Format names the format, stored in document metadata.
	Format() string

	// Extract reads the file at path.
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// TextExtractor reads markdown and plain-text files verbatim.
type TextExtractor struct {
	format string
}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor returns an extractor that tags its documents with format.
func NewTextExtractor(format string) *TextExtractor {
	return &TextExtractor{format: format}
}

func (e *TextExtractor) Format() string {
	return e.format
}

func (e *TextExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, ErrInvalidText
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")
	return &Extraction{Text: text, Metadata: map[string]any{}}, nil
}

// defaultExtractors returns the extractor set keyed by lowercase extension.
func defaultExtractors(spreadsheetKey string) map[string]Extractor {
	html := NewHTMLExtractor()
	return map[string]Extractor{
		".md":   NewTextExtractor(core.FormatMarkdown),
		".txt":  NewTextExtractor(core.FormatText),
		".html": html,
		".htm":  html,
		".pdf":  NewPDFExtractor(),
		".xlsx": NewSpreadsheetExtractor(spreadsheetKey),
	}
}
