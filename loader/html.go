package loader

import (
	"bytes"
	"context"
	"os"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/docchat/core"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
	entities     = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// HTMLExtractor converts HTML pages to markdown text.
type HTMLExtractor struct{}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor returns an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

func (e *HTMLExtractor) Format() string {
	return core.FormatHTML
}

func (e *HTMLExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta[core.MetaTitle] = title
	}

	return &Extraction{Text: htmlToText(string(data)), Metadata: meta}, nil
}

// htmlToText converts html to markdown, falling back to tag stripping when
// conversion fails or yields nothing.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(html)
	if err != nil || strings.TrimSpace(converted) == "" {
		return stripTags(html)
	}
	return converted
}

func stripTags(html string) string {
	stripped := tagPattern.ReplaceAllString(html, " ")
	cleaned := spacePattern.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(entities.Replace(cleaned))
}
