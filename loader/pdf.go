package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/poiesic/docchat/core"
)

// pdfcpu names extracted content files <base>_Content_page_<n>.txt
var pageFilePattern = regexp.MustCompile(`page_(\d+)`)

// PDFExtractor pulls page text out of PDF files.
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor returns a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Format() string {
	return core.FormatPDF
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp("", "docchat-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract pdf content: %w", err)
	}

	pages, err := readPageStreams(outDir)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, p := range pages {
		text := strings.TrimSpace(contentText(p.stream))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return &Extraction{
		Text:     b.String(),
		Metadata: map[string]any{core.MetaPages: pageCount},
	}, nil
}

type pageStream struct {
	page   int
	stream string
}

// readPageStreams reads the content stream files written by pdfcpu, ordered
// by page number. A page may have several files; they are concatenated.
func readPageStreams(dir string) ([]pageStream, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	byPage := map[int]*strings.Builder{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sb, ok := byPage[page]
		if !ok {
			sb = &strings.Builder{}
			byPage[page] = sb
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}

	pages := make([]pageStream, 0, len(byPage))
	for page, sb := range byPage {
		pages = append(pages, pageStream{page: page, stream: sb.String()})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].page < pages[j].page })
	return pages, nil
}

// contentText collects the strings shown by the text operators (Tj, TJ, ' and ")
// of a PDF content stream. Line moves (Td, TD, T*, ET) become newlines and large
// negative kerning inside TJ arrays becomes a space.
func contentText(stream string) string {
	var (
		out     strings.Builder
		pending strings.Builder
		line    strings.Builder
		inArray bool
	)
	flushLine := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			out.WriteString(s)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	i := 0
	for i < len(stream) {
		c := stream[i]
		switch {
		case c == '(':
			s, n := readLiteral(stream[i:])
			pending.WriteString(s)
			i += n
		case c == '<' && i+1 < len(stream) && stream[i+1] == '<':
			i += 2
		case c == '>' && i+1 < len(stream) && stream[i+1] == '>':
			i += 2
		case c == '<':
			s, n := readHex(stream[i:])
			pending.WriteString(s)
			i += n
		case c == '[':
			inArray = true
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(stream) && stream[i] != '\n' && stream[i] != '\r' {
				i++
			}
		case isSpace(c):
			i++
		default:
			j := i
			for j < len(stream) && !isSpace(stream[j]) && !isDelimiter(stream[j]) {
				j++
			}
			if j == i {
				j++
			}
			tok := stream[i:j]
			i = j

			if inArray {
				if n, err := strconv.ParseFloat(tok, 64); err == nil && n <= -200 {
					pending.WriteByte(' ')
				}
				continue
			}
			switch tok {
			case "Tj", "TJ":
				line.WriteString(pending.String())
			case "'", "\"":
				flushLine()
				line.WriteString(pending.String())
			case "Td", "TD", "T*", "ET":
				flushLine()
			}
			if !isNumeric(tok) {
				pending.Reset()
			}
		}
	}
	flushLine()
	return out.String()
}

// readLiteral decodes a parenthesised string starting at s[0] and returns it
// with the number of bytes consumed.
func readLiteral(s string) (string, int) {
	var b strings.Builder
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '\\':
			i++
			if i >= len(s) {
				return b.String(), i
			}
			e := s[i]
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					j := i
					for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
						j++
					}
					v, _ := strconv.ParseUint(s[i:j], 8, 8)
					b.WriteRune(rune(v))
					i = j
					continue
				}
				b.WriteByte(e)
			}
			i++
		case '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return b.String(), i
			}
			b.WriteByte(c)
		default:
			if c < 0x80 {
				b.WriteByte(c)
			} else {
				b.WriteRune(rune(c))
			}
			i++
		}
	}
	return b.String(), i
}

// readHex decodes a <...> hex string starting at s[0].
func readHex(s string) (string, int) {
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", len(s)
	}
	digits := strings.Map(func(r rune) rune {
		if isSpace(byte(r)) {
			return -1
		}
		return r
	}, s[1:end])
	if len(digits)%2 == 1 {
		digits += "0"
	}
	var b strings.Builder
	for k := 0; k+1 < len(digits); k += 2 {
		v, err := strconv.ParseUint(digits[k:k+2], 16, 8)
		if err != nil {
			return "", end + 1
		}
		if v >= 0x20 {
			b.WriteRune(rune(v))
		}
	}
	return b.String(), end + 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumeric(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}
