package loader

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/schema"
)

// Result is the outcome of loading a directory.
type Result struct {
	// Documents are sorted by source path.
	Documents []schema.Document
	// Warnings holds one entry per matched file that could not be extracted.
	Warnings []*core.LoadError
}

// Loader walks a directory tree and extracts the supported files.
type Loader struct {
	extractors     map[string]Extractor
	spreadsheetKey string
	logger         *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// WithSpreadsheetLicenseKey sets the unioffice metered license key used for .xlsx files.
func WithSpreadsheetLicenseKey(key string) Option {
	return func(l *Loader) error {
		l.spreadsheetKey = key
		return nil
	}
}

// WithExtractor registers e for the given extension, replacing any default.
// The extension must include the leading dot and is matched case-insensitively.
func WithExtractor(ext string, e Extractor) Option {
	return func(l *Loader) error {
		if !strings.HasPrefix(ext, ".") || e == nil {
			return ErrInvalidExtractor
		}
		l.extractors[strings.ToLower(ext)] = e
		return nil
	}
}

// ErrInvalidExtractor is returned by WithExtractor for a malformed registration.
var ErrInvalidExtractor = errors.New("extractor requires a dotted extension and a non-nil implementation")

// New creates a loader with the default extractor for every supported format.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		extractors: map[string]Extractor{},
		logger:     slog.Default(),
	}
	// Defaults are built after options so they see the license key;
	// explicit registrations still win.
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	defaults := defaultExtractors(l.spreadsheetKey)
	maps.Copy(defaults, l.extractors)
	l.extractors = defaults
	l.logger = l.logger.With("component", "loader")
	return l, nil
}

// Supports reports whether files with the extension of path are loaded.
func (l *Loader) Supports(path string) bool {
	_, ok := l.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load extracts every supported file below dir. Hidden files and directories
// are skipped. A missing dir yields a *core.ConfigurationError; per-file
// failures are collected in Result.Warnings.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, &core.ConfigurationError{Path: dir, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &core.ConfigurationError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &core.ConfigurationError{Path: root, Err: errors.New("not a directory")}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			l.logger.Warn("skipping unreadable entry", "path", path, "err", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if l.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &core.ConfigurationError{Path: root, Err: err}
	}
	sort.Strings(paths)

	result := &Result{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := l.LoadFile(ctx, path)
		if err != nil {
			var loadErr *core.LoadError
			if !errors.As(err, &loadErr) {
				return nil, err
			}
			l.logger.Warn("failed to load file", "path", path, "err", loadErr.Err)
			result.Warnings = append(result.Warnings, loadErr)
			continue
		}
		result.Documents = append(result.Documents, doc)
	}

	l.logger.Debug("directory loaded", "dir", root,
		"documents", len(result.Documents), "warnings", len(result.Warnings))
	return result, nil
}

// LoadFile extracts a single file. path should be absolute; it is recorded as
// the document's source. Extraction failures are returned as *core.LoadError.
func (l *Loader) LoadFile(ctx context.Context, path string) (schema.Document, error) {
	e, ok := l.extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return schema.Document{}, &core.LoadError{Path: path, Err: errors.New("unsupported file type")}
	}

	extraction, err := e.Extract(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return schema.Document{}, ctxErr
		}
		return schema.Document{}, &core.LoadError{Path: path, Err: err}
	}

	meta := make(map[string]any, len(extraction.Metadata)+2)
	maps.Copy(meta, extraction.Metadata)
	meta[core.MetaSource] = path
	meta[core.MetaFormat] = e.Format()

	return schema.Document{PageContent: extraction.Text, Metadata: meta}, nil
}
