package ingestion

import (
	"context"
	"os"
	"slices"
	"strings"

	"github.com/poiesic/docchat/core"
)

// Registry enumerates the data sources to ingest.
type Registry interface {
	Sources(ctx context.Context) ([]string, error)
}

// DirectoryRegistry treats every visible subdirectory of Dir as a data source.
type DirectoryRegistry struct {
	Dir string
}

// Sources returns the sorted names of the subdirectories of Dir. Entries
// that are not valid data source names are ignored. A missing Dir is a
// *core.ConfigurationError.
func (r DirectoryRegistry) Sources(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		return nil, &core.ConfigurationError{Path: r.Dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if core.ValidateSourceName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// StaticRegistry is a fixed list of data sources, typically from configuration.
type StaticRegistry []string

// Sources returns the configured names, sorted and without duplicates.
// An invalid name is a *core.ConfigurationError.
func (r StaticRegistry) Sources(ctx context.Context) ([]string, error) {
	names := slices.Clone([]string(r))
	for _, name := range names {
		if err := core.ValidateSourceName(name); err != nil {
			return nil, &core.ConfigurationError{Err: err}
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}
