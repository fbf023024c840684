package ledger

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docchat/core"
)

// fileSuffix is appended to the data source name to form the ledger file name.
const fileSuffix = "_metadata.json"

// Store loads and saves ledgers under a single metadata directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns a store rooted at dir. The directory is created on the
// first save if it does not exist.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ledger")
	return s
}

// Dir returns the metadata directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the ledger file path for the named data source.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileSuffix)
}

// Load reads the ledger for name. A missing file yields an empty ledger.
// A file that exists but is unreadable or not a JSON object of strings
// yields a *core.StorageError.
func (s *Store) Load(name string) (Ledger, error) {
	if err := core.ValidateSourceName(name); err != nil {
		return nil, err
	}
	path := s.Path(name)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no ledger yet", "source", name, "path", path)
			return New(), nil
		}
		return nil, &core.StorageError{Op: "read ledger", Path: path, Err: err}
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &core.StorageError{Op: "parse ledger", Path: path, Err: err}
	}
	// "null" decodes without error into a nil map
	if raw == nil {
		return nil, &core.StorageError{Op: "parse ledger", Path: path, Err: errors.New("ledger is not a JSON object")}
	}

	l := make(Ledger, len(raw))
	for k, v := range raw {
		l[core.Fingerprint(k)] = v
	}
	s.logger.Debug("ledger loaded", "source", name, "entries", len(l))
	return l, nil
}

// Save atomically replaces the ledger for name with l.
// The JSON is written to a temporary file in the same directory, synced,
// and renamed over the target.
func (s *Store) Save(name string, l Ledger) (err error) {
	if err := core.ValidateSourceName(name); err != nil {
		return err
	}
	path := s.Path(name)
	if l == nil {
		l = New()
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return &core.StorageError{Op: "encode ledger", Path: path, Err: err}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &core.StorageError{Op: "create metadata dir", Path: s.dir, Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+fileSuffix+".*")
	if err != nil {
		return &core.StorageError{Op: "create temp ledger", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return &core.StorageError{Op: "write ledger", Path: tmpName, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return &core.StorageError{Op: "sync ledger", Path: tmpName, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &core.StorageError{Op: "close ledger", Path: tmpName, Err: err}
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return &core.StorageError{Op: "chmod ledger", Path: tmpName, Err: err}
	}
	if err = os.Rename(tmpName, path); err != nil {
		return &core.StorageError{Op: "replace ledger", Path: path, Err: err}
	}

	s.logger.Debug("ledger saved", "source", name, "entries", len(l), "path", path)
	return nil
}

// Remove deletes the ledger for name. Removing a missing ledger is not an error.
func (s *Store) Remove(name string) error {
	if err := core.ValidateSourceName(name); err != nil {
		return err
	}
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &core.StorageError{Op: "remove ledger", Path: path, Err: err}
	}
	return nil
}
