package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSourceName(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{name: "simple name", source: "notes", wantErr: nil},
		{name: "name with dash and underscore", source: "personal_notion-2", wantErr: nil},
		{name: "empty", source: "", wantErr: ErrInvalidSourceName},
		{name: "forward slash", source: "a/b", wantErr: ErrInvalidSourceName},
		{name: "backslash", source: `a\b`, wantErr: ErrInvalidSourceName},
		{name: "dot", source: ".", wantErr: ErrInvalidSourceName},
		{name: "dot dot", source: "..", wantErr: ErrInvalidSourceName},
		{name: "hidden", source: ".git", wantErr: ErrInvalidSourceName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceName(tt.source)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name:    "valid chunk",
			chunk:   &Chunk{Source: "notes", Content: "hello world"},
			wantErr: nil,
		},
		{
			name:    "valid chunk without vector",
			chunk:   &Chunk{Source: "notes", Content: "hello", Vector: nil},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty content",
			chunk:   &Chunk{Source: "notes"},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "invalid source",
			chunk:   &Chunk{Source: "../x", Content: "hello"},
			wantErr: ErrInvalidSourceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")

	t.Run("configuration", func(t *testing.T) {
		err := error(&ConfigurationError{Path: "/data", Err: cause})
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "/data")
	})

	t.Run("load", func(t *testing.T) {
		err := error(&LoadError{Path: "a.pdf", Err: cause})
		assert.ErrorIs(t, err, ErrLoad)
		assert.ErrorIs(t, err, cause)
		var loadErr *LoadError
		assert.True(t, errors.As(err, &loadErr))
		assert.Equal(t, "a.pdf", loadErr.Path)
	})

	t.Run("storage", func(t *testing.T) {
		err := error(&StorageError{Op: "load", Path: "x.json", Err: cause})
		assert.ErrorIs(t, err, ErrStorage)
		assert.NotErrorIs(t, err, ErrLoad)
	})

	t.Run("upstream", func(t *testing.T) {
		err := error(&UpstreamError{Op: "embed", Err: cause})
		assert.ErrorIs(t, err, ErrUpstream)
		assert.ErrorIs(t, err, cause)
	})
}
