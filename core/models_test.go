package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("same content produces same ID", func(t *testing.T) {
		assert.Equal(t, IDFromContent("hello"), IDFromContent("hello"))
	})

	t.Run("different content produces different ID", func(t *testing.T) {
		assert.NotEqual(t, IDFromContent("hello"), IDFromContent("world"))
	})
}

func TestChunkID(t *testing.T) {
	fp := HashBytes([]byte("hello world"))
	assert.Equal(t, ChunkID(fp, 0), ChunkID(fp, 0))
	assert.NotEqual(t, ChunkID(fp, 0), ChunkID(fp, 1))
	assert.NotEqual(t, ChunkID(fp, 0), ChunkID(HashBytes([]byte("hello world!")), 0))
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("matches in-memory hash", func(t *testing.T) {
		path := filepath.Join(dir, "a.md")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

		fp, err := HashFile(path)
		require.NoError(t, err)
		assert.Equal(t, HashBytes([]byte("hello world")), fp)
		assert.True(t, fp.Valid())
		assert.Len(t, fp.String(), 32)
	})

	t.Run("path does not affect fingerprint", func(t *testing.T) {
		a := filepath.Join(dir, "one.txt")
		b := filepath.Join(dir, "two.txt")
		require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0644))
		require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0644))

		fa, err := HashFile(a)
		require.NoError(t, err)
		fb, err := HashFile(b)
		require.NoError(t, err)
		assert.Equal(t, fa, fb)
	})

	t.Run("single byte change alters fingerprint", func(t *testing.T) {
		path := filepath.Join(dir, "b.md")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))
		before, err := HashFile(path)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("hello worle"), 0644))
		after, err := HashFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("large file is hashed completely", func(t *testing.T) {
		data := make([]byte, 3<<20)
		path := filepath.Join(dir, "big.txt")
		require.NoError(t, os.WriteFile(path, data, 0644))
		before, err := HashFile(path)
		require.NoError(t, err)

		data[len(data)-1] = 1
		require.NoError(t, os.WriteFile(path, data, 0644))
		after, err := HashFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, before, after)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := HashFile(filepath.Join(dir, "missing"))
		assert.Error(t, err)
	})
}

func TestFingerprint_Valid(t *testing.T) {
	assert.False(t, Fingerprint("").Valid())
	assert.False(t, Fingerprint("zz").Valid())
	assert.False(t, Fingerprint("0123456789abcdef0123456789abcdeg").Valid())
	assert.True(t, Fingerprint("0123456789abcdef0123456789abcdef").Valid())
}
