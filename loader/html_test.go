package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLExtractor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, path, `<html><head><title> Greeting </title></head>
<body><h1>Hello</h1><p>world &amp; friends</p></body></html>`)

	ext, err := NewHTMLExtractor().Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Greeting", ext.Metadata[core.MetaTitle])
	assert.Contains(t, ext.Text, "Hello")
	assert.Contains(t, ext.Text, "world & friends")
	assert.NotContains(t, ext.Text, "<p>")
}

func TestHTMLExtractor_NoTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.htm")
	writeFile(t, path, `<p>just a paragraph</p>`)

	ext, err := NewHTMLExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	_, hasTitle := ext.Metadata[core.MetaTitle]
	assert.False(t, hasTitle)
	assert.Contains(t, ext.Text, "just a paragraph")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "a & b c", stripTags("<div>a &amp; b</div>\n\n<span>c</span>"))
	assert.Equal(t, "", htmlToText("   "))
}
