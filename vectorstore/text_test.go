package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"quick", "brown", "fox"}, terms("The quick, brown fox!"))
	assert.Empty(t, terms("the a an"))
}

func TestKeywordCoverage(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		want  float32
	}{
		{"all terms", "cat mat", "The cat sat on the mat.", 1},
		{"half the terms", "cat dog", "the cat sat", 0.5},
		{"none", "dog", "the cat sat", 0},
		{"duplicates count once", "cat cat dog", "cat", 0.5},
		{"stop words only", "the of", "the of", 0},
		{"case insensitive", "HELLO", "hello there", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, keywordCoverage(terms(tt.query), tt.text), 1e-6)
		})
	}
}
