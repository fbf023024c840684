package vectorstore

import (
	"strings"
	"unicode"
)

// stopWords are ignored when matching query terms against chunk text.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"to": {}, "of": {}, "and": {}, "in": {}, "that": {}, "have": {}, "it": {},
	"for": {}, "not": {}, "on": {}, "with": {}, "as": {}, "you": {}, "do": {},
	"at": {}, "this": {}, "but": {}, "by": {}, "from": {}, "what": {}, "how": {},
	"does": {}, "my": {}, "i": {},
}

// terms splits text into lowercase words, dropping punctuation and stop words.
func terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// keywordCoverage returns the fraction of distinct query terms found in text.
// A query made only of stop words has zero coverage.
func keywordCoverage(queryTerms []string, text string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}
	present := make(map[string]struct{})
	for _, w := range terms(text) {
		present[w] = struct{}{}
	}

	seen := make(map[string]struct{}, len(queryTerms))
	found := 0
	for _, q := range queryTerms {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		if _, ok := present[q]; ok {
			found++
		}
	}
	return float32(found) / float32(len(seen))
}
