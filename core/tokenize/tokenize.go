// Package tokenize splits raw source text into tokens.
//
// The splitter is deliberately simple: input is expected to be tokenized
// upstream, so runs of whitespace are the only separators.
package tokenize

import "strings"

// Tokenize splits text on whitespace. It never fails; empty or
// whitespace-only text yields an empty slice.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	if fields == nil {
		return []string{}
	}
	return fields
}

// punctuation is the set of tokens that trigger monotone reordering walls.
var punctuation = map[string]bool{
	",":  true,
	".":  true,
	"!":  true,
	"?":  true,
	":":  true,
	";":  true,
	"\"": true,
}

// IsPunctuation reports whether tok is a sentence-internal punctuation
// token for the purpose of monotone-at-punctuation walls.
func IsPunctuation(tok string) bool {
	return punctuation[tok]
}
