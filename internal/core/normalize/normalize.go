// Package normalize cleans review text coming off the wire before it is
// windowed and stored. Unlike a matching key, the output keeps the author's
// casing and punctuation: only encoding damage and invisible characters go
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// chains are stateful; pool them so Text is safe for concurrent use
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFC,
			runes.Remove(runes.In(unicode.Cf)), // zero-width joiners, BOMs, bidi marks
		)
	},
}

// Text returns s sanitized, NFC-composed, stripped of format characters and
// trimmed of surrounding whitespace
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = Sanitize(s)

	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}

// Ptr applies Text to an optional string; nil stays nil
func Ptr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	return &v
}

// WordCount counts whitespace separated tokens, the text_length measure
// used by the review tables
func WordCount(s string) int {
	return len(strings.Fields(s))
}
