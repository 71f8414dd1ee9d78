// Package text holds the query-text normalization applied before free text is embedded.
package text

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// punctuation is the ASCII punctuation set: !"#$%&'()*+,-./:;<=>?@[\]^_`{|}~
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// whitespaceRun matches two or more ASCII whitespace characters, including
// vertical tab and the \x1c-\x1f separators.
var whitespaceRun = regexp.MustCompile(`[\t\n\v\f\r \x1c-\x1f]{2,}`)

// Normalize prepares free text for embedding. The steps run in a fixed order:
//  1. drop characters outside ASCII
//  2. replace punctuation with a space
//  3. collapse whitespace runs to one space
//  4. replace newlines with spaces
//  5. insert a space before every uppercase letter
//  6. collapse whitespace again, lowercase, trim
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf {
			return -1
		}
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, s)

	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = splitCapitalized(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ToLower(s)

	return strings.TrimFunc(s, isSpace)
}

// splitCapitalized inserts a space in front of each A-Z so that run-together
// tokens like "GraphNeuralNetworks" come apart.
func splitCapitalized(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r', 0x1c, 0x1d, 0x1e, 0x1f:
		return true
	}
	return false
}
