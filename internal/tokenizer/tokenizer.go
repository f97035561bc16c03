// Package tokenizer splits file contents and filenames into the identifier
// tokens the Symbol Index keys its postings on.
package tokenizer

import (
	"path/filepath"
	"regexp"
	"strings"
)

var pureDigits = regexp.MustCompile(`^[0-9]+$`)

// Token is one emitted token at a position, case-preserved and lowercased.
type Token struct {
	Raw   string
	Lower string
	Line  int
}

// isWordChar reports whether r is a letter, digit, or underscore — the only
// characters never treated as a splitter.
func isWordChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}

// split breaks s on every non-word character, discarding empty runs.
func split(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if isWordChar(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// keep reports whether a raw token survives the stop-list: length >= 2 and
// not composed entirely of digits.
func keep(raw string) bool {
	if len(raw) < 2 {
		return false
	}
	return !pureDigits.MatchString(raw)
}

// TokenizeContent splits file content line by line into tokens, emitting
// both the raw and lowercased form of every surviving token.
func TokenizeContent(content string) []Token {
	var tokens []Token
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		for _, raw := range split(line) {
			if !keep(raw) {
				continue
			}
			tokens = append(tokens, Token{Raw: raw, Lower: strings.ToLower(raw), Line: i + 1})
		}
	}
	return tokens
}

// TokenizeFilename applies the same splitter to a path's basename, stripped
// of its extension, returning the surviving raw tokens only. Unlike
// TokenizeContent it emits no lowercased form; callers add it themselves.
func TokenizeFilename(path string) []string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var out []string
	for _, raw := range split(stem) {
		if !keep(raw) {
			continue
		}
		out = append(out, raw)
	}
	return out
}
