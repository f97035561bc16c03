package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// stopWords mirrors predict-context.py's STOPWORDS set: common English
// filler words that would otherwise dominate every prompt's keyword set.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"have": {}, "what": {}, "how": {}, "can": {}, "you": {}, "are": {}, "please": {},
	"help": {}, "want": {}, "need": {}, "make": {}, "use": {}, "get": {}, "add": {},
	"fix": {}, "update": {}, "change": {}, "create": {}, "delete": {}, "remove": {},
	"show": {}, "find": {}, "look": {}, "see": {}, "let": {}, "know": {}, "would": {},
	"could": {}, "should": {}, "will": {}, "just": {}, "like": {}, "also": {}, "more": {},
	"some": {}, "any": {}, "all": {}, "new": {}, "now": {}, "about": {}, "into": {},
}

var identifierPattern = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\b`)

// maxKeywords caps the keyword list, as predict-context.py's unique[:10] does.
const maxKeywords = 10

// ExtractKeywords lowercases prompt, extracts identifier-shaped words, drops
// stop words and anything shorter than 3 characters, and dedupes while
// preserving first-seen order, capped at maxKeywords.
func ExtractKeywords(prompt string) []string {
	lower := strings.ToLower(prompt)
	words := identifierPattern.FindAllString(lower, -1)

	seen := make(map[string]struct{})
	var out []string
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) >= maxKeywords {
			break
		}
	}
	return out
}

// Fingerprint computes the stable cache key for a keyword set: the sorted,
// deduplicated keyword list joined by "|", per spec.md §4.3 step 3.
func Fingerprint(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)

	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, k := range sorted {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return strings.Join(out, "|")
}
