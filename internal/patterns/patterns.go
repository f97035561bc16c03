// Package patterns holds the INTENT_PATTERNS table and keyword-extraction
// rules shared, read-only, by every project: the Prediction Engine's
// keyword-to-tag mapping (step 2 of its pipeline) and Intent Capture's tag
// inference both apply the same table, per spec.md §9's decision that
// tokenization and tag-regex rules -- never postings -- may be shared
// across projects.
package patterns

import "regexp"

// Rule is one (regex, tags) entry of INTENT_PATTERNS.
type Rule struct {
	Pattern *regexp.Regexp
	Tags    []string
}

// Table is the normative INTENT_PATTERNS enumeration from spec.md §6,
// applied case-insensitively over the combined text of a prompt plus any
// file paths involved. Entries are independent: every matching entry's tags
// are unioned, never short-circuited.
var Table = []Rule{
	{regexp.MustCompile(`(?i)auth|login|session|oauth|jwt|token|credential`), []string{"#authentication", "#security"}},
	{regexp.MustCompile(`(?i)test[s]?[/_]|_test\.|\bspec[s]?\b`), []string{"#testing"}},
	{regexp.MustCompile(`(?i)config|settings|\.env|environ`), []string{"#configuration"}},
	{regexp.MustCompile(`(?i)api|endpoint|route|handler|middleware`), []string{"#api"}},
	{regexp.MustCompile(`(?i)index|search|query|scorer|ranking`), []string{"#search"}},
	{regexp.MustCompile(`(?i)database|\bdb\b|schema|migration`), []string{"#database"}},
	{regexp.MustCompile(`(?i)log|logger|logging`), []string{"#logging"}},
	{regexp.MustCompile(`(?i)redis|cache|memo`), []string{"#caching"}},
	{regexp.MustCompile(`(?i)docker|compose|supervisor|deploy|ci|cd|pipeline`), []string{"#devops"}},
	{regexp.MustCompile(`(?i)payment|stripe|checkout|billing`), []string{"#payments"}},
	{regexp.MustCompile(`(?i)ml|model|training|inference|embedding`), []string{"#machine-learning"}},
	{regexp.MustCompile(`(?i)ui|react|component|render`), []string{"#ui"}},
}

// ToolTag is the synthetic tag attached for the tool that produced an event.
var ToolTag = map[string]string{
	"Read":   "#reading",
	"Edit":   "#editing",
	"Write":  "#creating",
	"Grep":   "#searching",
	"Glob":   "#searching",
	"Search": "#searching",
	"Bash":   "#running",
}

// MatchTags runs text against every INTENT_PATTERNS rule and returns the
// union of tags from every matching rule, deduplicated.
func MatchTags(text string) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, rule := range Table {
		if !rule.Pattern.MatchString(text) {
			continue
		}
		for _, tag := range rule.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}
