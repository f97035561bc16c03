package index

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// nameBoostWeight (alpha in the scoring formula) is chosen large enough that
// an exact filename match (name_boost=3) always outranks a non-filename
// match of any density the tokenizer can produce in practice (density is a
// sum of per-token fractions each <=1, bounded in turn by the number of
// tokens in a query, which query callers keep small).
const nameBoostWeight = 1000.0

// Result is one ranked symbol/multi-AND match.
type Result struct {
	Path  string  `json:"path"`
	Line  int     `json:"line"`
	Score float64 `json:"score"`
}

// Symbol performs a single-token or multi-token OR query: any path
// containing at least one of the whitespace-separated query terms is a
// candidate, ranked by posting density plus filename boost.
func (x *Index) Symbol(q string, limit int) ([]Result, error) {
	terms := queryTerms(q)
	if len(terms) == 0 {
		return nil, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	candidates := make(map[string]struct{})
	for _, t := range terms {
		for p := range x.tokenPostings[t] {
			candidates[p] = struct{}{}
		}
		for p := range x.filenameIndex[t] {
			candidates[p] = struct{}{}
		}
	}
	return x.rankLocked(candidates, terms, limit), nil
}

// MultiAnd returns paths containing every given token, ranked the same way
// as Symbol. A token with no postings at all yields an empty intersection,
// not an error.
func (x *Index) MultiAnd(tokens []string, limit int) ([]Result, error) {
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var candidates map[string]struct{}
	for i, t := range terms {
		paths := x.tokenPostings[t]
		if i == 0 {
			candidates = make(map[string]struct{}, len(paths))
			for p := range paths {
				candidates[p] = struct{}{}
			}
			continue
		}
		for p := range candidates {
			if _, ok := paths[p]; !ok {
				delete(candidates, p)
			}
		}
	}
	return x.rankLocked(candidates, terms, limit), nil
}

// rankLocked scores and orders candidates. Callers must hold at least a read
// lock.
func (x *Index) rankLocked(candidates map[string]struct{}, terms []string, limit int) []Result {
	if len(candidates) == 0 {
		return nil
	}

	tokenTotals := make(map[string]int, len(terms))
	for _, t := range terms {
		total := 0
		for _, lines := range x.tokenPostings[t] {
			total += len(lines)
		}
		tokenTotals[t] = total
	}

	out := make([]Result, 0, len(candidates))
	for p := range candidates {
		var density float64
		bestLine := -1
		for _, t := range terms {
			lines := x.tokenPostings[t][p]
			count := len(lines)
			if count == 0 {
				continue
			}
			if total := tokenTotals[t]; total > 0 {
				density += float64(count) / float64(total)
			}
			for _, l := range lines {
				if bestLine == -1 || l < bestLine {
					bestLine = l
				}
			}
		}
		if bestLine == -1 {
			bestLine = 0
		}

		boost := nameBoost(stem(p), terms)
		score := density + nameBoostWeight*float64(boost)
		out = append(out, Result{Path: p, Line: bestLine, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if len(out[i].Path) != len(out[j].Path) {
			return len(out[i].Path) < len(out[j].Path)
		}
		return out[i].Path < out[j].Path
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// nameBoost is the highest boost level (3 exact, 2 prefix, 1 substring, 0
// none) any query term achieves against path's filename stem.
func nameBoost(pathStem string, terms []string) int {
	best := 0
	for _, t := range terms {
		switch {
		case t == pathStem:
			return 3
		case strings.HasPrefix(pathStem, t):
			if best < 2 {
				best = 2
			}
		case strings.Contains(pathStem, t):
			if best < 1 {
				best = 1
			}
		}
	}
	return best
}

func queryTerms(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// Match is one regex hit within the working set.
type Match struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Match string `json:"match"`
}

// RegexScan runs pattern over the given candidate paths (the bounded working
// set, or the full index when the caller explicitly opts into a full scan),
// stopping at scanCap paths or when ctx is done, whichever comes first. It
// never scans the whole repository implicitly.
func (x *Index) RegexScan(ctx context.Context, paths []string, pattern string, scanCap int) ([]Match, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrBadQuery, err)
	}

	truncated := false
	scanPaths := paths
	if scanCap > 0 && len(scanPaths) > scanCap {
		scanPaths = scanPaths[:scanCap]
		truncated = true
	}

	var matches []Match
	for _, p := range scanPaths {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		found, err := scanFileForMatches(p, re)
		if err != nil {
			x.log.Warn("regex scan: unreadable file", zap.String("path", p), zap.Error(err))
			continue
		}
		matches = append(matches, found...)
	}
	return matches, truncated, nil
}

// AllPaths returns every indexed path, for an explicit "full_scan" request.
func (x *Index) AllPaths() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.pathTokens))
	for p := range x.pathTokens {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func scanFileForMatches(path string, re *regexp.Regexp) ([]Match, error) {
	f, err := os.Open(path) //nolint:gosec // project files are trusted input the user asked us to index
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if m := re.FindString(text); m != "" {
			out = append(out, Match{Path: path, Line: line, Match: m})
		}
	}
	return out, scanner.Err()
}
