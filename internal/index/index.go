// Package index implements the Symbol Index: an inverted index from
// identifier-like tokens to file+line positions, with filename-match
// boosting and three query modes (symbol, multi-AND, working-set regex).
// This is the only package that reads raw project file contents.
package index

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/tokenizer"
)

// Config controls index build behavior.
type Config struct {
	SkipDirs []string
}

// Stats reports index build counters, exposed read-only over HTTP.
type Stats struct {
	PathsIndexed      int           `json:"paths_indexed"`
	TokensIndexed     int           `json:"tokens_indexed"`
	LastBuildDuration time.Duration `json:"last_build_duration_ms"`
	LastBuildAt       time.Time     `json:"last_build_at"`
}

// Index is the inverted index for one project root. All four maps are
// guarded by the index's single mutex: a deliberate simplification for a
// single local project's scale, satisfying "readers see pre- or post-update
// state, never partial" without the bookkeeping a per-path lock map would
// need for its own synchronized creation and eviction.
type Index struct {
	mu   sync.RWMutex
	log  *zap.Logger
	root string
	skip map[string]struct{}

	// token -> path -> line numbers the token occurs on.
	tokenPostings map[string]map[string][]int
	// path -> set of content tokens it holds, for delete-path cleanup.
	pathTokens map[string]map[string]struct{}
	// filename stem token -> set of paths, queried alongside content tokens.
	filenameIndex map[string]map[string]struct{}
	// path -> filename stem tokens it holds, for delete-path cleanup.
	pathStemTokens map[string]map[string]struct{}

	stats Stats
}

// New creates an empty index. Call Build to populate it from disk.
func New(cfg Config, log *zap.Logger) *Index {
	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skip[d] = struct{}{}
	}
	return &Index{
		log:            log,
		skip:           skip,
		tokenPostings:  make(map[string]map[string][]int),
		pathTokens:     make(map[string]map[string]struct{}),
		filenameIndex:  make(map[string]map[string]struct{}),
		pathStemTokens: make(map[string]map[string]struct{}),
	}
}

// Root returns the project root this index was last built against.
func (x *Index) Root() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.root
}

// Stats returns a snapshot of the index's build counters.
func (x *Index) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.stats
}

// Build walks root from scratch, skipping configured vendor/hidden
// directories, and replaces the index contents wholesale. Unreadable files
// are skipped and logged, never fatal.
func (x *Index) Build(ctx context.Context, root string) (Stats, error) {
	start := time.Now()

	tokenPostings := make(map[string]map[string][]int)
	pathTokens := make(map[string]map[string]struct{})
	filenameIndex := make(map[string]map[string]struct{})
	pathStemTokens := make(map[string]map[string]struct{})

	paths := 0
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			x.log.Warn("index build: walk error", zap.String("path", p), zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if _, skip := x.skip[d.Name()]; skip && p != root {
				return filepath.SkipDir
			}
			return nil
		}

		content, err := os.ReadFile(p) //nolint:gosec // project files are trusted input the user asked us to index
		if err != nil {
			x.log.Warn("index build: unreadable file", zap.String("path", p), zap.Error(err))
			return nil
		}

		indexContent(tokenPostings, pathTokens, p, string(content))
		indexFilename(filenameIndex, pathStemTokens, p)
		paths++
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	x.mu.Lock()
	x.root = root
	x.tokenPostings = tokenPostings
	x.pathTokens = pathTokens
	x.filenameIndex = filenameIndex
	x.pathStemTokens = pathStemTokens
	x.stats = Stats{
		PathsIndexed:      paths,
		TokensIndexed:     len(tokenPostings),
		LastBuildDuration: time.Since(start),
		LastBuildAt:       time.Now(),
	}
	stats := x.stats
	x.mu.Unlock()

	return stats, nil
}

// UpdatePath re-indexes a single file: an atomic delete-then-insert under the
// write lock, so a path's postings are never observed half-rewritten. Used
// by the incremental watcher and callable directly for tests.
func (x *Index) UpdatePath(path string) error {
	content, err := os.ReadFile(filepath.Clean(path)) //nolint:gosec // project files are trusted input
	if err != nil {
		if os.IsNotExist(err) {
			return x.DeletePath(path)
		}
		x.log.Warn("index update: unreadable file", zap.String("path", path), zap.Error(err))
		return nil
	}

	newTokens := make(map[string]map[string][]int)
	newPathTokens := make(map[string]map[string]struct{})
	indexContent(newTokens, newPathTokens, path, string(content))

	newFilename := make(map[string]map[string]struct{})
	newPathStems := make(map[string]map[string]struct{})
	indexFilename(newFilename, newPathStems, path)

	x.mu.Lock()
	defer x.mu.Unlock()

	x.removePathLocked(path)

	for token, paths := range newTokens {
		dst := x.tokenPostingsLocked(token)
		for p, lines := range paths {
			dst[p] = lines
		}
	}
	x.pathTokens[path] = newPathTokens[path]

	for stem, paths := range newFilename {
		dst := x.filenameIndexLocked(stem)
		for p := range paths {
			dst[p] = struct{}{}
		}
	}
	x.pathStemTokens[path] = newPathStems[path]

	x.stats.TokensIndexed = len(x.tokenPostings)
	x.stats.PathsIndexed = len(x.pathTokens)
	return nil
}

// DeletePath removes a path's postings and filename-index entries entirely.
func (x *Index) DeletePath(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removePathLocked(path)
	x.stats.TokensIndexed = len(x.tokenPostings)
	x.stats.PathsIndexed = len(x.pathTokens)
	return nil
}

// removePathLocked deletes path's postings from all maps. Callers must hold mu.
func (x *Index) removePathLocked(path string) {
	for token := range x.pathTokens[path] {
		if paths, ok := x.tokenPostings[token]; ok {
			delete(paths, path)
			if len(paths) == 0 {
				delete(x.tokenPostings, token)
			}
		}
	}
	delete(x.pathTokens, path)

	for stem := range x.pathStemTokens[path] {
		if paths, ok := x.filenameIndex[stem]; ok {
			delete(paths, path)
			if len(paths) == 0 {
				delete(x.filenameIndex, stem)
			}
		}
	}
	delete(x.pathStemTokens, path)
}

func (x *Index) tokenPostingsLocked(token string) map[string][]int {
	m, ok := x.tokenPostings[token]
	if !ok {
		m = make(map[string][]int)
		x.tokenPostings[token] = m
	}
	return m
}

func (x *Index) filenameIndexLocked(stem string) map[string]struct{} {
	m, ok := x.filenameIndex[stem]
	if !ok {
		m = make(map[string]struct{})
		x.filenameIndex[stem] = m
	}
	return m
}

// indexContent tokenizes file content line-by-line into tokenPostings and
// pathTokens. Both the raw and lowercase form of each token are indexed, per
// the normative tokenization rule that case-preserved tokens are additionally
// indexed under their lowercased form.
func indexContent(tokenPostings map[string]map[string][]int, pathTokens map[string]map[string]struct{}, path, content string) {
	tokens := make(map[string]struct{})
	lineNumbers := make(map[string][]int)

	for _, tok := range tokenizer.TokenizeContent(content) {
		for _, form := range []string{tok.Raw, tok.Lower} {
			if _, seen := tokens[form]; !seen {
				tokens[form] = struct{}{}
			}
			lineNumbers[form] = appendLineUnique(lineNumbers[form], tok.Line)
		}
	}

	if len(tokens) == 0 {
		return
	}
	pt := make(map[string]struct{}, len(tokens))
	for tok := range tokens {
		paths, ok := tokenPostings[tok]
		if !ok {
			paths = make(map[string][]int)
			tokenPostings[tok] = paths
		}
		paths[path] = lineNumbers[tok]
		pt[tok] = struct{}{}
	}
	pathTokens[path] = pt
}

func appendLineUnique(lines []int, line int) []int {
	for _, l := range lines {
		if l == line {
			return lines
		}
	}
	return append(lines, line)
}

// indexFilename tokenizes the basename (minus extension) of path, the same
// splitter rules as content tokenization, into the filename index.
func indexFilename(filenameIndex map[string]map[string]struct{}, pathStemTokens map[string]map[string]struct{}, path string) {
	stemTokens := tokenizer.TokenizeFilename(path)
	if len(stemTokens) == 0 {
		return
	}
	pt := make(map[string]struct{}, len(stemTokens))
	for _, raw := range stemTokens {
		for _, tok := range []string{raw, strings.ToLower(raw)} {
			paths, ok := filenameIndex[tok]
			if !ok {
				paths = make(map[string]struct{})
				filenameIndex[tok] = paths
			}
			paths[path] = struct{}{}
			pt[tok] = struct{}{}
		}
	}
	pathStemTokens[path] = pt
}

// stem returns the basename of path without its extension, lowercased, for
// name_boost comparisons against query tokens.
func stem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
