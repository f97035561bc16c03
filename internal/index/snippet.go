package index

import (
	"bufio"
	"os"
	"path/filepath"
)

// Has reports whether path is currently indexed, used to keep cached or
// stale candidate lists from ever surfacing a path the index no longer
// knows about.
func (x *Index) Has(path string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.pathTokens[path]
	return ok
}

// Snippet reads the first n lines of path. ok is false if the file cannot
// be read; callers should omit the snippet for that path rather than fail
// the whole response, per spec.md §4.3's "Snippet read I/O error" failure
// mode.
func (x *Index) Snippet(path string, n int) (string, bool) {
	f, err := os.Open(filepath.Clean(path)) //nolint:gosec // project files are trusted input the user asked us to index
	if err != nil {
		return "", false
	}
	defer f.Close()

	var out []byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; i < n && scanner.Scan(); i++ {
		out = append(out, scanner.Bytes()...)
		out = append(out, '\n')
	}
	return string(out), true
}
