package memory

import (
	"path/filepath"
	"strconv"
)

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// matchGlob reports whether key matches a Redis-style SCAN glob pattern.
// filepath.Match's glob syntax (*, ?, [...]) covers the patterns this
// codebase builds (prefix* and exact matches); it never errors on the
// patterns we construct ourselves, so a malformed pattern is treated as
// no match rather than propagated.
func matchGlob(pattern, key string) bool {
	ok, err := filepath.Match(pattern, key)
	if err != nil {
		return false
	}
	return ok
}
