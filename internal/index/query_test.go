package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestSymbol_OrSemantics(t *testing.T) {
	idx, dir := testIndex(t)
	writeFile(t, dir, "reader.go", "func ReadFile() {}\n")
	writeFile(t, dir, "writer.go", "func WriteFile() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.Symbol("readfile writefile", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both paths matched by OR query, got %+v", results)
	}
}

func TestMultiAnd_RequiresAllTokens(t *testing.T) {
	idx, dir := testIndex(t)
	writeFile(t, dir, "both.go", "func readConfig() { writeConfig() }\n")
	writeFile(t, dir, "onlyread.go", "func readConfig() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.MultiAnd([]string{"readconfig", "writeconfig"}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Path != filepath.Join(dir, "both.go") {
		t.Fatalf("expected only both.go to match, got %+v", results)
	}
}

func TestMultiAnd_UnknownTokenYieldsEmpty(t *testing.T) {
	idx, dir := testIndex(t)
	writeFile(t, dir, "a.go", "func alpha() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.MultiAnd([]string{"alpha", "doesnotexist"}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result for unknown token, got %+v", results)
	}
}

func TestRegexScan_RespectsScanCap(t *testing.T) {
	idx, dir := testIndex(t)
	p1 := writeFile(t, dir, "a.go", "const Foo = 1\n")
	p2 := writeFile(t, dir, "b.go", "const Foo = 2\n")

	matches, truncated, err := idx.RegexScan(context.Background(), []string{p1, p2}, `Foo`, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated {
		t.Error("expected truncated=true when paths exceed scanCap")
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match from the single scanned path, got %+v", matches)
	}
}

func TestRegexScan_BadPattern(t *testing.T) {
	idx, _ := testIndex(t)
	_, _, err := idx.RegexScan(context.Background(), nil, `(unclosed`, 50)
	if !errors.Is(err, ErrBadQuery) {
		t.Errorf("expected ErrBadQuery, got %v", err)
	}
}

func TestRegexScan_SkipsUnreadablePaths(t *testing.T) {
	idx, _ := testIndex(t)
	matches, truncated, err := idx.RegexScan(context.Background(), []string{"/nonexistent/path.go"}, `.`, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if truncated {
		t.Error("unreadable path should not itself cause truncation")
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches from unreadable path, got %+v", matches)
	}
}

func TestNameBoost_ExactPrefixSubstring(t *testing.T) {
	if got := nameBoost("userservice", []string{"userservice"}); got != 3 {
		t.Errorf("expected exact boost 3, got %d", got)
	}
	if got := nameBoost("userservice", []string{"user"}); got != 2 {
		t.Errorf("expected prefix boost 2, got %d", got)
	}
	if got := nameBoost("userservice", []string{"service"}); got != 1 {
		t.Errorf("expected substring boost 1, got %d", got)
	}
	if got := nameBoost("userservice", []string{"zzz"}); got != 0 {
		t.Errorf("expected no boost, got %d", got)
	}
}

func TestAllPaths_ReturnsEverythingIndexed(t *testing.T) {
	idx := New(Config{}, zap.NewNop())
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "b.go", "package b\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(idx.AllPaths()); got != 2 {
		t.Errorf("expected 2 paths, got %d", got)
	}
}
