package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func testIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Config{SkipDirs: []string{".git", "vendor"}}, zap.NewNop()), dir
}

func TestBuild_IndexesTokensAndFilename(t *testing.T) {
	idx, dir := testIndex(t)
	writeFile(t, dir, "userservice.go", "func UserService() {}\nvar userCount int\n")
	writeFile(t, dir, "vendor/ignored.go", "func Ignored() {}\n")

	stats, err := idx.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PathsIndexed != 1 {
		t.Errorf("expected 1 path indexed (vendor skipped), got %d", stats.PathsIndexed)
	}

	results, err := idx.Symbol("userservice", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	if results[0].Score <= nameBoostWeight*3-1 {
		t.Errorf("expected exact filename-stem match to dominate score, got %v", results[0].Score)
	}
}

func TestUpdatePath_ReplacesPostingsAtomically(t *testing.T) {
	idx, dir := testIndex(t)
	path := writeFile(t, dir, "a.go", "func alpha() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeFile(t, dir, "a.go", "func beta() {}\n")
	if err := idx.UpdatePath(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := idx.Symbol("alpha", 10)
	if len(results) != 0 {
		t.Errorf("expected old token removed, got %+v", results)
	}
	results, _ = idx.Symbol("beta", 10)
	if len(results) != 1 {
		t.Errorf("expected new token indexed, got %+v", results)
	}
}

func TestDeletePath_RemovesAllPostings(t *testing.T) {
	idx, dir := testIndex(t)
	path := writeFile(t, dir, "a.go", "func alpha() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := idx.DeletePath(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := idx.Stats().PathsIndexed; got != 0 {
		t.Errorf("expected 0 paths after delete, got %d", got)
	}
	results, _ := idx.Symbol("alpha", 10)
	if len(results) != 0 {
		t.Errorf("expected no results after delete, got %+v", results)
	}
}

func TestUpdatePath_MissingFileDeletes(t *testing.T) {
	idx, dir := testIndex(t)
	path := writeFile(t, dir, "a.go", "func alpha() {}\n")
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := idx.UpdatePath(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := idx.Stats().PathsIndexed; got != 0 {
		t.Errorf("expected path removed from stats, got %d", got)
	}
}
