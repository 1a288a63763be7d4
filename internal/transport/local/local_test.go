package local

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mediabridge/mediabridge/internal/transport"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "c.jpg"))
	writeFile(t, filepath.Join(dir, "a.png"))
	writeFile(t, filepath.Join(dir, "b.gif"))
	writeFile(t, filepath.Join(dir, "notes.txt"))

	tr := New()
	entries, err := tr.List(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 media entries, got %d", len(entries))
	}
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path }) {
		t.Error("entries not sorted by path")
	}
	for _, e := range entries {
		if e.Kind != transport.KindImage {
			t.Errorf("%s: expected image kind, got %s", e.Path, e.Kind)
		}
		if e.Size == 0 {
			t.Errorf("%s: expected non-zero size", e.Path)
		}
	}
}

func TestListRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.jpg"))
	writeFile(t, filepath.Join(dir, "sub", "nested.mp4"))
	writeFile(t, filepath.Join(dir, "sub", "deeper", "clip.webm"))

	tr := New()

	flat, err := tr.List(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(flat) != 1 {
		t.Errorf("non-recursive list: expected 1 entry, got %d", len(flat))
	}

	deep, err := tr.List(context.Background(), dir, true)
	if err != nil {
		t.Fatalf("recursive List failed: %v", err)
	}
	if len(deep) != 3 {
		t.Errorf("recursive list: expected 3 entries, got %d", len(deep))
	}
	if deep[len(deep)-1].Kind != transport.KindVideo {
		t.Errorf("expected video kind for %s", deep[len(deep)-1].Path)
	}
}

func TestListMissingDir(t *testing.T) {
	tr := New()
	_, err := tr.List(context.Background(), filepath.Join(t.TempDir(), "nope"), false)
	if !transport.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchReturnsOriginalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.jpg")
	writeFile(t, path)

	tr := New()
	got, err := tr.Fetch(context.Background(), path, t.TempDir())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != path {
		t.Errorf("local fetch should return the original path, got %q", got)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.jpg")
	writeFile(t, path)

	tr := New()
	if err := tr.Remove(context.Background(), path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after Remove")
	}

	if err := tr.Remove(context.Background(), path); !transport.IsNotFound(err) {
		t.Errorf("expected NotFoundError on second remove, got %v", err)
	}
}
