package selection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mediabridge/mediabridge/internal/catalog"
	"github.com/mediabridge/mediabridge/internal/transport"
)

// stubTransport lists a fixed entry set and fails removes on demand.
type stubTransport struct {
	mu       sync.Mutex
	paths    []string
	failures map[string]error
	removed  []string
}

func (s *stubTransport) List(context.Context, string, bool) ([]transport.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.Entry, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, transport.Entry{Path: p, Kind: transport.KindOf(p), Size: 1})
	}
	return out, nil
}

func (s *stubTransport) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failures[path]; ok {
		return err
	}
	s.removed = append(s.removed, path)
	return nil
}

func (s *stubTransport) Fetch(_ context.Context, path, _ string) (string, error) { return path, nil }
func (s *stubTransport) Push(context.Context, string, string) error              { return nil }
func (s *stubTransport) Reachable(context.Context) bool                          { return true }
func (s *stubTransport) Remote() bool                                            { return true }
func (s *stubTransport) Close() error                                            { return nil }

// stubEvictor records evicted paths.
type stubEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (e *stubEvictor) EvictPath(path string) {
	e.mu.Lock()
	e.evicted = append(e.evicted, path)
	e.mu.Unlock()
}

func newTestManager(t *testing.T, paths ...string) (*Manager, *catalog.Catalog, *stubTransport, *stubEvictor) {
	t.Helper()
	tr := &stubTransport{paths: paths, failures: make(map[string]error)}
	cat := catalog.New(tr)
	ev := &stubEvictor{}
	m := New(cat, ev, tr)
	cat.OnReplace = func(removed []string) {
		for _, p := range removed {
			ev.EvictPath(p)
		}
		m.Drop(removed)
	}
	if err := cat.Load(context.Background(), "/", false); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return m, cat, tr, ev
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToggle(t *testing.T) {
	m, _, _, _ := newTestManager(t, "/a.jpg", "/b.jpg")

	m.Toggle("/a.jpg")
	if got := m.Selected(); !equal(got, []string{"/a.jpg"}) {
		t.Errorf("selected = %v", got)
	}

	m.Toggle("/a.jpg")
	if m.Count() != 0 {
		t.Errorf("count = %d after toggle off", m.Count())
	}

	// Paths outside the catalog cannot be selected.
	m.Toggle("/stranger.jpg")
	if m.Count() != 0 {
		t.Errorf("count = %d after toggling unknown path", m.Count())
	}
}

func TestSelectedFollowsCatalogOrder(t *testing.T) {
	m, _, _, _ := newTestManager(t, "/a.jpg", "/b.jpg", "/c.jpg")

	m.Toggle("/c.jpg")
	m.Toggle("/a.jpg")

	if got := m.Selected(); !equal(got, []string{"/a.jpg", "/c.jpg"}) {
		t.Errorf("selected = %v, want catalog order", got)
	}
}

func TestSelectAllAndClear(t *testing.T) {
	m, _, _, _ := newTestManager(t, "/a.jpg", "/b.jpg", "/c.jpg")

	m.SelectAll()
	if m.Count() != 3 {
		t.Errorf("count = %d after select all", m.Count())
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("count = %d after clear", m.Count())
	}
}

func TestObserverNotifications(t *testing.T) {
	m, _, _, _ := newTestManager(t, "/a.jpg", "/b.jpg")

	var calls [][]string
	m.Subscribe(func(selected []string) {
		calls = append(calls, selected)
	})

	m.Toggle("/a.jpg")
	m.SelectAll()
	m.Clear()

	if len(calls) != 3 {
		t.Fatalf("observer called %d times, want 3", len(calls))
	}
	if !equal(calls[0], []string{"/a.jpg"}) {
		t.Errorf("first notification = %v", calls[0])
	}
	if !equal(calls[1], []string{"/a.jpg", "/b.jpg"}) {
		t.Errorf("second notification = %v", calls[1])
	}
	if len(calls[2]) != 0 {
		t.Errorf("third notification = %v, want empty", calls[2])
	}
}

func TestKeepSelected(t *testing.T) {
	m, cat, _, ev := newTestManager(t, "/a.jpg", "/b.jpg", "/c.jpg")

	m.Toggle("/b.jpg")
	m.KeepSelected()

	if cat.Len() != 1 || !cat.Contains("/b.jpg") {
		t.Errorf("catalog kept %d entries, want only /b.jpg", cat.Len())
	}
	if m.Count() != 0 {
		t.Errorf("selection not cleared, count = %d", m.Count())
	}
	if len(ev.evicted) != 2 {
		t.Errorf("evicted %v, want the 2 dropped entries", ev.evicted)
	}

	// With nothing selected the catalog stays intact.
	m.KeepSelected()
	if cat.Len() != 1 {
		t.Errorf("empty keep changed the catalog, len = %d", cat.Len())
	}
}

func TestDeleteSelected(t *testing.T) {
	m, cat, tr, ev := newTestManager(t, "/a.jpg", "/b.jpg", "/c.jpg")
	boom := errors.New("permission denied")
	tr.failures["/b.jpg"] = boom

	m.SelectAll()
	report := m.DeleteSelected(context.Background())

	if !equal(report.Succeeded, []string{"/a.jpg", "/c.jpg"}) {
		t.Errorf("succeeded = %v", report.Succeeded)
	}
	if len(report.Failed) != 1 || report.Failed[0].Path != "/b.jpg" {
		t.Fatalf("failed = %+v", report.Failed)
	}
	if !errors.Is(report.Err(), boom) {
		t.Errorf("report error %v does not wrap the remove failure", report.Err())
	}

	// Failures stay in the catalog and the selection for a retry.
	if !cat.Contains("/b.jpg") {
		t.Error("failed entry left the catalog")
	}
	if got := m.Selected(); !equal(got, []string{"/b.jpg"}) {
		t.Errorf("selection after delete = %v", got)
	}

	// Successes are gone everywhere.
	if cat.Contains("/a.jpg") || cat.Contains("/c.jpg") {
		t.Error("deleted entries still in catalog")
	}
	// Eviction happens directly and again via the OnReplace hook; both are
	// idempotent, so only coverage matters.
	for _, p := range []string{"/a.jpg", "/c.jpg"} {
		found := false
		for _, e := range ev.evicted {
			if e == p {
				found = true
			}
		}
		if !found {
			t.Errorf("deleted entry %s never evicted", p)
		}
	}
	if !equal(tr.removed, []string{"/a.jpg", "/c.jpg"}) {
		t.Errorf("storage removes = %v", tr.removed)
	}
}

func TestDeleteSelectedCancelled(t *testing.T) {
	m, cat, _, _ := newTestManager(t, "/a.jpg", "/b.jpg")
	m.SelectAll()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := m.DeleteSelected(ctx)
	if len(report.Succeeded) != 0 {
		t.Errorf("succeeded = %v under cancelled context", report.Succeeded)
	}
	if len(report.Failed) != 2 {
		t.Errorf("failed = %+v, want both entries", report.Failed)
	}
	if cat.Len() != 2 {
		t.Errorf("catalog shrank to %d under cancelled context", cat.Len())
	}
}
