// Package selection tracks the selected subset of the catalog and executes
// the bulk keep/delete operations against the transport and cache engine.
package selection

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mediabridge/mediabridge/internal/catalog"
	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/transport"
)

// Evictor is the slice of the cache engine the manager needs: dropping
// records for entries that left the catalog or were deleted.
type Evictor interface {
	EvictPath(path string)
}

// Observer receives the current selected paths, in catalog order, after
// every selection change.
type Observer func(selected []string)

// Failure is one entry that could not be deleted, with its reason.
type Failure struct {
	Path string
	Err  error
}

// Report is the outcome of a bulk delete. Partial failure is explicit:
// failed entries stay in the catalog and the selection so the user can retry
// or investigate.
type Report struct {
	Succeeded []string
	Failed    []Failure
}

// Err returns the combined per-entry errors, nil when everything succeeded.
func (r Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}

// Manager tracks the selection and keeps catalog, cache, and storage
// consistent through bulk operations.
type Manager struct {
	cat     *catalog.Catalog
	engine  Evictor
	tr      transport.Transport
	mu      sync.Mutex
	members map[string]struct{}

	obsMu     sync.Mutex
	observers []Observer
}

// New creates a Manager over the catalog, cache engine, and transport.
func New(cat *catalog.Catalog, engine Evictor, tr transport.Transport) *Manager {
	return &Manager{
		cat:     cat,
		engine:  engine,
		tr:      tr,
		members: make(map[string]struct{}),
	}
}

// Subscribe registers an observer, invoked synchronously after each
// selection mutation.
func (m *Manager) Subscribe(obs Observer) {
	m.obsMu.Lock()
	m.observers = append(m.observers, obs)
	m.obsMu.Unlock()
}

// Toggle flips the selection state of path. Selecting a path not currently
// in the catalog is a no-op.
func (m *Manager) Toggle(path string) {
	m.mu.Lock()
	if _, ok := m.members[path]; ok {
		delete(m.members, path)
	} else if m.cat.Contains(path) {
		m.members[path] = struct{}{}
	}
	m.mu.Unlock()

	m.notify()
}

// SelectAll selects every catalog entry.
func (m *Manager) SelectAll() {
	entries := m.cat.Entries()

	m.mu.Lock()
	m.members = make(map[string]struct{}, len(entries))
	for _, e := range entries {
		m.members[e.Path] = struct{}{}
	}
	m.mu.Unlock()

	m.notify()
}

// Clear empties the selection.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.members = make(map[string]struct{})
	m.mu.Unlock()

	m.notify()
}

// Selected returns the selected paths in catalog order.
func (m *Manager) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedLocked()
}

func (m *Manager) selectedLocked() []string {
	var out []string
	for _, e := range m.cat.Entries() {
		if _, ok := m.members[e.Path]; ok {
			out = append(out, e.Path)
		}
	}
	return out
}

// Count returns the selection size.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members)
}

// Drop removes paths from the selection without touching the catalog. The
// catalog's OnReplace hook, keeping the invariant that every selected path
// exists in the catalog.
func (m *Manager) Drop(paths []string) {
	m.mu.Lock()
	changed := false
	for _, p := range paths {
		if _, ok := m.members[p]; ok {
			delete(m.members, p)
			changed = true
		}
	}
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// KeepSelected narrows the catalog to the selected entries and clears the
// selection. Cache records for the dropped entries are evicted through the
// catalog's OnReplace hook; storage is never touched. A second call with
// the selection unchanged leaves the catalog as-is.
func (m *Manager) KeepSelected() {
	m.mu.Lock()
	if len(m.members) == 0 {
		m.mu.Unlock()
		return
	}
	keep := make(map[string]struct{}, len(m.members))
	for p := range m.members {
		keep[p] = struct{}{}
	}
	m.members = make(map[string]struct{})
	m.mu.Unlock()

	m.cat.Retain(keep)
	m.notify()
}

// DeleteSelected removes every selected entry from storage via the
// transport. Successes leave the catalog, the selection, and the cache;
// failures stay behind, collected per entry in the report.
func (m *Manager) DeleteSelected(ctx context.Context) Report {
	m.mu.Lock()
	targets := m.selectedLocked()
	m.mu.Unlock()

	var report Report
	for _, path := range targets {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			continue
		}
		if err := m.tr.Remove(ctx, path); err != nil {
			logging.Warn("delete failed",
				zap.String("path", path),
				zap.Error(err))
			report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			continue
		}

		report.Succeeded = append(report.Succeeded, path)
		m.mu.Lock()
		delete(m.members, path)
		m.mu.Unlock()
		m.cat.Remove(path)
		m.engine.EvictPath(path)
	}

	logging.Info("bulk delete finished",
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)))
	m.notify()
	return report
}

func (m *Manager) notify() {
	selected := m.Selected()

	m.obsMu.Lock()
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.obsMu.Unlock()

	for _, obs := range observers {
		obs(selected)
	}
}
