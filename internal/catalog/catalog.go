// Package catalog holds the enumerated set of media entries for the
// currently loaded directory. The catalog owns its entries; the cache engine
// and selection manager reference them by path.
package catalog

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/mediabridge/mediabridge/internal/transport"
)

// Entry is one media file known to the catalog. Immutable once discovered;
// a directory reload replaces the whole set.
type Entry struct {
	Path    string
	Kind    transport.Kind
	Size    int64
	ModTime time.Time
	Remote  bool
}

// Catalog is the entry set for one browsing session.
type Catalog struct {
	tr transport.Transport

	// OnReplace, when set, receives the paths dropped by a reload, Retain,
	// or Remove so the cache engine can evict their records. Set before the
	// first Load; invoked synchronously after the catalog mutation.
	OnReplace func(removed []string)

	loadMu sync.Mutex    // serializes listings
	reqGen atomic.Uint64 // coalesces queued reloads, latest wins

	mu      sync.RWMutex
	entries []Entry
	byPath  map[string]Entry
}

// New creates an empty catalog over the given transport.
func New(tr transport.Transport) *Catalog {
	return &Catalog{tr: tr, byPath: make(map[string]Entry)}
}

// Load replaces the entire catalog with a fresh listing of root, sorted by
// path. Concurrent loads are serialized; a load that was superseded by a
// newer request before it could start is skipped entirely, so only the
// latest of a burst of reloads performs a listing.
func (c *Catalog) Load(ctx context.Context, root string, recursive bool) error {
	gen := c.reqGen.Add(1)

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if c.reqGen.Load() != gen {
		// A newer reload is already queued behind us; let it win.
		return nil
	}

	listed, err := c.tr.List(ctx, root, recursive)
	if err != nil {
		return err
	}

	remote := c.tr.Remote()
	entries := make([]Entry, 0, len(listed))
	for _, e := range listed {
		entries = append(entries, Entry{
			Path:    e.Path,
			Kind:    e.Kind,
			Size:    e.Size,
			ModTime: e.ModTime,
			Remote:  remote,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	c.replace(entries)

	logging.Info("catalog loaded",
		zap.String("root", root),
		zap.Bool("recursive", recursive),
		zap.Int("entries", len(entries)))
	return nil
}

func (c *Catalog) replace(entries []Entry) {
	byPath := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	c.mu.Lock()
	var removed []string
	for _, old := range c.entries {
		if _, ok := byPath[old.Path]; !ok {
			removed = append(removed, old.Path)
		}
	}
	c.entries = entries
	c.byPath = byPath
	c.mu.Unlock()

	metrics.SetCatalogSize(len(entries))
	if c.OnReplace != nil && len(removed) > 0 {
		c.OnReplace(removed)
	}
}

// Entries returns a copy of the catalog in path order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get returns the entry for path.
func (c *Catalog) Get(path string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byPath[path]
	return e, ok
}

// Contains reports whether path is currently in the catalog.
func (c *Catalog) Contains(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byPath[path]
	return ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Retain narrows the catalog to the paths in keep, reporting what was
// dropped through OnReplace. Used by the keep-selected flow; storage is
// never touched.
func (c *Catalog) Retain(keep map[string]struct{}) {
	c.mu.RLock()
	retained := make([]Entry, 0, len(keep))
	for _, e := range c.entries {
		if _, ok := keep[e.Path]; ok {
			retained = append(retained, e)
		}
	}
	c.mu.RUnlock()

	c.replace(retained)
}

// Remove drops a single entry, used after a successful remote delete.
func (c *Catalog) Remove(path string) {
	c.mu.RLock()
	remaining := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if e.Path != path {
			remaining = append(remaining, e)
		}
	}
	c.mu.RUnlock()

	c.replace(remaining)
}
