// Package cache implements the remote media cache engine: it stages files
// through a transport into a bounded on-disk area, synthesizes thumbnails,
// and reclaims staging space least-recently-accessed first.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/mediabridge/mediabridge/internal/catalog"
	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/mediabridge/mediabridge/internal/transport"
)

// Synthesizer turns a staged local file into a thumbnail bitmap.
type Synthesizer interface {
	Synthesize(ctx context.Context, path string, kind transport.Kind) (image.Image, error)
}

// Options configures an Engine.
type Options struct {
	// StagingDir is where remote files are staged. Empty means a private
	// temp directory owned (and removed on Close) by the engine.
	StagingDir string

	// BudgetBytes bounds the total size of unpinned staged files. Zero
	// means 512 MiB.
	BudgetBytes int64

	// Workers bounds concurrent fetch+synthesis work. Zero means 4.
	Workers int
}

const (
	defaultBudget  = 512 << 20
	defaultWorkers = 4
)

// Engine resolves catalog entries to thumbnails and pinned local paths.
// Construct one per browsing session and pass it by reference; it owns the
// staging area for its lifetime.
type Engine struct {
	tr         transport.Transport
	synth      Synthesizer
	stagingDir string
	ownsDir    bool
	budget     int64

	sem    *semaphore.Weighted
	flight singleflight.Group

	mu          sync.Mutex
	records     map[string]*record
	lru         *list.List // front = most recently accessed
	stagedBytes int64
	closed      bool
}

// New creates an Engine over the given transport and synthesizer.
func New(tr transport.Transport, synth Synthesizer, opts Options) (*Engine, error) {
	if opts.BudgetBytes <= 0 {
		opts.BudgetBytes = defaultBudget
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	dir := opts.StagingDir
	owns := false
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "mediabridge-*")
		if err != nil {
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
		owns = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}

	return &Engine{
		tr:         tr,
		synth:      synth,
		stagingDir: dir,
		ownsDir:    owns,
		budget:     opts.BudgetBytes,
		sem:        semaphore.NewWeighted(int64(opts.Workers)),
		records:    make(map[string]*record),
		lru:        list.New(),
	}, nil
}

// StagingDir returns the staging directory path.
func (e *Engine) StagingDir() string { return e.stagingDir }

// Resolve returns the thumbnail for entry, fetching and synthesizing as
// needed. Concurrent calls for the same entry join one in-flight resolution.
func (e *Engine) Resolve(ctx context.Context, entry catalog.Entry) (image.Image, error) {
	if img, ok := e.cachedThumb(entry.Path); ok {
		metrics.RecordCacheHit()
		return img, nil
	}

	// A second round covers the case of joining a materialize-only flight
	// that staged the file but synthesized nothing.
	for attempt := 0; attempt < 2; attempt++ {
		if _, err, _ := e.flight.Do(entry.Path, func() (interface{}, error) {
			return nil, e.resolveOne(ctx, entry)
		}); err != nil {
			return nil, err
		}
		if img, ok := e.cachedThumb(entry.Path); ok {
			return img, nil
		}
	}
	return nil, fmt.Errorf("resolve %s: no thumbnail after resolution", entry.Path)
}

// Materialize stages the entry and returns a pinned local path. The caller
// must Release the path when done; the pin excludes the record from
// eviction.
func (e *Engine) Materialize(ctx context.Context, entry catalog.Entry) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if _, err, _ := e.flight.Do(entry.Path, func() (interface{}, error) {
			return nil, e.stageOne(ctx, entry)
		}); err != nil {
			return "", err
		}

		e.mu.Lock()
		rec := e.records[entry.Path]
		if rec != nil && rec.stagingPath != "" {
			rec.refCount++
			rec.lastAccess = time.Now()
			path := rec.stagingPath
			e.mu.Unlock()
			return path, nil
		}
		e.mu.Unlock()
	}
	return "", fmt.Errorf("materialize %s: no staged copy after fetch", entry.Path)
}

// Release drops one pin taken by Materialize, making the record evictable
// again.
func (e *Engine) Release(path string) {
	e.mu.Lock()
	rec := e.records[path]
	if rec != nil && rec.refCount > 0 {
		rec.refCount--
		rec.lastAccess = time.Now()
		e.touchLocked(rec)
	}
	e.mu.Unlock()

	e.evictOverBudget(nil)
}

// Failure returns the recorded per-entry failure, if any. A record whose
// thumbnail could not be synthesized keeps its staged file and reports the
// decode failure here.
func (e *Engine) Failure(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec := e.records[path]; rec != nil {
		return rec.failure
	}
	return nil
}

// EvictPath removes the record for path, reclaiming its staging file and
// thumbnail. Called when an entry leaves the catalog. If a resolution is in
// flight the record is doomed instead and cleaned up when it finishes.
func (e *Engine) EvictPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[path]
	if rec == nil {
		return
	}
	if rec.state == StateFetching || rec.state == StateSynthesizing {
		rec.doomed = true
		return
	}
	e.removeLocked(rec)
}

// EvictPaths evicts every listed path; the catalog's OnReplace hook.
func (e *Engine) EvictPaths(paths []string) {
	for _, p := range paths {
		e.EvictPath(p)
	}
}

// StagedBytes reports the bytes currently counted against the budget.
func (e *Engine) StagedBytes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stagedBytes
}

// Close deletes every staged file regardless of pin state and releases the
// staging area. The engine must not be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	for _, rec := range e.records {
		if rec.stagingPath != "" && rec.remote {
			os.Remove(rec.stagingPath)
		}
		rec.thumb = nil
		rec.stagingPath = ""
		rec.state = StateNotStaged
	}
	e.records = make(map[string]*record)
	e.lru.Init()
	e.stagedBytes = 0
	e.mu.Unlock()

	metrics.SetStagedBytes(0)

	if e.ownsDir {
		return os.RemoveAll(e.stagingDir)
	}
	return nil
}

// cachedThumb returns the ready thumbnail without any I/O.
func (e *Engine) cachedThumb(path string) (image.Image, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.records[path]
	if rec == nil || rec.state != StateReady {
		return nil, false
	}
	rec.lastAccess = time.Now()
	e.touchLocked(rec)
	return rec.thumb, true
}

// resolveOne drives one entry through fetch and synthesis. Runs inside the
// per-entry single flight.
func (e *Engine) resolveOne(ctx context.Context, entry catalog.Entry) error {
	if err := e.stageOne(ctx, entry); err != nil {
		return err
	}

	e.mu.Lock()
	rec := e.records[entry.Path]
	if rec == nil || rec.stagingPath == "" {
		e.mu.Unlock()
		return fmt.Errorf("resolve %s: staging lost before synthesis", entry.Path)
	}
	if rec.state == StateReady {
		e.mu.Unlock()
		return nil
	}
	rec.state = StateSynthesizing
	staged := rec.stagingPath
	e.mu.Unlock()

	img, err := e.synth.Synthesize(ctx, staged, entry.Kind)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		rec.failure = err
		if transport.IsNotFound(err) {
			e.removeLocked(rec)
		} else {
			// Decode failures keep the staged file: it may still be
			// openable even if not thumbnail-able.
			rec.state = StateStaged
			if rec.doomed {
				e.removeLocked(rec)
			}
		}
		return err
	}

	rec.thumb = img
	rec.state = StateReady
	rec.failure = nil
	rec.lastAccess = time.Now()
	e.touchLocked(rec)
	if rec.doomed {
		e.removeLocked(rec)
	}
	return nil
}

// stageOne ensures the entry has a usable local path, fetching through the
// transport when the entry is remote. Runs inside the per-entry single
// flight.
func (e *Engine) stageOne(ctx context.Context, entry catalog.Entry) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("cache engine closed")
	}
	rec := e.records[entry.Path]
	if rec == nil {
		rec = &record{path: entry.Path, kind: entry.Kind, remote: entry.Remote}
		e.records[entry.Path] = rec
	}
	if rec.state == StateFailed {
		rec.state = StateNotStaged
		rec.failure = nil
	}
	if rec.stagingPath != "" {
		e.mu.Unlock()
		return nil
	}
	rec.state = StateFetching
	e.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		e.fail(rec, err)
		return err
	}
	defer e.sem.Release(1)

	var staged string
	var size int64
	if entry.Remote {
		start := time.Now()
		fetched, err := e.tr.Fetch(ctx, entry.Path, e.stagingDir)
		if err != nil {
			metrics.RecordFetch(time.Since(start), 0, false)
			e.fail(rec, err)
			return err
		}
		staged = fetched
		if fi, statErr := os.Stat(staged); statErr == nil {
			size = fi.Size()
		}
		metrics.RecordFetch(time.Since(start), size, true)
	} else {
		// Local files are decoded in place; nothing is staged and the
		// budget is untouched.
		if _, err := os.Stat(entry.Path); err != nil {
			var mapped error = err
			if os.IsNotExist(err) {
				mapped = &transport.NotFoundError{Path: entry.Path}
			}
			e.fail(rec, mapped)
			return mapped
		}
		staged = entry.Path
	}

	e.mu.Lock()
	rec.stagingPath = staged
	rec.stagedSize = size
	rec.state = StateStaged
	rec.lastAccess = time.Now()
	if entry.Remote {
		e.stagedBytes += size
		metrics.SetStagedBytes(e.stagedBytes)
		e.touchLocked(rec)
	}
	doomed := rec.doomed
	if doomed {
		e.removeLocked(rec)
	}
	e.mu.Unlock()

	if doomed {
		return fmt.Errorf("stage %s: entry left the catalog", entry.Path)
	}

	e.evictOverBudget(rec)
	return nil
}

func (e *Engine) fail(rec *record, err error) {
	e.mu.Lock()
	rec.state = StateFailed
	rec.failure = err
	if rec.doomed {
		e.removeLocked(rec)
	}
	e.mu.Unlock()
}

// evictOverBudget reclaims least-recently-accessed unpinned staged files
// until the budget holds or nothing is evictable. active, when non-nil, is
// the record being resolved right now and is never a victim. The lock is
// held only for the scan-and-delete bookkeeping, never across fetch or
// decode.
func (e *Engine) evictOverBudget(active *record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.stagedBytes > e.budget {
		victim := e.oldestEvictableLocked(active)
		if victim == nil {
			return
		}
		logging.Debug("evicting staged file",
			zap.String("path", victim.path),
			zap.Int64("bytes", victim.stagedSize))
		e.reclaimLocked(victim)
		metrics.RecordEviction()
	}
}

func (e *Engine) oldestEvictableLocked(active *record) *record {
	for elem := e.lru.Back(); elem != nil; elem = elem.Prev() {
		rec := elem.Value.(*record)
		if rec == active || !rec.evictable() {
			continue
		}
		return rec
	}
	return nil
}

// reclaimLocked deletes a record's staged file and thumbnail and returns the
// record to NotStaged, keeping it in the table for re-resolution.
func (e *Engine) reclaimLocked(rec *record) {
	if rec.stagingPath != "" && rec.remote {
		os.Remove(rec.stagingPath)
		e.stagedBytes -= rec.stagedSize
		metrics.SetStagedBytes(e.stagedBytes)
	}
	rec.stagingPath = ""
	rec.stagedSize = 0
	rec.thumb = nil
	rec.state = StateNotStaged
	if rec.elem != nil {
		e.lru.Remove(rec.elem)
		rec.elem = nil
	}
}

// removeLocked reclaims the record and drops it from the table entirely.
func (e *Engine) removeLocked(rec *record) {
	e.reclaimLocked(rec)
	delete(e.records, rec.path)
}

func (e *Engine) touchLocked(rec *record) {
	if !rec.remote || rec.stagingPath == "" {
		return
	}
	if rec.elem != nil {
		e.lru.MoveToFront(rec.elem)
	} else {
		rec.elem = e.lru.PushFront(rec)
	}
}
