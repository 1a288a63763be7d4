package cache

import (
	"container/list"
	"image"
	"time"

	"github.com/mediabridge/mediabridge/internal/transport"
)

// State is the lifecycle position of a cache record.
type State int

const (
	StateNotStaged State = iota
	StateFetching
	StateStaged
	StateSynthesizing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStaged:
		return "not-staged"
	case StateFetching:
		return "fetching"
	case StateStaged:
		return "staged"
	case StateSynthesizing:
		return "synthesizing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// record is the engine's bookkeeping for one materialized entry. All fields
// are guarded by the engine mutex; the per-entry single-flight rule means at
// most one goroutine drives a record through its states at a time.
type record struct {
	path   string
	kind   transport.Kind
	remote bool

	state       State
	failure     error
	stagingPath string
	stagedSize  int64 // bytes counted against the budget (0 for local files)
	thumb       image.Image

	refCount   int
	lastAccess time.Time

	// doomed marks a record whose entry left the catalog while a
	// resolution was in flight; the in-flight goroutine cleans it up.
	doomed bool

	elem *list.Element // position in the eviction LRU, nil when untracked
}

// evictable reports whether the record may be reclaimed right now.
func (r *record) evictable() bool {
	if r.refCount > 0 {
		return false
	}
	return r.state == StateStaged || r.state == StateReady
}
