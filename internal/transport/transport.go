// Package transport defines the capability interface for enumerating, fetching,
// and removing media files, with local filesystem, SSH, and S3 implementations.
package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a media entry.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Entry describes one media file found by a listing.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
	Kind    Kind
}

// Transport is the capability a catalog and cache engine need from storage:
// list a directory, copy a file into a local staging dir, copy one back,
// and remove one. Implementations must filter listings to recognized media
// extensions and map failures onto the typed errors in this package.
type Transport interface {
	// List enumerates media files under root. When recursive is set it
	// descends all subdirectories in one logical call.
	List(ctx context.Context, root string, recursive bool) ([]Entry, error)

	// Fetch copies path into stagingDir under StageName(path) and returns
	// the local path. Local transports return path unchanged without copying.
	Fetch(ctx context.Context, path, stagingDir string) (string, error)

	// Push copies a local file to the given path. Unused by the current
	// flows; part of the capability set for completeness.
	Push(ctx context.Context, localPath, path string) error

	// Remove deletes the file at path.
	Remove(ctx context.Context, path string) error

	// Reachable is a best-effort connectivity probe with a short timeout.
	Reachable(ctx context.Context) bool

	// Remote reports whether Fetch produces staged copies that participate
	// in the staging budget.
	Remote() bool

	// Close releases any held connections.
	Close() error
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true,
	".wmv": true, ".flv": true, ".webm": true,
}

// IsMedia reports whether path has a recognized media extension (case-insensitive).
func IsMedia(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return imageExtensions[ext] || videoExtensions[ext]
}

// KindOf returns the media kind for path. Callers must have checked IsMedia;
// unrecognized extensions classify as images.
func KindOf(path string) Kind {
	if videoExtensions[strings.ToLower(filepath.Ext(path))] {
		return KindVideo
	}
	return KindImage
}

// StageName derives a collision-free staging file name from a source path.
// The name is stable for a given path so repeated fetches overwrite the same
// file instead of accumulating copies.
func StageName(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8]) + strings.ToLower(filepath.Ext(path))
}
