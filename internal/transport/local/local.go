// Package local provides a transport over the local filesystem. Fetch is a
// no-op returning the original path, so local entries never occupy staging
// budget.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mediabridge/mediabridge/internal/transport"
)

// Transport implements transport.Transport against the local filesystem.
type Transport struct{}

// New creates a local filesystem transport.
func New() *Transport {
	return &Transport{}
}

// List enumerates media files under root.
func (t *Transport) List(_ context.Context, root string, recursive bool) ([]transport.Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, mapError(root, err)
	}
	if !info.IsDir() {
		return nil, &transport.NotFoundError{Path: root}
	}

	var entries []transport.Entry
	if recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Skip unreadable subtrees rather than aborting the listing.
				return nil
			}
			if d.IsDir() || !transport.IsMedia(path) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return nil
			}
			entries = append(entries, entryFor(path, fi))
			return nil
		})
		if err != nil {
			return nil, mapError(root, err)
		}
	} else {
		dirents, err := os.ReadDir(root)
		if err != nil {
			return nil, mapError(root, err)
		}
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			path := filepath.Join(root, d.Name())
			if !transport.IsMedia(path) {
				continue
			}
			fi, err := d.Info()
			if err != nil {
				continue
			}
			entries = append(entries, entryFor(path, fi))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func entryFor(path string, fi fs.FileInfo) transport.Entry {
	return transport.Entry{
		Path:    path,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Kind:    transport.KindOf(path),
	}
}

// Fetch returns the path unchanged: local files are decoded in place.
func (t *Transport) Fetch(_ context.Context, path, _ string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", mapError(path, err)
	}
	return path, nil
}

// Push copies a local file to another local path.
func (t *Transport) Push(_ context.Context, localPath, path string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return mapError(localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return mapError(path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return &transport.TransferError{Path: path, Partial: true, Err: err}
	}
	return dst.Close()
}

// Remove deletes a local file.
func (t *Transport) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return mapError(path, err)
	}
	return nil
}

// Reachable always succeeds for the local filesystem.
func (t *Transport) Reachable(_ context.Context) bool { return true }

// Remote returns false: fetched paths are the originals, nothing is staged.
func (t *Transport) Remote() bool { return false }

// Close is a no-op.
func (t *Transport) Close() error { return nil }

func mapError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &transport.NotFoundError{Path: path}
	case os.IsPermission(err):
		return &transport.PermissionError{Path: path, Err: err}
	default:
		return err
	}
}
