// Package thumb synthesizes fixed-size thumbnails from local media files:
// decode and resize for images, frame extraction plus a play glyph for videos.
package thumb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"

	// Decoders for the recognized image extensions beyond the stdlib set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/mediabridge/mediabridge/internal/logging"
	"github.com/mediabridge/mediabridge/internal/metrics"
	"github.com/mediabridge/mediabridge/internal/transport"
)

const (
	DefaultWidth  = 300
	DefaultHeight = 200
)

// DecodeError indicates the file content could not be interpreted as media.
// The file itself remains intact; callers show a placeholder instead.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options configures the synthesizer output box.
type Options struct {
	Width  int
	Height int
}

// Synthesizer produces thumbnails that fit within a configured box,
// aspect-preserving. Output is deterministic for identical input bytes.
type Synthesizer struct {
	width  int
	height int
}

// New creates a Synthesizer. Zero dimensions fall back to 300x200.
func New(opts Options) *Synthesizer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &Synthesizer{width: opts.Width, height: opts.Height}
}

// Synthesize renders a thumbnail for the local file at path.
func (s *Synthesizer) Synthesize(ctx context.Context, path string, kind transport.Kind) (image.Image, error) {
	start := time.Now()
	var img image.Image
	var err error

	switch kind {
	case transport.KindVideo:
		img, err = s.videoThumbnail(ctx, path)
	default:
		img, err = s.imageThumbnail(path)
	}

	metrics.RecordThumbnail(string(kind), time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}

	logging.Debug("thumbnail synthesized",
		zap.String("path", path),
		zap.String("kind", string(kind)),
		zap.Duration("took", time.Since(start)))
	return img, nil
}

func (s *Synthesizer) imageThumbnail(path string) (image.Image, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &transport.NotFoundError{Path: path}
		}
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	img = applyOrientation(img, orientationOf(path, content))
	return imaging.Fit(img, s.width, s.height, imaging.Lanczos), nil
}

func (s *Synthesizer) videoThumbnail(ctx context.Context, path string) (image.Image, error) {
	frame, err := extractFrame(ctx, path)
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(frame, s.width, s.height, imaging.Lanczos)
	return overlayPlayGlyph(thumb), nil
}

// orientationOf reads the EXIF orientation tag for formats that carry one.
func orientationOf(path string, content []byte) int {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".tiff" {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(content))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// applyOrientation transforms an image according to its EXIF orientation value.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// ImageDimensions decodes an image just enough to get its dimensions.
func ImageDimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, &DecodeError{Path: path, Err: err}
	}
	return cfg.Width, cfg.Height, nil
}
