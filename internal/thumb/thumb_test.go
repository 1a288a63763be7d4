package thumb

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/mediabridge/mediabridge/internal/transport"
)

// writePNG renders a w x h gradient fixture so resizes have structure to
// preserve.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImageThumbnailFitsBox(t *testing.T) {
	path := writePNG(t, t.TempDir(), "wide.png", 600, 400)
	s := New(Options{Width: 300, Height: 200})

	img, err := s.Synthesize(context.Background(), path, transport.KindImage)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("thumbnail is %dx%d, want 300x200", b.Dx(), b.Dy())
	}
}

func TestImageThumbnailPreservesAspect(t *testing.T) {
	path := writePNG(t, t.TempDir(), "square.png", 400, 400)
	s := New(Options{Width: 300, Height: 200})

	img, err := s.Synthesize(context.Background(), path, transport.KindImage)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}
	// A square source fit into 300x200 is height-bound.
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("thumbnail is %dx%d, want 200x200", b.Dx(), b.Dy())
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	path := writePNG(t, t.TempDir(), "img.png", 500, 300)
	s := New(Options{})

	first, err := s.Synthesize(context.Background(), path, transport.KindImage)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Synthesize(context.Background(), path, transport.KindImage)
	if err != nil {
		t.Fatal(err)
	}

	a := imaging.Clone(first)
	b := imaging.Clone(second)
	if a.Bounds() != b.Bounds() || !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical input produced different thumbnails")
	}
}

func TestSynthesizeDecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(Options{})
	_, err := s.Synthesize(context.Background(), path, transport.KindImage)

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Path != path {
		t.Errorf("DecodeError path = %s, want %s", decodeErr.Path, path)
	}
	// The input file stays put for the caller to retry or inspect.
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("input file gone after decode failure: %v", statErr)
	}
}

func TestSynthesizeMissingFile(t *testing.T) {
	s := New(Options{})
	_, err := s.Synthesize(context.Background(), filepath.Join(t.TempDir(), "gone.png"), transport.KindImage)
	if !transport.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestOverlayPlayGlyph(t *testing.T) {
	base := imaging.New(300, 200, color.NRGBA{0, 0, 200, 255})

	out := overlayPlayGlyph(base)
	nrgba := imaging.Clone(out)

	// The center sits inside the white triangle.
	center := nrgba.NRGBAAt(150, 100)
	if center.R < 200 || center.G < 200 || center.B < 200 {
		t.Errorf("center pixel %v, want near-white triangle fill", center)
	}

	// Corners are untouched background.
	corner := nrgba.NRGBAAt(0, 0)
	if corner != (color.NRGBA{0, 0, 200, 255}) {
		t.Errorf("corner pixel %v changed by the overlay", corner)
	}
}

func TestOverlaySkipsTinyThumbnails(t *testing.T) {
	base := imaging.New(20, 20, color.NRGBA{0, 0, 200, 255})
	out := overlayPlayGlyph(base)
	if out != image.Image(base) {
		t.Error("tiny thumbnail should be returned unchanged")
	}
}

func TestApplyOrientation(t *testing.T) {
	// A 2x1 image rotated for orientation 6 must come out 1x2.
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	rotated := applyOrientation(img, 6)
	if b := rotated.Bounds(); b.Dx() != 1 || b.Dy() != 2 {
		t.Errorf("orientation 6 produced %dx%d, want 1x2", b.Dx(), b.Dy())
	}

	// Unknown orientations pass through.
	same := applyOrientation(img, 1)
	if same != image.Image(img) {
		t.Error("orientation 1 should be a no-op")
	}
}

func TestImageDimensions(t *testing.T) {
	path := writePNG(t, t.TempDir(), "dims.png", 123, 45)
	w, h, err := ImageDimensions(path)
	if err != nil {
		t.Fatal(err)
	}
	if w != 123 || h != 45 {
		t.Errorf("dimensions %dx%d, want 123x45", w, h)
	}

	_, _, err = ImageDimensions(filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultOptions(t *testing.T) {
	s := New(Options{})
	if s.width != DefaultWidth || s.height != DefaultHeight {
		t.Errorf("defaults %dx%d, want %dx%d", s.width, s.height, DefaultWidth, DefaultHeight)
	}
}
