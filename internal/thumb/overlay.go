package thumb

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// overlayPlayGlyph composites a centered play button over a video thumbnail:
// a half-transparent disc with a white triangle pointing right. The glyph is
// sized to a quarter of the shorter thumbnail edge.
func overlayPlayGlyph(thumb image.Image) image.Image {
	bounds := thumb.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	size := min(w, h) / 4
	if size < 8 {
		// Thumbnail too small for a legible glyph.
		return thumb
	}

	glyph := renderPlayGlyph(size)
	x := (w - glyph.Bounds().Dx()) / 2
	y := (h - glyph.Bounds().Dy()) / 2
	return imaging.Overlay(thumb, glyph, image.Pt(x, y), 1.0)
}

// renderPlayGlyph rasterizes the glyph onto a transparent square. The disc
// extends a 5px margin past the triangle's bounding box, matching the grid's
// visual style.
func renderPlayGlyph(size int) *image.NRGBA {
	const margin = 5
	side := size + 2*margin
	img := image.NewNRGBA(image.Rect(0, 0, side, side))

	cx := float64(side) / 2
	cy := float64(side) / 2
	radius := float64(side) / 2

	// Triangle vertices inside the size x size box, offset by the margin:
	// left edge at size/4, apex at 3*size/4 on the midline.
	left := float64(margin + size/4)
	top := float64(margin + size/4)
	bottom := float64(margin + 3*size/4)
	apexX := float64(margin + 3*size/4)
	midY := float64(margin + size/2)

	disc := color.NRGBA{0, 0, 0, 128}
	white := color.NRGBA{255, 255, 255, 255}

	for yy := 0; yy < side; yy++ {
		for xx := 0; xx < side; xx++ {
			fx := float64(xx) + 0.5
			fy := float64(yy) + 0.5

			dx := fx - cx
			dy := fy - cy
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			img.SetNRGBA(xx, yy, disc)

			if fy < top || fy > bottom || fx < left {
				continue
			}
			// Right edge shrinks linearly toward the apex.
			dist := midY - fy
			if dist < 0 {
				dist = -dist
			}
			right := apexX - 2*dist
			if fx <= right {
				img.SetNRGBA(xx, yy, white)
			}
		}
	}

	return img
}
