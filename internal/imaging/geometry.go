package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Expand grows rect by margin pixels on every side.
func Expand(rect image.Rectangle, margin int) image.Rectangle {
	return image.Rect(rect.Min.X-margin, rect.Min.Y-margin, rect.Max.X+margin, rect.Max.Y+margin)
}

// Clamp returns the portion of rect that lies inside bounds. A rect fully
// outside bounds clamps to the empty rectangle.
func Clamp(rect, bounds image.Rectangle) image.Rectangle {
	return rect.Intersect(bounds)
}

// ClampPoint moves p to the nearest pixel inside bounds.
func ClampPoint(p image.Point, bounds image.Rectangle) image.Point {
	if p.X < bounds.Min.X {
		p.X = bounds.Min.X
	}
	if p.X >= bounds.Max.X {
		p.X = bounds.Max.X - 1
	}
	if p.Y < bounds.Min.Y {
		p.Y = bounds.Min.Y
	}
	if p.Y >= bounds.Max.Y {
		p.Y = bounds.Max.Y - 1
	}
	return p
}

// Thumbnail scales img down to fit within maxWidth x maxHeight, preserving
// aspect ratio. Images already inside the box are returned unchanged.
func Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxHeight {
		return img
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}
