package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// InkBounds tightens rect around the glyph pixels it contains. The region
// is cropped, binarized, and scanned; whichever side of the threshold
// covers less area is treated as ink. The tightened rectangle keeps margin
// pixels of padding but never grows beyond the original region.
//
// Uniform regions, empty crops, and regions with no clear ink return the
// clamped input unchanged.
func InkBounds(img image.Image, rect image.Rectangle, margin int) image.Rectangle {
	region := rect.Intersect(img.Bounds())
	if region.Empty() {
		return region
	}

	crop := imaging.Crop(img, region)
	bin := segment.Threshold(crop, binarizeThreshold)
	bounds := bin.Bounds()

	black := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if bin.GrayAt(x, y).Y == 0 {
				black++
			}
		}
	}
	total := bounds.Dx() * bounds.Dy()
	if black == 0 || black == total {
		return region
	}

	var ink uint8
	if black <= total-black {
		ink = 0
	} else {
		ink = 255
	}

	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if bin.GrayAt(x, y).Y != ink {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	tight := image.Rect(
		region.Min.X+minX-bounds.Min.X-margin,
		region.Min.Y+minY-bounds.Min.Y-margin,
		region.Min.X+maxX-bounds.Min.X+1+margin,
		region.Min.Y+maxY-bounds.Min.Y+1+margin,
	)
	return tight.Intersect(region)
}
