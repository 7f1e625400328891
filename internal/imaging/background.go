package imaging

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// backgroundFallback is the neutral certificate cream used when a region
// offers nothing to sample.
var backgroundFallback = color.RGBA{R: 245, G: 238, B: 220, A: 255}

// labGroupDistance is the CIE Lab distance under which two samples count as
// the same color. It absorbs antialiasing and JPEG noise without merging
// genuinely different page colors.
const labGroupDistance = 0.08

// EstimateBackground picks the dominant color on a ring around rect: the
// four corners and four edge midpoints of rect expanded by margin, each
// clamped into the image. Samples are grouped by Lab distance and the
// largest group wins, so the returned color is an actual pixel value rather
// than a blend. Degenerate inputs fall back to a neutral cream.
func EstimateBackground(img image.Image, rect image.Rectangle, margin int) color.RGBA {
	bounds := img.Bounds()
	if bounds.Empty() {
		return backgroundFallback
	}

	ring := Expand(rect, margin)
	points := []image.Point{
		{X: ring.Min.X, Y: ring.Min.Y},
		{X: ring.Max.X, Y: ring.Min.Y},
		{X: ring.Min.X, Y: ring.Max.Y},
		{X: ring.Max.X, Y: ring.Max.Y},
		{X: (ring.Min.X + ring.Max.X) / 2, Y: ring.Min.Y},
		{X: (ring.Min.X + ring.Max.X) / 2, Y: ring.Max.Y},
		{X: ring.Min.X, Y: (ring.Min.Y + ring.Max.Y) / 2},
		{X: ring.Max.X, Y: (ring.Min.Y + ring.Max.Y) / 2},
	}

	type group struct {
		first color.RGBA
		lab   colorful.Color
		count int
	}
	var groups []group

	for _, p := range points {
		p = ClampPoint(p, bounds)
		r, g, b, _ := img.At(p.X, p.Y).RGBA()
		sample := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
		lab := colorful.Color{
			R: float64(sample.R) / 255,
			G: float64(sample.G) / 255,
			B: float64(sample.B) / 255,
		}

		matched := false
		for i := range groups {
			if groups[i].lab.DistanceLab(lab) < labGroupDistance {
				groups[i].count++
				matched = true
				break
			}
		}
		if !matched {
			groups = append(groups, group{first: sample, lab: lab, count: 1})
		}
	}

	if len(groups) == 0 {
		return backgroundFallback
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if g.count > best.count {
			best = g
		}
	}
	return best.first
}

// HexColor formats c as "#RRGGBB".
func HexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
