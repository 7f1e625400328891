package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Variant pairs a preprocessed image with the name of the transformation
// that produced it.
type Variant struct {
	Name  string
	Image image.Image
}

const (
	contrastBoost     = 40.0
	sharpenSigma      = 2.0
	binarizeThreshold = 128
)

// DetectionVariants returns the preprocessing variants OCR runs against, in
// detection order. The original image comes first so clean templates resolve
// on the cheapest pass; the binarized variant comes last because it is the
// most destructive.
func DetectionVariants(img image.Image) []Variant {
	return []Variant{
		{Name: "original", Image: img},
		{Name: "contrast", Image: imaging.AdjustContrast(img, contrastBoost)},
		{Name: "sharpened", Image: imaging.Sharpen(img, sharpenSigma)},
		{Name: "binarized", Image: segment.Threshold(img, binarizeThreshold)},
	}
}
