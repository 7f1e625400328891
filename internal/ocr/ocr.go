package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrUnavailable reports that the OCR backend cannot run at all, as opposed
// to a single recognition pass failing.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// BoundsFromRect converts an image.Rectangle into Bounds.
func BoundsFromRect(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts b back into an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Word represents a recognized word with its location and OCR confidence.
type Word struct {
	// Text is the recognized word content.
	Text string `json:"text"`

	// Confidence is Tesseract's confidence score from 0 to 100.
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the image.
	Bounds Bounds `json:"bounds"`
}

// PageSegMode selects Tesseract's page layout analysis strategy.
type PageSegMode int

const (
	// PSMAuto lets Tesseract segment the page on its own.
	PSMAuto PageSegMode = iota

	// PSMSingleBlock treats the image as a single uniform block of text.
	PSMSingleBlock

	// PSMSparseText hunts for scattered words in no particular order.
	PSMSparseText
)

// String returns the mode name used in logs and pass labels.
func (m PageSegMode) String() string {
	switch m {
	case PSMSingleBlock:
		return "single-block"
	case PSMSparseText:
		return "sparse-text"
	default:
		return "auto"
	}
}

// Options control a single recognition pass.
type Options struct {
	// PageSegMode selects the layout analysis strategy. The zero value is
	// PSMAuto.
	PageSegMode PageSegMode
}

// Engine recognizes text in images. Implementations must be safe for
// concurrent use by multiple goroutines.
type Engine interface {
	// Name identifies the backend, e.g. "tesseract".
	Name() string

	// Ping reports whether the backend can recognize anything at all.
	// A non-nil error wraps ErrUnavailable.
	Ping(ctx context.Context) error

	// Recognize runs one OCR pass over img and returns word-level results.
	// An image with no recognizable text returns an empty slice, not an
	// error.
	Recognize(ctx context.Context, img image.Image, opts Options) ([]Word, error)
}

// Info describes the OCR subsystem for diagnostics.
type Info struct {
	Available   bool     `json:"available"`
	Version     string   `json:"version,omitempty"`
	Error       string   `json:"error,omitempty"`
	Backend     string   `json:"backend"`
	Languages   []string `json:"languages,omitempty"`
	TessdataDir string   `json:"tessdata_dir,omitempty"`
}

// Describe probes e and assembles a diagnostic report. Version, language,
// and tessdata details are included when the engine exposes them.
func Describe(ctx context.Context, e Engine) Info {
	info := Info{Backend: e.Name()}
	if v, ok := e.(interface{ Version() string }); ok {
		info.Version = v.Version()
	}
	if l, ok := e.(interface{ Languages() []string }); ok {
		info.Languages = l.Languages()
	}
	if td, ok := e.(interface{ TessdataDir() string }); ok {
		info.TessdataDir = td.TessdataDir()
	}
	if err := e.Ping(ctx); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true
	return info
}
