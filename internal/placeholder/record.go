package placeholder

import (
	"fmt"
	"image"
	"sort"

	"github.com/certforge/certforge/internal/imaging"
)

// Box locates a placeholder region in pixel coordinates relative to the
// template's top-left corner.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts a standard rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{
		Left:   r.Min.X,
		Top:    r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Rect converts the box back into a standard rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Left+b.Width, b.Top+b.Height)
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Record is a single detected or manually placed placeholder.
//
// The flat position fields and the nested Box carry the same region. Both
// are kept because downstream consumers of the serialized form read
// whichever is convenient; NewRecord and normalization keep them in sync.
type Record struct {
	Left       int     `json:"left"`
	Top        int     `json:"top"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
	Box        Box     `json:"bbox"`
}

// NewRecord builds a Record whose region is clamped to bounds. The flat
// fields and nested box are populated from the clamped rectangle.
func NewRecord(rect image.Rectangle, bounds image.Rectangle, confidence float64, text string) Record {
	clamped := imaging.Clamp(rect, bounds)
	box := BoxFromRect(clamped)
	return Record{
		Left:       box.Left,
		Top:        box.Top,
		Width:      box.Width,
		Height:     box.Height,
		Confidence: confidence,
		Text:       text,
		Box:        box,
	}
}

// Rect returns the placeholder region as a standard rectangle.
func (r Record) Rect() image.Rectangle {
	return r.Box.Rect()
}

// Map associates normalized placeholder keys with their records.
type Map map[string]Record

// Keys returns the placeholder keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RequiredKeys lists the keys every usable certificate template must
// provide. A template without a NAME region cannot place the one field
// generation always fills.
var RequiredKeys = []string{"NAME"}

// Validate checks that m contains every required key. With no explicit
// requirements the package-level RequiredKeys are enforced.
func Validate(m Map, required ...string) error {
	if len(required) == 0 {
		required = RequiredKeys
	}
	var missing []string
	for _, key := range required {
		if _, ok := m[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template is missing required placeholders: %v", missing)
	}
	return nil
}

// commonKeys are placeholders frequently used on certificates. Suggestions
// draws from this list so tooling can hint at fields an author may have
// forgotten to mark up.
var commonKeys = []string{
	"COURSE",
	"DATE",
	"EVENT",
	"ORGANIZATION",
	"POSITION",
	"SIGNATURE",
}

// Suggestions returns common placeholder keys absent from m, sorted.
func Suggestions(m Map) []string {
	var out []string
	for _, key := range commonKeys {
		if _, ok := m[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
