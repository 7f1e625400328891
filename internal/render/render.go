package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/logging"
)

// ErrEmptyImage is returned when asked to render onto an image with no
// pixels.
var ErrEmptyImage = errors.New("image has no pixels")

const (
	// Fit ratios leave breathing room so glyphs never touch the box
	// edges.
	widthFitRatio  = 0.97
	heightFitRatio = 0.95

	// boxHeightRatio is the starting font size relative to the box
	// height when no size is forced.
	boxHeightRatio = 0.90

	minFontSize = 8

	// ringMargin pushes background samples outside the erased area so
	// they land on untouched pixels.
	ringMargin = 10

	defaultEraseMargin = 2
)

// Semantic hint sizes, applied only when no box constrains the text.
const (
	sizeTitle   = 64
	sizeName    = 48
	sizeDetail  = 28
	sizeDefault = 40
)

var textColor = color.RGBA{A: 255}

// Config adjusts renderer behavior.
type Config struct {
	// EraseMargin is the extra border wiped around a placeholder box
	// before drawing. Negative selects the default of 2.
	EraseMargin int
	// FontSize forces a fixed starting size for every render. Zero
	// derives the size from the box or the hint.
	FontSize int
}

// Renderer draws replacement text onto certificate images.
//
// Render copies the source pixels before drawing, so a shared decoded
// template may be passed concurrently from many goroutines. The renderer
// itself is stateless apart from the font cache, which is safe for
// concurrent use.
type Renderer struct {
	fonts       *FontChain
	eraseMargin int
	forcedSize  int
	logger      *slog.Logger
}

// NewRenderer builds a Renderer. A nil chain falls back to the fonts
// compiled into the binary; a nil logger disables logging.
func NewRenderer(fonts *FontChain, cfg Config, logger *slog.Logger) *Renderer {
	if fonts == nil {
		fonts = NewFontChain(nil, nil, logger)
	}
	if cfg.EraseMargin < 0 {
		cfg.EraseMargin = defaultEraseMargin
	}
	return &Renderer{
		fonts:       fonts,
		eraseMargin: cfg.EraseMargin,
		forcedSize:  cfg.FontSize,
		logger:      logging.WithComponent(logger, "renderer"),
	}
}

// Render returns a copy of img with text drawn over box.
//
// With a box, the surrounding background color is inferred, the box plus
// the erase margin is wiped with it, and the text is centered inside the
// box at the largest size that fits (down to the minimum). A zero box
// skips erasure and centers the text on the whole image, sized by hint
// (title, name, detail). Empty text erases the box and draws nothing. The
// input image is never modified.
func (r *Renderer) Render(img image.Image, text string, box image.Rectangle, hint string) (*image.RGBA, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}
	out := imaging.ToRGBA(img)
	// ToRGBA normalizes the origin to (0,0); placeholder boxes are
	// already expressed in that space.
	outBounds := out.Bounds()

	boxed := !box.Empty()
	target := imaging.Clamp(box, outBounds)
	if boxed && target.Empty() {
		return nil, fmt.Errorf("placeholder box %v lies outside image bounds %v", box, outBounds)
	}
	if !boxed {
		target = outBounds
	}

	if boxed {
		bg := imaging.EstimateBackground(out, target, ringMargin)
		erase := imaging.Clamp(imaging.Expand(target, r.eraseMargin), outBounds)
		draw.Draw(out, erase, image.NewUniform(bg), image.Point{}, draw.Src)
	}

	if strings.TrimSpace(text) == "" {
		return out, nil
	}

	face, size := r.fitFace(text, target, boxed, hint)
	width := font.MeasureString(face, text)
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	x := target.Min.X + (target.Dx()-width.Ceil())/2
	y := target.Min.Y + (target.Dy()-height)/2 + metrics.Ascent.Ceil()

	drawer := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)

	r.logger.Debug("text rendered",
		logging.String("text", text),
		logging.Int("size", size),
		logging.Int("x", x),
		logging.Int("y", y))
	return out, nil
}

// fitFace picks the largest font size whose rendering of text fits the
// target region, scanning downward to the minimum size. The minimum-size
// face is returned even when nothing fits; overflow then clips rather
// than failing the render.
func (r *Renderer) fitFace(text string, target image.Rectangle, boxed bool, hint string) (font.Face, int) {
	start := r.forcedSize
	if start <= 0 {
		if boxed {
			start = int(boxHeightRatio * float64(target.Dy()))
		} else {
			start = hintSize(hint)
		}
	}
	start = max(start, minFontSize)

	maxWidth := int(float64(target.Dx()) * widthFitRatio)
	maxHeight := int(float64(target.Dy()) * heightFitRatio)

	var face font.Face
	size := start
	for ; size >= minFontSize; size-- {
		face = r.fonts.Face(float64(size))
		w := font.MeasureString(face, text).Ceil()
		m := face.Metrics()
		h := (m.Ascent + m.Descent).Ceil()
		if w <= maxWidth && h <= maxHeight {
			return face, size
		}
	}
	return face, minFontSize
}

func hintSize(hint string) int {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "title":
		return sizeTitle
	case "name":
		return sizeName
	case "detail":
		return sizeDetail
	default:
		return sizeDefault
	}
}
