package placeholder

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/ocr"
)

// ErrEmptyImage is returned when detection is asked to scan an image with
// no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

const (
	defaultMinConfidence = 60.0
	defaultPassTimeout   = 30 * time.Second

	// inkTightenMargin is the breathing room kept around the glyph ink
	// when a detected box is shrunk to its contents.
	inkTightenMargin = 2

	// fallbackConfidence marks records produced without OCR.
	fallbackConfidence = 50
)

// Config adjusts detection behavior. Zero values select the documented
// defaults.
type Config struct {
	// MinConfidence is the floor below which OCR words are ignored.
	MinConfidence float64
	// PassTimeout bounds each individual OCR pass.
	PassTimeout time.Duration
}

// Result carries the outcome of one detection run.
type Result struct {
	// Placeholders maps normalized keys to their best observation.
	Placeholders Map
	// Degraded is true when the OCR engine was unavailable and the fixed
	// fallback layout was substituted for real detection.
	Degraded bool
	// Passes and FailedPasses count the OCR attempts behind the result.
	Passes       int
	FailedPasses int
}

// Detector locates placeholder tokens on template images using multi-pass
// OCR. It is safe for concurrent use as long as the underlying engine is.
type Detector struct {
	engine        ocr.Engine
	minConfidence float64
	passTimeout   time.Duration
	logger        *slog.Logger
}

// NewDetector builds a Detector around engine. A nil logger disables
// logging.
func NewDetector(engine ocr.Engine, cfg Config, logger *slog.Logger) *Detector {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = defaultPassTimeout
	}
	return &Detector{
		engine:        engine,
		minConfidence: cfg.MinConfidence,
		passTimeout:   cfg.PassTimeout,
		logger:        logging.WithComponent(logger, "detector"),
	}
}

// Detect scans img for placeholder tokens.
//
// Every preprocessing variant of the image is run through OCR under each
// supported page segmentation mode. Words at or above the confidence floor
// are matched against the token pattern; per normalized key only the
// highest-confidence observation is kept, with the earliest observation
// winning ties. Surviving boxes are tightened to their ink on the original
// image and clamped to its bounds.
//
// If the engine reports itself unavailable, or every pass fails, Detect
// returns the degraded fallback layout instead of an error. Context
// cancellation is the exception and is always surfaced.
func (d *Detector) Detect(ctx context.Context, img image.Image) (Result, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return Result{}, ErrEmptyImage
	}
	if err := d.engine.Ping(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		d.logger.Warn("ocr engine unavailable, using fallback layout", logging.Error(err))
		return d.fallback(bounds, 0, 0), nil
	}

	variants := imaging.DetectionVariants(img)
	modes := []ocr.PageSegMode{ocr.PSMSparseText, ocr.PSMSingleBlock, ocr.PSMAuto}

	found := Map{}
	res := Result{}
	for _, v := range variants {
		for _, mode := range modes {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			words, err := d.runPass(ctx, v.Image, mode)
			res.Passes++
			if err != nil {
				res.FailedPasses++
				d.logger.Debug("ocr pass failed",
					logging.String("variant", v.Name),
					logging.String("mode", mode.String()),
					logging.Error(err))
				continue
			}
			matched := d.merge(found, words, bounds)
			d.logger.Debug("ocr pass complete",
				logging.String("variant", v.Name),
				logging.String("mode", mode.String()),
				logging.Int("words", len(words)),
				logging.Int("matched", matched))
		}
	}
	if res.Passes > 0 && res.FailedPasses == res.Passes {
		d.logger.Warn("every ocr pass failed, using fallback layout",
			logging.Int("passes", res.Passes))
		return d.fallback(bounds, res.Passes, res.FailedPasses), nil
	}

	tighten(found, img)
	res.Placeholders = found
	d.logger.Info("placeholder detection complete",
		logging.Int("placeholders", len(found)),
		logging.Int("passes", res.Passes),
		logging.Int("failed_passes", res.FailedPasses))
	return res, nil
}

// runPass executes one OCR attempt under the per-pass timeout.
func (d *Detector) runPass(ctx context.Context, img image.Image, mode ocr.PageSegMode) ([]ocr.Word, error) {
	if d.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.passTimeout)
		defer cancel()
	}
	return d.engine.Recognize(ctx, img, ocr.Options{PageSegMode: mode})
}

// merge folds one pass worth of OCR words into found and reports how many
// records it added or replaced. An existing record is only displaced by a
// strictly higher confidence.
func (d *Detector) merge(found Map, words []ocr.Word, bounds image.Rectangle) int {
	matched := 0
	for _, w := range words {
		if w.Confidence < d.minConfidence {
			continue
		}
		raw, key, ok := MatchToken(w.Text)
		if !ok {
			continue
		}
		rec := NewRecord(w.Bounds.Rect(), bounds, w.Confidence, raw)
		if rec.Box.Empty() {
			continue
		}
		if prev, exists := found[key]; exists && prev.Confidence >= rec.Confidence {
			continue
		}
		found[key] = rec
		matched++
	}
	return matched
}

// tighten shrinks every record to the ink inside its region, judged on the
// original image rather than any preprocessing variant.
func tighten(found Map, img image.Image) {
	for key, rec := range found {
		tight := imaging.InkBounds(img, rec.Rect(), inkTightenMargin)
		if tight.Empty() {
			continue
		}
		found[key] = NewRecord(tight, img.Bounds(), rec.Confidence, rec.Text)
	}
}

func (d *Detector) fallback(bounds image.Rectangle, passes, failed int) Result {
	return Result{
		Placeholders: FallbackPlaceholders(bounds),
		Degraded:     true,
		Passes:       passes,
		FailedPasses: failed,
	}
}

type fallbackRegion struct {
	key  string
	left float64
	top  float64
	w    float64
	h    float64
}

// fallbackRegions lay out the degraded placeholders as fractions of the
// template size, targeting the center band where most certificate designs
// put the recipient lines.
var fallbackRegions = []fallbackRegion{
	{key: "NAME", left: 0.30, top: 0.40, w: 0.40, h: 0.08},
	{key: "ROLE", left: 0.35, top: 0.55, w: 0.30, h: 0.06},
	{key: "DATE", left: 0.40, top: 0.70, w: 0.20, h: 0.05},
}

// FallbackPlaceholders returns the degraded layout used when no OCR engine
// is available: NAME, ROLE and DATE at fixed proportional positions with
// confidence 50. Fractional coordinates are rounded to the nearest pixel.
func FallbackPlaceholders(bounds image.Rectangle) Map {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	m := make(Map, len(fallbackRegions))
	for _, r := range fallbackRegions {
		rect := image.Rect(
			bounds.Min.X+round(r.left*w),
			bounds.Min.Y+round(r.top*h),
			bounds.Min.X+round((r.left+r.w)*w),
			bounds.Min.Y+round((r.top+r.h)*h),
		)
		m[r.key] = NewRecord(rect, bounds, fallbackConfidence, "{{"+r.key+"}}")
	}
	return m
}

func round(v float64) int {
	return int(math.Round(v))
}
