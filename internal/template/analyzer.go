package template

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/placeholder"
)

// Analysis describes one template: its image metadata, its placeholder
// layout, and how that layout was obtained.
type Analysis struct {
	Path         string          `json:"path"`
	Image        imaging.Info    `json:"image"`
	Placeholders placeholder.Map `json:"placeholders"`
	// Manual is true when the layout came from a sidecar file rather
	// than from detection.
	Manual bool `json:"manual"`
	// Degraded is true when detection ran without a usable OCR engine.
	Degraded    bool      `json:"degraded"`
	Suggestions []string  `json:"suggestions,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// Analyzer produces template analyses, consulting the cache first.
type Analyzer struct {
	detector *placeholder.Detector
	cache    *Cache
	logger   *slog.Logger
}

// NewAnalyzer wires a detector to a cache. The cache may be nil to
// disable caching; a nil logger disables logging.
func NewAnalyzer(detector *placeholder.Detector, cache *Cache, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		detector: detector,
		cache:    cache,
		logger:   logging.WithComponent(logger, "analyzer"),
	}
}

// Analyze returns the analysis for the template at path.
//
// A manual sidecar layout takes precedence over detection. Fresh results
// are cached; cached results are shared between callers, so the returned
// analysis must be treated as read-only.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Analysis, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(path); ok {
			a.logger.Debug("analysis served from cache", logging.String("template", path))
			return cached, nil
		}
	}

	img, err := imaging.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	info, err := imaging.ReadInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect template: %w", err)
	}

	analysis := &Analysis{
		Path:       path,
		Image:      *info,
		AnalyzedAt: time.Now().UTC(),
	}

	manual, exists, err := placeholder.LoadSidecar(path, img.Bounds())
	if err != nil {
		return nil, err
	}
	if exists && len(manual) > 0 {
		analysis.Placeholders = manual
		analysis.Manual = true
	} else {
		res, err := a.detector.Detect(ctx, img)
		if err != nil {
			return nil, err
		}
		analysis.Placeholders = res.Placeholders
		analysis.Degraded = res.Degraded
	}
	analysis.Suggestions = placeholder.Suggestions(analysis.Placeholders)

	if a.cache != nil {
		a.cache.Set(path, analysis)
	}
	a.logger.Info("template analyzed",
		logging.String("template", path),
		logging.Int("placeholders", len(analysis.Placeholders)),
		logging.Bool("manual", analysis.Manual),
		logging.Bool("degraded", analysis.Degraded))
	return analysis, nil
}
