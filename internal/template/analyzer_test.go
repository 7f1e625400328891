package template

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/ocr"
	"github.com/certforge/certforge/internal/placeholder"
)

// stubEngine hands out a fixed word list on the first pass and nothing on
// later passes, standing in for Tesseract.
type stubEngine struct {
	pingErr error
	words   []ocr.Word
	calls   int
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubEngine) Recognize(ctx context.Context, img image.Image, opts ocr.Options) ([]ocr.Word, error) {
	s.calls++
	if s.calls == 1 {
		return s.words, nil
	}
	return nil, nil
}

func writeTemplatePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	path := filepath.Join(dir, name)
	if err := imaging.SavePNG(img, path); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	return path
}

func nameWord() ocr.Word {
	return ocr.Word{
		Text:       "{{NAME}}",
		Confidence: 88,
		Bounds:     ocr.Bounds{X1: 10, Y1: 10, X2: 60, Y2: 30},
	}
}

func TestAnalyzer_DetectsAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplatePNG(t, dir, "cert.png")

	engine := &stubEngine{words: []ocr.Word{nameWord()}}
	detector := placeholder.NewDetector(engine, placeholder.Config{}, nil)
	cache := NewCache(CacheConfig{}, nil)
	analyzer := NewAnalyzer(detector, cache, nil)

	first, err := analyzer.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.Manual || first.Degraded {
		t.Errorf("unexpected flags: manual=%v degraded=%v", first.Manual, first.Degraded)
	}
	if _, ok := first.Placeholders["NAME"]; !ok {
		t.Fatalf("NAME not detected: %v", first.Placeholders.Keys())
	}
	if first.Image.Width != 100 || first.Image.Height != 50 {
		t.Errorf("image info = %dx%d, want 100x50", first.Image.Width, first.Image.Height)
	}
	if engine.calls != 12 {
		t.Fatalf("engine calls = %d, want 12", engine.calls)
	}

	second, err := analyzer.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if second != first {
		t.Error("second analysis did not come from the cache")
	}
	if engine.calls != 12 {
		t.Errorf("cache hit still ran OCR, calls = %d", engine.calls)
	}
}

func TestAnalyzer_ManualSidecarWins(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplatePNG(t, dir, "cert.png")

	manual := placeholder.Map{
		"NAME": {Box: placeholder.Box{Left: 20, Top: 15, Width: 50, Height: 12}},
	}
	if err := placeholder.SaveSidecar(path, manual); err != nil {
		t.Fatal(err)
	}

	engine := &stubEngine{words: []ocr.Word{nameWord()}}
	analyzer := NewAnalyzer(placeholder.NewDetector(engine, placeholder.Config{}, nil), nil, nil)

	got, err := analyzer.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.Manual {
		t.Error("manual flag not set")
	}
	if engine.calls != 0 {
		t.Errorf("detection ran despite sidecar, calls = %d", engine.calls)
	}
	rec := got.Placeholders["NAME"]
	if rec.Confidence != 100 {
		t.Errorf("manual confidence = %v, want 100", rec.Confidence)
	}
}

func TestAnalyzer_DegradedWithoutEngine(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplatePNG(t, dir, "cert.png")

	engine := &stubEngine{pingErr: ocr.ErrUnavailable}
	analyzer := NewAnalyzer(placeholder.NewDetector(engine, placeholder.Config{}, nil), nil, nil)

	got, err := analyzer.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.Degraded {
		t.Error("degraded flag not set")
	}
	for _, key := range []string{"NAME", "ROLE", "DATE"} {
		if _, ok := got.Placeholders[key]; !ok {
			t.Errorf("fallback layout missing %s", key)
		}
	}
}

func TestAnalyzer_MissingTemplate(t *testing.T) {
	analyzer := NewAnalyzer(placeholder.NewDetector(&stubEngine{}, placeholder.Config{}, nil), nil, nil)
	if _, err := analyzer.Analyze(context.Background(), filepath.Join(t.TempDir(), "absent.png")); err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestAnalyzer_NilCacheAlwaysDetects(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplatePNG(t, dir, "cert.png")

	engine := &stubEngine{words: []ocr.Word{nameWord()}}
	analyzer := NewAnalyzer(placeholder.NewDetector(engine, placeholder.Config{}, nil), nil, nil)

	if _, err := analyzer.Analyze(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := analyzer.Analyze(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if engine.calls != 24 {
		t.Errorf("engine calls = %d, want 24 without a cache", engine.calls)
	}
}

func TestAnalyzer_SuggestionsExcludePresent(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplatePNG(t, dir, "cert.png")

	engine := &stubEngine{words: []ocr.Word{
		nameWord(),
		{Text: "{{DATE}}", Confidence: 85, Bounds: ocr.Bounds{X1: 10, Y1: 35, X2: 50, Y2: 45}},
	}}
	analyzer := NewAnalyzer(placeholder.NewDetector(engine, placeholder.Config{}, nil), nil, nil)

	got, err := analyzer.Analyze(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range got.Suggestions {
		if s == "DATE" {
			t.Error("suggestions include an already present key")
		}
	}
	if len(got.Suggestions) == 0 {
		t.Error("expected some suggestions")
	}
}
