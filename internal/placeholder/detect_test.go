package placeholder

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/certforge/certforge/internal/ocr"
)

// fakeEngine replays scripted word lists, one per Recognize call, so
// detector behavior can be tested without Tesseract.
type fakeEngine struct {
	pingErr error
	recErr  error
	passes  [][]ocr.Word
	calls   int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeEngine) Recognize(ctx context.Context, img image.Image, opts ocr.Options) ([]ocr.Word, error) {
	f.calls++
	if f.recErr != nil {
		return nil, f.recErr
	}
	if f.calls <= len(f.passes) {
		return f.passes[f.calls-1], nil
	}
	return nil, nil
}

func word(text string, conf float64, x1, y1, x2, y2 int) ocr.Word {
	return ocr.Word{
		Text:       text,
		Confidence: conf,
		Bounds:     ocr.Bounds{X1: x1, Y1: y1, X2: x2, Y2: y2},
	}
}

func newWhiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func paintRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func TestDetector_KeepsHighestConfidence(t *testing.T) {
	engine := &fakeEngine{passes: [][]ocr.Word{
		{
			word("{{NAME}}", 70, 10, 10, 60, 30),
			word("{{SKIP}}", 59, 0, 0, 10, 10),
			word("Certificate", 95, 0, 0, 50, 12),
		},
		{word("{{NAME}}", 90, 12, 10, 62, 30)},
		{word("{{NAME}}", 90, 40, 40, 90, 60)},
	}}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), newWhiteImage(200, 100))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Degraded {
		t.Fatal("result unexpectedly degraded")
	}
	if res.Passes != 12 || res.FailedPasses != 0 {
		t.Fatalf("passes = %d failed = %d, want 12 and 0", res.Passes, res.FailedPasses)
	}
	if engine.calls != 12 {
		t.Fatalf("engine called %d times, want 12", engine.calls)
	}
	if len(res.Placeholders) != 1 {
		t.Fatalf("placeholders = %v, want exactly NAME", res.Placeholders.Keys())
	}

	rec, ok := res.Placeholders["NAME"]
	if !ok {
		t.Fatal("NAME not detected")
	}
	if rec.Confidence != 90 {
		t.Errorf("confidence = %v, want 90", rec.Confidence)
	}
	// The first 90-confidence observation wins; the equal-confidence box
	// from the later pass must not displace it.
	if want := (Box{Left: 12, Top: 10, Width: 50, Height: 20}); rec.Box != want {
		t.Errorf("box = %+v, want %+v", rec.Box, want)
	}
	if rec.Text != "{{NAME}}" {
		t.Errorf("text = %q, want {{NAME}}", rec.Text)
	}
}

func TestDetector_MergesKeysAcrossPasses(t *testing.T) {
	engine := &fakeEngine{passes: [][]ocr.Word{
		{word("{{NAME}}", 80, 10, 10, 60, 30)},
		nil,
		nil,
		nil,
		{word("{{DATE}}", 75, 10, 50, 60, 70)},
	}}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), newWhiteImage(200, 100))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	want := []string{"DATE", "NAME"}
	got := res.Placeholders.Keys()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestDetector_TightensBoxToInk(t *testing.T) {
	img := newWhiteImage(200, 100)
	paintRect(img, image.Rect(30, 40, 70, 60), color.Black)

	engine := &fakeEngine{passes: [][]ocr.Word{
		{word("{{NAME}}", 80, 20, 30, 160, 80)},
	}}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	rec := res.Placeholders["NAME"]
	// Glyph ink spans (30,40)-(70,60); a 2px margin widens that to
	// (28,38)-(72,62).
	if want := (Box{Left: 28, Top: 38, Width: 44, Height: 24}); rec.Box != want {
		t.Errorf("tightened box = %+v, want %+v", rec.Box, want)
	}
}

func TestDetector_FallbackWhenEngineUnavailable(t *testing.T) {
	engine := &fakeEngine{pingErr: ocr.ErrUnavailable}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), newWhiteImage(1000, 500))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if engine.calls != 0 {
		t.Fatalf("engine ran %d passes despite failing ping", engine.calls)
	}

	wantBoxes := map[string]Box{
		"NAME": {Left: 300, Top: 200, Width: 400, Height: 40},
		"ROLE": {Left: 350, Top: 275, Width: 300, Height: 30},
		"DATE": {Left: 400, Top: 350, Width: 200, Height: 25},
	}
	if len(res.Placeholders) != len(wantBoxes) {
		t.Fatalf("placeholders = %v", res.Placeholders.Keys())
	}
	for key, want := range wantBoxes {
		rec, ok := res.Placeholders[key]
		if !ok {
			t.Errorf("missing fallback key %s", key)
			continue
		}
		if rec.Box != want {
			t.Errorf("%s box = %+v, want %+v", key, rec.Box, want)
		}
		if rec.Confidence != 50 {
			t.Errorf("%s confidence = %v, want 50", key, rec.Confidence)
		}
		if rec.Text != "{{"+key+"}}" {
			t.Errorf("%s text = %q", key, rec.Text)
		}
	}
}

func TestDetector_FallbackWhenEveryPassFails(t *testing.T) {
	engine := &fakeEngine{recErr: errors.New("tesseract crashed")}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), newWhiteImage(200, 100))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Passes != 12 || res.FailedPasses != 12 {
		t.Errorf("passes = %d failed = %d, want 12 and 12", res.Passes, res.FailedPasses)
	}
	if _, ok := res.Placeholders["NAME"]; !ok {
		t.Errorf("fallback layout missing NAME: %v", res.Placeholders.Keys())
	}
}

func TestDetector_EmptyMapWhenNoTokens(t *testing.T) {
	engine := &fakeEngine{passes: [][]ocr.Word{
		{word("Certificate", 96, 10, 10, 120, 30), word("of", 94, 130, 10, 150, 30)},
	}}
	d := NewDetector(engine, Config{}, nil)

	res, err := d.Detect(context.Background(), newWhiteImage(200, 100))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.Degraded {
		t.Fatal("result unexpectedly degraded")
	}
	if len(res.Placeholders) != 0 {
		t.Errorf("placeholders = %v, want none", res.Placeholders.Keys())
	}
}

func TestDetector_EmptyImage(t *testing.T) {
	d := NewDetector(&fakeEngine{}, Config{}, nil)
	_, err := d.Detect(context.Background(), image.NewRGBA(image.Rectangle{}))
	if !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("err = %v, want ErrEmptyImage", err)
	}
}

func TestDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{}
	d := NewDetector(engine, Config{}, nil)

	_, err := d.Detect(ctx, newWhiteImage(200, 100))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine ran %d passes after cancellation", engine.calls)
	}
}
