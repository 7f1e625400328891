package batch

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/job"
	"github.com/certforge/certforge/internal/ocr"
	"github.com/certforge/certforge/internal/placeholder"
	"github.com/certforge/certforge/internal/render"
	"github.com/certforge/certforge/internal/rows"
	"github.com/certforge/certforge/internal/template"
)

// offlineEngine satisfies ocr.Engine but can never recognize anything.
// Tests pin layouts through sidecar files, so detection is never reached.
type offlineEngine struct{}

func (offlineEngine) Name() string { return "offline" }

func (offlineEngine) Ping(context.Context) error { return errors.New("engine offline") }

func (offlineEngine) Recognize(context.Context, image.Image, ocr.Options) ([]ocr.Word, error) {
	return nil, errors.New("engine offline")
}

type stubAnalyzer struct {
	analysis *template.Analysis
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, path string) (*template.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.analysis, nil
}

// countingRenderer tracks how many Render calls overlap and can be made
// to fail for a specific value.
type countingRenderer struct {
	mu      sync.Mutex
	current int
	peak    int
	delay   time.Duration
	failOn  string
}

func (r *countingRenderer) Render(img image.Image, text string, box image.Rectangle, hint string) (*image.RGBA, error) {
	r.mu.Lock()
	r.current++
	if r.current > r.peak {
		r.peak = r.current
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.current--
		r.mu.Unlock()
	}()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.failOn != "" && text == r.failOn {
		return nil, errors.New("draw failed")
	}
	return imaging.ToRGBA(img), nil
}

func (r *countingRenderer) observedPeak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func writeTemplatePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	if err := imaging.SavePNG(img, path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
}

func nameSource(names ...string) *rows.Source {
	src := &rows.Source{Columns: []string{"name"}}
	for _, n := range names {
		src.Rows = append(src.Rows, rows.NewRow(src.Columns, map[string]string{"name": n}))
	}
	return src
}

func newTestStore(t *testing.T) *job.Store {
	t.Helper()
	s, err := job.NewStore(filepath.Join(t.TempDir(), "jobs"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

// realAnalyzer builds the production analyzer stack with detection that
// can only be satisfied by a sidecar file.
func realAnalyzer(t *testing.T) *template.Analyzer {
	t.Helper()
	detector := placeholder.NewDetector(offlineEngine{}, placeholder.Config{}, nil)
	cache := template.NewCache(template.CacheConfig{}, nil)
	return template.NewAnalyzer(detector, cache, nil)
}

func hasInkInside(img image.Image, region image.Rectangle) bool {
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r>>8 < 128 && g>>8 < 128 && b>>8 < 128 {
				return true
			}
		}
	}
	return false
}

func TestCoordinator_GeneratesCertificatesPerRow(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "award.png")
	writeTemplatePNG(t, tmplPath, 600, 400)

	box := image.Rect(100, 200, 400, 260)
	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(box, image.Rect(0, 0, 600, 400), 100, "{{NAME}}"),
	}
	if err := placeholder.SaveSidecar(tmplPath, layout); err != nil {
		t.Fatalf("SaveSidecar: %v", err)
	}

	store := newTestStore(t)
	renderer := render.NewRenderer(nil, render.Config{}, nil)
	c := NewCoordinator(realAnalyzer(t), renderer, store, Config{OutputRoot: filepath.Join(dir, "out")}, nil)

	created, err := store.Create(3, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := c.Generate(context.Background(), created.ID, tmplPath, nameSource("Alice", "Bob", ""), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if result.TotalItems != 3 || result.GeneratedCount != 2 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != job.StatusCompletedWithErrors {
		t.Fatalf("status = %s, want %s", got.Status, job.StatusCompletedWithErrors)
	}
	if got.TotalItems != 3 || got.SuccessfulItems != 2 || got.FailedItems != 1 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if got.OutputDir != result.OutputDir {
		t.Fatalf("output dir not recorded: %q vs %q", got.OutputDir, result.OutputDir)
	}

	for _, name := range []string{"certificate_0001_Alice.png", "certificate_0002_Bob.png"} {
		if _, err := os.Stat(filepath.Join(result.OutputDir, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	entries, err := os.ReadDir(result.OutputDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d output files, want 2", len(entries))
	}

	failures, err := store.Errors(created.ID)
	if err != nil {
		t.Fatalf("Errors: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	if failures[0].ItemID != "row_3" {
		t.Fatalf("failure item = %q, want row_3", failures[0].ItemID)
	}
	if !strings.Contains(failures[0].Reason, "empty name value") {
		t.Fatalf("failure reason %q does not cite the empty name", failures[0].Reason)
	}

	// The rendered name must actually land inside the placeholder box.
	out, err := imaging.Load(filepath.Join(result.OutputDir, "certificate_0001_Alice.png"))
	if err != nil {
		t.Fatalf("Load output: %v", err)
	}
	if out.Bounds().Dx() != 600 || out.Bounds().Dy() != 400 {
		t.Fatalf("output size = %v", out.Bounds())
	}
	if !hasInkInside(out, box) {
		t.Fatal("expected rendered text inside the placeholder box")
	}
	if hasInkInside(out, image.Rect(0, 0, 600, 180)) {
		t.Fatal("ink leaked outside the placeholder region")
	}
}

func TestCoordinator_FailsJobWhenNoRows(t *testing.T) {
	store := newTestStore(t)
	c := NewCoordinator(&stubAnalyzer{}, &countingRenderer{}, store, Config{OutputRoot: t.TempDir()}, nil)

	created, err := store.Create(0, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Generate(context.Background(), created.ID, "unused.png", &rows.Source{}, nil); err == nil {
		t.Fatal("expected an error for an empty row source")
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != job.StatusFailed {
		t.Fatalf("status = %s, want %s", got.Status, job.StatusFailed)
	}
	failures, err := store.Errors(created.ID)
	if err != nil {
		t.Fatalf("Errors: %v", err)
	}
	if len(failures) != 1 || !strings.Contains(failures[0].Reason, "no rows") {
		t.Fatalf("unexpected failures: %+v", failures)
	}
}

func TestCoordinator_FailsJobWhenNoPlaceholders(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "blank.png")
	writeTemplatePNG(t, tmplPath, 100, 100)

	store := newTestStore(t)
	analyzer := &stubAnalyzer{analysis: &template.Analysis{Path: tmplPath, Placeholders: placeholder.Map{}}}
	c := NewCoordinator(analyzer, &countingRenderer{}, store, Config{OutputRoot: dir}, nil)

	created, err := store.Create(1, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = c.Generate(context.Background(), created.ID, tmplPath, nameSource("Alice"), nil)
	if err == nil || !strings.Contains(err.Error(), "no placeholders") {
		t.Fatalf("err = %v, want a zero-placeholder failure", err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != job.StatusFailed {
		t.Fatalf("status = %s, want %s", got.Status, job.StatusFailed)
	}
	if got.ProcessedItems != 0 {
		t.Fatalf("no rows may be counted on a pipeline failure: %+v", got)
	}
}

func TestCoordinator_FailsJobWhenTemplateUnreadable(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t)
	c := NewCoordinator(realAnalyzer(t), &countingRenderer{}, store, Config{OutputRoot: dir}, nil)

	created, err := store.Create(1, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = c.Generate(context.Background(), created.ID, filepath.Join(dir, "missing.png"), nameSource("Alice"), nil)
	if err == nil || !strings.Contains(err.Error(), "template analysis failed") {
		t.Fatalf("err = %v, want a template analysis failure", err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != job.StatusFailed {
		t.Fatalf("status = %s, want %s", got.Status, job.StatusFailed)
	}
}

func TestCoordinator_RendererFailureIsolatedToRow(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "award.png")
	writeTemplatePNG(t, tmplPath, 300, 200)

	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(image.Rect(20, 80, 280, 120), image.Rect(0, 0, 300, 200), 100, "{{NAME}}"),
	}
	store := newTestStore(t)
	analyzer := &stubAnalyzer{analysis: &template.Analysis{Path: tmplPath, Placeholders: layout}}
	renderer := &countingRenderer{failOn: "Bob"}
	c := NewCoordinator(analyzer, renderer, store, Config{OutputRoot: dir}, nil)

	created, err := store.Create(3, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := c.Generate(context.Background(), created.ID, tmplPath, nameSource("Alice", "Bob", "Carol"), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.GeneratedCount != 2 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	for _, name := range []string{"certificate_0001_Alice.png", "certificate_0003_Carol.png"} {
		if _, err := os.Stat(filepath.Join(result.OutputDir, name)); err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
	}
	failures, err := store.Errors(created.ID)
	if err != nil {
		t.Fatalf("Errors: %v", err)
	}
	if len(failures) != 1 || failures[0].ItemID != "row_2" {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if !strings.Contains(failures[0].Reason, "failed to render NAME") {
		t.Fatalf("failure reason %q does not identify the render step", failures[0].Reason)
	}
}

func TestCoordinator_SemaphoreBoundsConcurrency(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "award.png")
	writeTemplatePNG(t, tmplPath, 200, 100)

	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(image.Rect(10, 30, 190, 70), image.Rect(0, 0, 200, 100), 100, "{{NAME}}"),
	}
	store := newTestStore(t)
	analyzer := &stubAnalyzer{analysis: &template.Analysis{Path: tmplPath, Placeholders: layout}}
	renderer := &countingRenderer{delay: 20 * time.Millisecond}
	cfg := Config{
		OutputRoot:    dir,
		MaxConcurrent: 2,
		BatchSize:     8,
		SubBatchSize:  8,
	}
	c := NewCoordinator(analyzer, renderer, store, cfg, nil)

	created, err := store.Create(8, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	names := make([]string, 8)
	for i := range names {
		names[i] = "Person" + string(rune('A'+i))
	}
	result, err := c.Generate(context.Background(), created.ID, tmplPath, nameSource(names...), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.GeneratedCount != 8 {
		t.Fatalf("generated = %d, want 8", result.GeneratedCount)
	}
	if peak := renderer.observedPeak(); peak > cfg.MaxConcurrent {
		t.Fatalf("observed %d concurrent renders, cap is %d", peak, cfg.MaxConcurrent)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != job.StatusCompleted {
		t.Fatalf("status = %s, want %s", got.Status, job.StatusCompleted)
	}
}

func TestCoordinator_PreviewRendersWithoutJob(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "award.png")
	writeTemplatePNG(t, tmplPath, 600, 400)

	box := image.Rect(100, 200, 400, 260)
	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(box, image.Rect(0, 0, 600, 400), 100, "{{NAME}}"),
	}
	if err := placeholder.SaveSidecar(tmplPath, layout); err != nil {
		t.Fatalf("SaveSidecar: %v", err)
	}

	store := newTestStore(t)
	renderer := render.NewRenderer(nil, render.Config{}, nil)
	c := NewCoordinator(realAnalyzer(t), renderer, store, Config{OutputRoot: filepath.Join(dir, "out")}, nil)

	row := rows.NewRow([]string{"name"}, map[string]string{"name": "Alice"})
	img, name, err := c.Preview(context.Background(), tmplPath, []string{"name"}, row, nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if name != "Alice" {
		t.Fatalf("name = %q, want Alice", name)
	}
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 400 {
		t.Fatalf("preview size = %v", img.Bounds())
	}
	if !hasInkInside(img, box) {
		t.Fatal("expected rendered text inside the placeholder box")
	}

	jobs, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("preview created %d jobs, want none", len(jobs))
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Fatal("preview must not create output directories")
	}
}

func TestCoordinator_CreatesArchiveWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "award.png")
	writeTemplatePNG(t, tmplPath, 300, 200)

	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(image.Rect(20, 80, 280, 120), image.Rect(0, 0, 300, 200), 100, "{{NAME}}"),
	}
	store := newTestStore(t)
	analyzer := &stubAnalyzer{analysis: &template.Analysis{Path: tmplPath, Placeholders: layout}}
	c := NewCoordinator(analyzer, &countingRenderer{}, store, Config{OutputRoot: dir, CreateArchive: true}, nil)

	created, err := store.Create(2, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	result, err := c.Generate(context.Background(), created.ID, tmplPath, nameSource("Alice", "Bob"), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Archive == "" {
		t.Fatal("expected an archive path in the result")
	}
	if _, err := os.Stat(result.Archive); err != nil {
		t.Fatalf("archive missing: %v", err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Archive != result.Archive {
		t.Fatalf("archive not recorded on the job: %q vs %q", got.Archive, result.Archive)
	}
}
