package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/certforge/certforge/internal/archive"
	"github.com/certforge/certforge/internal/fsutil"
	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/job"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/render"
	"github.com/certforge/certforge/internal/rows"
	"github.com/certforge/certforge/internal/template"
)

const (
	defaultMaxConcurrent = 8
	defaultBatchSize     = 15
	defaultSubBatchSize  = 3
)

// Analyzer resolves a template into its placeholder layout.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*template.Analysis, error)
}

// Renderer draws one placeholder value onto an image copy.
type Renderer interface {
	Render(img image.Image, text string, box image.Rectangle, hint string) (*image.RGBA, error)
}

var (
	_ Analyzer = (*template.Analyzer)(nil)
	_ Renderer = (*render.Renderer)(nil)
)

// Config adjusts coordinator behavior.
type Config struct {
	// OutputRoot is the directory under which each job gets its own
	// output subdirectory.
	OutputRoot string
	// MaxConcurrent caps row tasks holding render buffers at once.
	MaxConcurrent int
	// BatchSize is the number of rows per outer batch.
	BatchSize int
	// SubBatchSize is the number of rows rendered together between
	// memory reclamation passes.
	SubBatchSize int
	// CreateArchive bundles the finished certificates into a zip.
	CreateArchive bool
}

// Result summarizes one finished generation run.
type Result struct {
	JobID          string `json:"job_id"`
	TotalItems     int    `json:"total_items"`
	GeneratedCount int    `json:"generated_count"`
	FailedCount    int    `json:"failed_count"`
	OutputDir      string `json:"output_dir"`
	Archive        string `json:"archive,omitempty"`
}

// rowResult is the outcome of a single row task. Exactly one of path or
// err is set.
type rowResult struct {
	index int
	path  string
	err   error
}

// Coordinator runs batch generation against a shared semaphore, so the
// concurrency cap holds across overlapping jobs.
type Coordinator struct {
	analyzer Analyzer
	renderer Renderer
	store    *job.Store
	cfg      Config
	sem      chan struct{}
	logger   *slog.Logger
}

// NewCoordinator builds a Coordinator. Non-positive sizes select the
// defaults (8 concurrent, batches of 15, sub-batches of 3).
func NewCoordinator(analyzer Analyzer, renderer Renderer, store *job.Store, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = defaultSubBatchSize
	}
	return &Coordinator{
		analyzer: analyzer,
		renderer: renderer,
		store:    store,
		cfg:      cfg,
		sem:      make(chan struct{}, cfg.MaxConcurrent),
		logger:   logging.WithComponent(logger, "batch"),
	}
}

// Generate renders one certificate per row of src into a job-scoped
// output directory, updating the job after every row. Pipeline problems
// (no rows, unreadable template, zero placeholders) mark the whole job
// failed with no output claimed; row-level problems are recorded and
// skipped. ctx bounds the template analysis; a run that has started
// rendering completes regardless, since half-finished jobs would strand
// their recorded progress.
func (c *Coordinator) Generate(ctx context.Context, jobID, templatePath string, src *rows.Source, mapping rows.Mapping) (*Result, error) {
	if _, err := c.store.SetStatus(jobID, job.StatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to mark job processing: %w", err)
	}

	if src == nil || len(src.Rows) == 0 {
		return nil, c.failJob(jobID, "no rows found in data source")
	}
	analysis, err := c.analyzer.Analyze(ctx, templatePath)
	if err != nil {
		return nil, c.failJob(jobID, fmt.Sprintf("template analysis failed: %v", err))
	}
	if len(analysis.Placeholders) == 0 {
		return nil, c.failJob(jobID, "no placeholders detected in template")
	}
	tmpl, err := imaging.LoadRGBA(templatePath)
	if err != nil {
		return nil, c.failJob(jobID, fmt.Sprintf("failed to load template: %v", err))
	}
	outputDir := filepath.Join(c.cfg.OutputRoot, jobID)
	if err := fsutil.EnsureDir(outputDir); err != nil {
		return nil, c.failJob(jobID, fmt.Sprintf("failed to create output directory: %v", err))
	}
	// Recorded before any row renders so pollers see where output is
	// accumulating, and so the directory is already on the job when the
	// final progress update flips it to a terminal state.
	if _, err := c.store.SetOutputDir(jobID, outputDir); err != nil {
		return nil, c.abortPersistence(jobID, err)
	}

	total := len(src.Rows)
	binder := rows.NewBinder(src.Columns, mapping)
	c.logger.Info("starting generation",
		logging.String("job_id", jobID),
		logging.String("template", templatePath),
		logging.Int("rows", total),
		logging.Int("placeholders", len(analysis.Placeholders)))

	generated := 0
	failed := 0
	for batchStart := 0; batchStart < total; batchStart += c.cfg.BatchSize {
		batchEnd := min(batchStart+c.cfg.BatchSize, total)
		c.logger.Info("processing batch",
			logging.String("job_id", jobID),
			logging.Int("batch", batchStart/c.cfg.BatchSize+1),
			logging.Int("first_row", batchStart+1),
			logging.Int("last_row", batchEnd))

		for subStart := batchStart; subStart < batchEnd; subStart += c.cfg.SubBatchSize {
			subEnd := min(subStart+c.cfg.SubBatchSize, batchEnd)

			results := make([]rowResult, subEnd-subStart)
			var wg sync.WaitGroup
			for i := subStart; i < subEnd; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					c.sem <- struct{}{}
					defer func() { <-c.sem }()
					results[i-subStart] = c.renderRow(binder, analysis, tmpl, src.Rows[i], i+1, outputDir)
				}(i)
			}
			wg.Wait()

			for _, res := range results {
				itemID := fmt.Sprintf("row_%d", res.index)
				if res.err != nil {
					failed++
					c.logger.Error("row failed",
						logging.String("job_id", jobID),
						logging.String("item_id", itemID),
						logging.Error(res.err))
					if _, err := c.store.UpdateProgress(jobID, false, res.err.Error(), itemID); err != nil {
						return nil, c.abortPersistence(jobID, err)
					}
					continue
				}
				generated++
				c.logger.Debug("certificate generated",
					logging.String("job_id", jobID),
					logging.String("path", res.path))
				if _, err := c.store.UpdateProgress(jobID, true, "", itemID); err != nil {
					return nil, c.abortPersistence(jobID, err)
				}
			}

			c.reclaimMemory()
		}
	}

	result := &Result{
		JobID:          jobID,
		TotalItems:     total,
		GeneratedCount: generated,
		FailedCount:    failed,
		OutputDir:      outputDir,
	}

	if c.cfg.CreateArchive && generated > 0 {
		archivePath := filepath.Join(outputDir, archive.Name(jobID))
		if _, err := archive.Create(archivePath, outputDir); err != nil {
			// The certificates themselves are intact, so a bundling
			// problem is not a job failure.
			c.logger.Warn("failed to create archive",
				logging.String("job_id", jobID),
				logging.Error(err))
		} else {
			result.Archive = archivePath
			if _, err := c.store.SetArchive(jobID, archivePath); err != nil {
				return nil, c.abortPersistence(jobID, err)
			}
		}
	}

	c.logger.Info("generation finished",
		logging.String("job_id", jobID),
		logging.Int("generated", generated),
		logging.Int("failed", failed))
	return result, nil
}

// Preview renders a single certificate in memory, without a job record
// or an output file. It returns the rendered image and the resolved
// recipient name.
func (c *Coordinator) Preview(ctx context.Context, templatePath string, columns []string, row rows.Row, mapping rows.Mapping) (image.Image, string, error) {
	analysis, err := c.analyzer.Analyze(ctx, templatePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to analyze template: %w", err)
	}
	if len(analysis.Placeholders) == 0 {
		return nil, "", errors.New("no placeholders detected in template")
	}
	tmpl, err := imaging.LoadRGBA(templatePath)
	if err != nil {
		return nil, "", err
	}
	binder := rows.NewBinder(columns, mapping)
	name, err := binder.Name(row)
	if err != nil {
		return nil, "", err
	}
	img, err := c.renderCertificate(binder, analysis, tmpl, row)
	if err != nil {
		return nil, "", err
	}
	return img, name, nil
}

// renderRow produces one certificate file.
func (c *Coordinator) renderRow(binder *rows.Binder, analysis *template.Analysis, tmpl *image.RGBA, row rows.Row, index int, outputDir string) rowResult {
	name, err := binder.Name(row)
	if err != nil {
		return rowResult{index: index, err: err}
	}
	img, err := c.renderCertificate(binder, analysis, tmpl, row)
	if err != nil {
		return rowResult{index: index, err: err}
	}

	filename := fmt.Sprintf("certificate_%04d_%s.png", index, fsutil.SanitizeFilename(name))
	path := filepath.Join(outputDir, filename)
	if err := imaging.SavePNG(img, path); err != nil {
		return rowResult{index: index, err: fmt.Errorf("failed to save certificate: %w", err)}
	}
	return rowResult{index: index, path: path}
}

// renderCertificate applies every matched placeholder value to a copy of
// the shared template. The template itself is never mutated; each render
// draws onto a fresh copy.
func (c *Coordinator) renderCertificate(binder *rows.Binder, analysis *template.Analysis, tmpl *image.RGBA, row rows.Row) (image.Image, error) {
	var current image.Image = tmpl
	for _, key := range analysis.Placeholders.Keys() {
		value, ok := binder.Value(row, key)
		if !ok || value == "" {
			continue
		}
		rec := analysis.Placeholders[key]
		out, err := c.renderer.Render(current, value, rec.Box.Rect(), strings.ToLower(key))
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", key, err)
		}
		current = out
	}
	return current, nil
}

// failJob records a pipeline-level failure and returns it as the
// Generate error.
func (c *Coordinator) failJob(jobID, reason string) error {
	if _, err := c.store.Fail(jobID, reason); err != nil {
		c.logger.Error("failed to record job failure",
			logging.String("job_id", jobID),
			logging.Error(err))
	}
	return errors.New(reason)
}

// abortPersistence stops the run once job-state writes fail. Progress
// that cannot be recorded is worse than an aborted job.
func (c *Coordinator) abortPersistence(jobID string, err error) error {
	c.logger.Error("aborting batch, job state writes are failing",
		logging.String("job_id", jobID),
		logging.Error(err))
	return fmt.Errorf("failed to persist job progress: %w", err)
}

// reclaimMemory forces a collection pass between sub-batches, trading
// throughput for a hard ceiling on resident image buffers.
func (c *Coordinator) reclaimMemory() {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	runtime.ReadMemStats(&after)
	c.logger.Debug("memory reclaimed",
		logging.Int("heap_mb_before", int(before.HeapAlloc>>20)),
		logging.Int("heap_mb_after", int(after.HeapAlloc>>20)))
}
