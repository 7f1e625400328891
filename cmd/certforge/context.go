package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/certforge/certforge/internal/batch"
	"github.com/certforge/certforge/internal/config"
	"github.com/certforge/certforge/internal/job"
	"github.com/certforge/certforge/internal/logging"
	"github.com/certforge/certforge/internal/ocr"
	"github.com/certforge/certforge/internal/placeholder"
	"github.com/certforge/certforge/internal/render"
	"github.com/certforge/certforge/internal/template"
)

// commandContext shares lazily built configuration and services across
// subcommands. Nothing is loaded until a command asks, so commands like
// version and config init run without touching the filesystem.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	servicesOnce sync.Once
	services     *services
	servicesErr  error
}

// services bundles the wired pipeline a command operates on.
type services struct {
	logger      *slog.Logger
	engine      ocr.Engine
	cache       *template.Cache
	analyzer    *template.Analyzer
	store       *job.Store
	coordinator *batch.Coordinator
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// discoverFonts lists the .ttf and .otf files in dir, sorted by name. The
// configured font dir is optional; a missing or empty dir yields nothing.
func discoverFonts(dir string) []string {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var fonts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".ttf", ".otf":
			fonts = append(fonts, filepath.Join(dir, entry.Name()))
		}
	}
	return fonts
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureServices builds the full pipeline from configuration: logger, OCR
// engine, detector, analysis cache, renderer, job store, and coordinator.
func (c *commandContext) ensureServices() (*services, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	c.servicesOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.servicesErr = fmt.Errorf("build logger: %w", err)
			return
		}

		engine := ocr.NewTesseract(cfg.Detection.Languages, cfg.Detection.TessdataDir)
		detector := placeholder.NewDetector(engine, placeholder.Config{
			MinConfidence: cfg.Detection.MinConfidence,
			PassTimeout:   time.Duration(cfg.Detection.TimeoutSeconds) * time.Second,
		}, logger)

		cache := template.NewCache(template.CacheConfig{
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        time.Duration(cfg.Cache.TTLHours) * time.Hour,
		}, logger)
		analyzer := template.NewAnalyzer(detector, cache, logger)

		preferred := append(append([]string(nil), cfg.Render.FontPaths...), discoverFonts(cfg.Paths.FontDir)...)
		fonts := render.NewFontChain(preferred, cfg.Render.FallbackFontPaths, logger)
		renderer := render.NewRenderer(fonts, render.Config{
			EraseMargin: cfg.Render.EraseMargin,
			FontSize:    cfg.Render.FontSize,
		}, logger)

		store, err := job.NewStore(cfg.Paths.JobDir, logger)
		if err != nil {
			c.servicesErr = fmt.Errorf("open job store: %w", err)
			return
		}

		coordinator := batch.NewCoordinator(analyzer, renderer, store, batch.Config{
			OutputRoot:    cfg.Paths.OutputDir,
			MaxConcurrent: cfg.Batch.MaxConcurrent,
			BatchSize:     cfg.Batch.CleanupThreshold,
			SubBatchSize:  cfg.Batch.SubBatchSize,
			CreateArchive: cfg.Batch.CreateArchive,
		}, logger)

		c.services = &services{
			logger:      logger,
			engine:      engine,
			cache:       cache,
			analyzer:    analyzer,
			store:       store,
			coordinator: coordinator,
		}
	})
	return c.services, c.servicesErr
}
