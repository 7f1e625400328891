// Package config loads and validates certforge configuration from TOML.
//
// Configuration is looked up at an explicit path, then
// ~/.config/certforge/config.toml, then ./certforge.toml. Missing files are
// not an error: defaults apply and the resolved path reports exists=false.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TemplateDir string `toml:"template_dir"`
	OutputDir   string `toml:"output_dir"`
	JobDir      string `toml:"job_dir"`
	LogDir      string `toml:"log_dir"`
	FontDir     string `toml:"font_dir"`
}

// Detection contains configuration for OCR placeholder detection.
type Detection struct {
	Languages      []string `toml:"languages"`
	MinConfidence  float64  `toml:"min_confidence"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	TessdataDir    string   `toml:"tessdata_dir"`
}

// Cache contains configuration for the analyzed-template cache.
type Cache struct {
	MaxEntries int `toml:"max_entries"`
	TTLHours   int `toml:"ttl_hours"`
}

// Render contains configuration for text rendering onto templates.
type Render struct {
	// FontSize forces a fixed size for every placeholder. Zero selects
	// adaptive sizing from the placeholder box.
	FontSize    int `toml:"font_size"`
	EraseMargin int `toml:"erase_margin"`
	// FontPaths are tried in order for the preferred (serif) face;
	// FallbackFontPaths for the sans face. Missing files are skipped,
	// and rendering always succeeds via built-in fonts.
	FontPaths         []string `toml:"font_paths"`
	FallbackFontPaths []string `toml:"fallback_font_paths"`
}

// Batch contains configuration for batch generation.
type Batch struct {
	MaxConcurrent    int  `toml:"max_concurrent"`
	SubBatchSize     int  `toml:"sub_batch_size"`
	CleanupThreshold int  `toml:"cleanup_threshold"`
	CreateArchive    bool `toml:"create_archive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for certforge.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Detection Detection `toml:"detection"`
	Cache     Cache     `toml:"cache"`
	Render    Render    `toml:"render"`
	Batch     Batch     `toml:"batch"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/certforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("certforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories batch generation writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TemplateDir, c.Paths.OutputDir, c.Paths.JobDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
