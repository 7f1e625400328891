package config

const (
	defaultTemplateDir      = "~/.local/share/certforge/templates"
	defaultOutputDir        = "~/.local/share/certforge/output"
	defaultJobDir           = "~/.local/share/certforge/jobs"
	defaultLogDir           = "~/.local/share/certforge/logs"
	defaultMinConfidence    = 60
	defaultOCRTimeout       = 30
	defaultCacheMaxEntries  = 100
	defaultCacheTTLHours    = 24
	defaultEraseMargin      = 2
	defaultMaxConcurrent    = 8
	defaultSubBatchSize     = 3
	defaultCleanupThreshold = 15
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TemplateDir: defaultTemplateDir,
			OutputDir:   defaultOutputDir,
			JobDir:      defaultJobDir,
			LogDir:      defaultLogDir,
		},
		Detection: Detection{
			Languages:      []string{"eng"},
			MinConfidence:  defaultMinConfidence,
			TimeoutSeconds: defaultOCRTimeout,
		},
		Cache: Cache{
			MaxEntries: defaultCacheMaxEntries,
			TTLHours:   defaultCacheTTLHours,
		},
		Render: Render{
			EraseMargin: defaultEraseMargin,
			FontPaths: []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSerif.ttf",
				"/usr/share/fonts/dejavu/DejaVuSerif.ttf",
				"/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
			},
			FallbackFontPaths: []string{
				"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
				"/usr/share/fonts/dejavu/DejaVuSans.ttf",
				"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			},
		},
		Batch: Batch{
			MaxConcurrent:    defaultMaxConcurrent,
			SubBatchSize:     defaultSubBatchSize,
			CleanupThreshold: defaultCleanupThreshold,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
