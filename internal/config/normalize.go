package config

import "strings"

// normalize expands path fields and fills gaps left by a sparse config file.
func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.TemplateDir,
		&c.Paths.OutputDir,
		&c.Paths.JobDir,
		&c.Paths.LogDir,
		&c.Paths.FontDir,
		&c.Detection.TessdataDir,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	languages := c.Detection.Languages[:0]
	for _, lang := range c.Detection.Languages {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			languages = append(languages, trimmed)
		}
	}
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	c.Detection.Languages = languages

	for _, list := range []*[]string{&c.Render.FontPaths, &c.Render.FallbackFontPaths} {
		paths := (*list)[:0]
		for _, p := range *list {
			trimmed := strings.TrimSpace(p)
			if trimmed == "" {
				continue
			}
			expanded, err := expandPath(trimmed)
			if err != nil {
				return err
			}
			paths = append(paths, expanded)
		}
		*list = paths
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	return nil
}
