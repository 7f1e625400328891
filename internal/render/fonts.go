package render

import (
	"log/slog"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/certforge/certforge/internal/logging"
)

// FontChain resolves typefaces for rendering. Candidate files are tried
// in order: the preferred list, then the fallback list, then the Go
// Regular face compiled into the binary, and finally a fixed-size bitmap
// face. A face always comes back, whatever the host has installed.
//
// Parsed fonts are cached and shared. The faces handed out are fresh per
// call: a font.Face caches rasterization state and must not be used from
// more than one goroutine.
type FontChain struct {
	preferred []string
	fallback  []string
	logger    *slog.Logger

	mu       sync.Mutex
	parsed   map[string]*sfnt.Font
	rejected map[string]bool
	embedded *sfnt.Font
}

// NewFontChain builds a chain over the given font file candidates. Either
// list may be empty; a nil logger disables logging.
func NewFontChain(preferred, fallback []string, logger *slog.Logger) *FontChain {
	return &FontChain{
		preferred: preferred,
		fallback:  fallback,
		logger:    logging.WithComponent(logger, "fonts"),
		parsed:    make(map[string]*sfnt.Font),
		rejected:  make(map[string]bool),
	}
}

// Face returns a face at the given pixel size. Missing or unparsable font
// files are skipped and remembered, so repeated calls do not re-stat dead
// paths.
func (fc *FontChain) Face(size float64) font.Face {
	for _, list := range [][]string{fc.preferred, fc.fallback} {
		for _, path := range list {
			f := fc.load(path)
			if f == nil {
				continue
			}
			if face := newFace(f, size); face != nil {
				return face
			}
		}
	}
	if f := fc.loadEmbedded(); f != nil {
		if face := newFace(f, size); face != nil {
			return face
		}
	}
	return basicfont.Face7x13
}

func newFace(f *sfnt.Font, size float64) font.Face {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}
	return face
}

func (fc *FontChain) load(path string) *sfnt.Font {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.rejected[path] {
		return nil
	}
	if f, ok := fc.parsed[path]; ok {
		return f
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fc.rejected[path] = true
		fc.logger.Debug("font file unavailable", logging.String("path", path), logging.Error(err))
		return nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		fc.rejected[path] = true
		fc.logger.Warn("font file unparsable", logging.String("path", path), logging.Error(err))
		return nil
	}
	fc.parsed[path] = f
	fc.logger.Debug("font loaded", logging.String("path", path))
	return f
}

func (fc *FontChain) loadEmbedded() *sfnt.Font {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.embedded == nil {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil
		}
		fc.embedded = f
	}
	return fc.embedded
}
