package placeholder

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/certforge/certforge/internal/fsutil"
)

// manualConfidence is assigned to sidecar records that carry no confidence
// of their own. Manually placed regions are treated as authoritative.
const manualConfidence = 100

// SidecarPath returns the manual-layout file that accompanies a template,
// e.g. /path/cert.png becomes /path/cert_placeholders.json.
func SidecarPath(templatePath string) string {
	ext := filepath.Ext(templatePath)
	return strings.TrimSuffix(templatePath, ext) + "_placeholders.json"
}

// LoadSidecar reads the manual placeholder layout stored next to a
// template. The second return value reports whether a sidecar file exists.
// Keys are normalized on load and regions are clamped to bounds; entries
// that end up with an empty key or an empty region are dropped.
func LoadSidecar(templatePath string, bounds image.Rectangle) (Map, bool, error) {
	path := SidecarPath(templatePath)
	raw := map[string]Record{}
	if err := fsutil.ReadJSON(path, &raw); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read placeholder sidecar: %w", err)
	}

	m := make(Map, len(raw))
	for rawKey, rec := range raw {
		key := NormalizeKey(rawKey)
		if key == "" {
			continue
		}
		rec = normalizeRecord(key, rec)
		if !bounds.Empty() {
			rec = NewRecord(rec.Rect(), bounds, rec.Confidence, rec.Text)
		}
		if rec.Box.Empty() {
			continue
		}
		m[key] = rec
	}
	return m, true, nil
}

// SaveSidecar writes the manual placeholder layout next to the template,
// replacing any previous sidecar atomically.
func SaveSidecar(templatePath string, m Map) error {
	out := make(Map, len(m))
	for rawKey, rec := range m {
		key := NormalizeKey(rawKey)
		if key == "" {
			return fmt.Errorf("invalid placeholder key %q", rawKey)
		}
		out[key] = normalizeRecord(key, rec)
	}
	if err := fsutil.WriteJSONAtomic(SidecarPath(templatePath), out); err != nil {
		return fmt.Errorf("failed to write placeholder sidecar: %w", err)
	}
	return nil
}

// RemoveSidecar deletes the manual layout for a template. Removing a
// sidecar that does not exist is not an error.
func RemoveSidecar(templatePath string) error {
	err := os.Remove(SidecarPath(templatePath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove placeholder sidecar: %w", err)
	}
	return nil
}

// normalizeRecord reconciles a record that arrived from external input.
// The nested box wins when present, the flat fields fill in otherwise, a
// missing confidence defaults to manual, and a missing text gets the
// token form of the key.
func normalizeRecord(key string, rec Record) Record {
	box := rec.Box
	if box.Empty() {
		box = Box{Left: rec.Left, Top: rec.Top, Width: rec.Width, Height: rec.Height}
	}
	rec.Left, rec.Top, rec.Width, rec.Height = box.Left, box.Top, box.Width, box.Height
	rec.Box = box
	if rec.Confidence <= 0 {
		rec.Confidence = manualConfidence
	}
	if rec.Text == "" {
		rec.Text = "{{" + key + "}}"
	}
	return rec
}
