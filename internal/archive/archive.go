// Package archive bundles generated certificate images into zip files.
package archive

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Deflate level for certificate bundles. PNG payloads are already
// compressed, so the middle level costs little and saves header bytes.
const compressionLevel = 6

// Name returns the conventional bundle filename for a job.
func Name(jobID string) string {
	return fmt.Sprintf("certificates_%s.zip", jobID)
}

// Create writes a zip of every .png file directly under dir to zipPath
// and returns the number of entries written. Entries are stored under
// their base names in sorted order. Files that vanish between listing
// and archiving are skipped rather than failing the bundle.
func Create(zipPath, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	f, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, compressionLevel)
	})

	added := 0
	for _, name := range names {
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			zw.Close()
			f.Close()
			os.Remove(zipPath)
			return 0, err
		}
		added++
	}

	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(zipPath)
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(zipPath)
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	return added, nil
}

// addFile streams one file into the archive. An open failure is returned
// unwrapped so Create can recognize entries that no longer exist.
func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to compress %s: %w", name, err)
	}
	return nil
}
