package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name unchanged", "Alice_Smith-2024.png", "Alice_Smith-2024.png"},
		{"spaces replaced", "Alice Smith", "Alice_Smith"},
		{"path separators replaced", "a/b\\c", "a_b_c"},
		{"unicode replaced", "Ada Lovelaceé", "Ada_Lovelace_"},
		{"symbols replaced", "name:with*stars?", "name_with_stars_"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFileMD5(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := FileMD5(path)
	if err != nil {
		t.Fatalf("FileMD5 failed: %v", err)
	}
	// md5("hello")
	want := "5d41402abc4b2a76b9719d911017c592"
	if got != want {
		t.Errorf("FileMD5 = %q, want %q", got, want)
	}

	if _, err := FileMD5(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteJSONAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := WriteJSONAtomic(path, doc{Name: "batch", Count: 3}); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}

	var got doc
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if got.Name != "batch" || got.Count != 3 {
		t.Errorf("round trip = %+v, want {batch 3}", got)
	}

	// Overwrite must replace, not append.
	if err := WriteJSONAtomic(path, doc{Name: "second", Count: 1}); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("ReadJSON after overwrite failed: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("after overwrite Name = %q, want %q", got.Name, "second")
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	info, err := os.Stat(nested)
	if err != nil {
		t.Fatalf("stat created dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("created path is not a directory")
	}
	// Idempotent on existing directory.
	if err := EnsureDir(nested); err != nil {
		t.Errorf("EnsureDir on existing dir failed: %v", err)
	}
}
