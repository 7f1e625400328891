package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPreviewCommand_SetValues(t *testing.T) {
	env := setupCLITestEnv(t)
	tmpl := env.template(t)
	target := filepath.Join(t.TempDir(), "preview.png")

	out, _, err := env.runCLI(t, "preview", tmpl, "--set", "name=Ada Lovelace", "--out", target)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	requireContains(t, out, `Preview for "Ada Lovelace"`)
	requireContains(t, out, target)

	f, err := os.Open(target)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 400 {
		t.Errorf("preview size = %dx%d, want 600x400", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPreviewCommand_FromData(t *testing.T) {
	env := setupCLITestEnv(t)
	tmpl := env.template(t)
	data := env.csv(t, "name\nAlice\nBob\n")
	target := filepath.Join(t.TempDir(), "row2.png")

	out, _, err := env.runCLI(t, "preview", tmpl, "--data", data, "--row", "2", "--out", target)
	if err != nil {
		t.Fatalf("preview from data: %v", err)
	}
	requireContains(t, out, `Preview for "Bob"`)

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected preview at %s: %v", target, err)
	}
}

func TestPreviewCommand_RowOutOfRange(t *testing.T) {
	env := setupCLITestEnv(t)
	tmpl := env.template(t)
	data := env.csv(t, "name\nAlice\n")

	_, _, err := env.runCLI(t, "preview", tmpl, "--data", data, "--row", "5")
	if err == nil {
		t.Fatal("expected error for out-of-range row")
	}
	requireContains(t, err.Error(), "out of range")
}

func TestPreviewCommand_RequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)
	tmpl := env.template(t)

	_, _, err := env.runCLI(t, "preview", tmpl)
	if err == nil {
		t.Fatal("expected error without --set or --data")
	}
	requireContains(t, err.Error(), "either --set or --data is required")
}
