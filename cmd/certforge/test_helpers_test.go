package main

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/certforge/certforge/internal/imaging"
	"github.com/certforge/certforge/internal/placeholder"
)

// cliTestEnv roots every configured directory inside a temp dir so commands
// never touch the invoking user's home. Templates carry a sidecar layout, so
// no OCR engine is ever consulted during analysis.
type cliTestEnv struct {
	configPath  string
	templateDir string
	outputDir   string
	jobDir      string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		configPath:  filepath.Join(base, "config.toml"),
		templateDir: filepath.Join(base, "templates"),
		outputDir:   filepath.Join(base, "output"),
		jobDir:      filepath.Join(base, "jobs"),
	}

	content := fmt.Sprintf(`[paths]
template_dir = %q
output_dir = %q
job_dir = %q
log_dir = %q

[logging]
level = "error"
format = "json"
`, env.templateDir, env.outputDir, env.jobDir, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// template writes a white 600x400 template with a manual NAME layout and
// returns its path.
func (env *cliTestEnv) template(t *testing.T) string {
	t.Helper()

	if err := os.MkdirAll(env.templateDir, 0o755); err != nil {
		t.Fatalf("mkdir templates: %v", err)
	}
	path := filepath.Join(env.templateDir, "template.png")

	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	if err := imaging.SavePNG(img, path); err != nil {
		t.Fatalf("save template: %v", err)
	}

	layout := placeholder.Map{
		"NAME": placeholder.NewRecord(image.Rect(100, 200, 400, 260), image.Rect(0, 0, 600, 400), 100, "{{NAME}}"),
	}
	if err := placeholder.SaveSidecar(path, layout); err != nil {
		t.Fatalf("save sidecar: %v", err)
	}
	return path
}

// csv writes content as a recipients file and returns its path.
func (env *cliTestEnv) csv(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(filepath.Dir(env.configPath), "recipients.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// runCLI executes the root command with the environment's config flag
// prepended and returns captured stdout and stderr.
func (env *cliTestEnv) runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
