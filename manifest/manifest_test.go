package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "tapir.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[tape]
size = 4096

[checks]
bounds = true
wrap = true
syntax = false

[run]
quiet = true
eof = 0

[history]
path = "runs.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Tape.Size != 4096 {
		t.Errorf("tape size = %d, want 4096", m.Tape.Size)
	}
	if !m.Checks.Bounds || !m.Checks.Wrap || m.Checks.Syntax {
		t.Errorf("checks = %+v, want bounds+wrap only", m.Checks)
	}
	if !m.Run.Quiet {
		t.Error("quiet not set")
	}
	if m.Run.EOF != 0 {
		t.Errorf("eof = %d, want 0", m.Run.EOF)
	}
	if want := filepath.Join(m.Dir, "runs.db"); m.HistoryPath() != want {
		t.Errorf("history path = %q, want %q", m.HistoryPath(), want)
	}

	cfg := m.Config()
	if cfg.DataSize != 4096 || !cfg.BoundsCheck || !cfg.WrapCheck || cfg.SyntaxCheck || !cfg.Quiet {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Tape.Size != 30000 {
		t.Errorf("tape size = %d, want 30000", m.Tape.Size)
	}
	if m.Run.EOF != -1 {
		t.Errorf("eof = %d, want -1", m.Run.EOF)
	}
	if m.HistoryPath() != "" {
		t.Errorf("history path = %q, want empty", m.HistoryPath())
	}
}

func TestLoadManifestRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[tape]\nsize = 0\n")
	if _, err := Load(dir); err == nil {
		t.Error("zero tape size accepted")
	}

	writeManifest(t, dir, "[run]\neof = 300\n")
	if _, err := Load(dir); err == nil {
		t.Error("out-of-range eof accepted")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[tape]\nsize = 64\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("manifest not found")
	}
	if m.Tape.Size != 64 {
		t.Errorf("tape size = %d, want 64", m.Tape.Size)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("manifest = %+v, want nil", m)
	}
}
