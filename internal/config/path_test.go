package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/lattice" {
		t.Fatalf("data dir = %s", got)
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	t.Setenv("HOME", "")
	os.Unsetenv("HOME")

	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("fallback = %s", got)
	}
}

func TestDefaultDataDirShape(t *testing.T) {
	got := DefaultDataDir()
	if got == "" {
		t.Fatal("empty data dir")
	}
	if !filepath.IsAbs(got) && !strings.HasPrefix(got, "./") {
		t.Fatalf("expected absolute or ./-relative path, got %s", got)
	}
	lower := strings.ToLower(got)
	if !strings.HasSuffix(lower, "lattice") && !strings.HasSuffix(lower, "data") {
		t.Fatalf("unexpected data dir %s", got)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Fatal("current directory should be a dir")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Fatal("missing path reported as dir")
	}
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if isDir(file) {
		t.Fatal("file reported as dir")
	}
}
