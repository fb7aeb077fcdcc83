package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if !Exists(dir) {
		t.Errorf("Exists(%q) = false, want true", dir)
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists() = true for a missing file")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Game", "GameAssembly.dll")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("assembly"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "work", "Game", "GameAssembly.dll")
	n, err := CopyFile(src, dst)
	if err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	if n != int64(len("assembly")) {
		t.Errorf("CopyFile() n = %d, want %d", n, len("assembly"))
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "assembly" {
		t.Errorf("CopyFile() content = %q, want %q", got, "assembly")
	}
	if !Exists(dst) {
		t.Errorf("Exists(%s) = false, want true", dst)
	}

	if _, err := CopyFile(dir, filepath.Join(dir, "out")); err == nil {
		t.Error("CopyFile() of a directory should fail")
	}
	if _, err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); err == nil {
		t.Error("CopyFile() of a missing file should fail")
	}
}
