package fileutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	n, err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o644, true)
	if err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if n != 7 {
		t.Fatalf("n=%d, want 7", n)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "{\"a\":1}\n" {
		t.Fatalf("content=%q", string(b))
	}

	// Overwrite in place, no trailing newline.
	if _, err := WriteFileAtomic(path, []byte("raw"), 0o600, false); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}
	b, _ = os.ReadFile(path)
	if string(b) != "raw" {
		t.Fatalf("content=%q, want raw", string(b))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1 (temp files must be cleaned up)", len(entries))
	}
}

func TestWriteJSONFileAtomicPretty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "v.json")
	if _, err := WriteJSONFileAtomic(path, map[string]int{"x": 1}, true, 0o600); err != nil {
		t.Fatalf("WriteJSONFileAtomic: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "{\n  \"x\": 1\n}\n" {
		t.Fatalf("content=%q", string(b))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%v, want 0600", info.Mode().Perm())
	}
	if err := EnsureNotExists(path); err == nil {
		t.Fatalf("EnsureNotExists: expected error for existing file")
	}
	if err := EnsureNotExists(path + ".missing"); err != nil {
		t.Fatalf("EnsureNotExists missing: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  héllo wörld  ", 5); got != "héllo…" {
		t.Fatalf("Truncate=%q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate=%q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("Truncate=%q", got)
	}
}

func TestSanitizeFilenameComponent(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"abc-123":       "abc-123",
		"../etc/passwd": "etc_passwd",
		"  .hidden ":    "hidden",
		"a b/c":         "a_b_c",
		"":              "",
	}
	for in, want := range cases {
		if got := SanitizeFilenameComponent(in); got != want {
			t.Fatalf("SanitizeFilenameComponent(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestDirUsage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files, size, err := DirUsage(filepath.Join(dir, "missing"))
	if err != nil || files != 0 || size != 0 {
		t.Fatalf("DirUsage missing=(%d,%d,%v), want (0,0,nil)", files, size, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(strings.Repeat("x", 10)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".tmp_write_1"), []byte("zz"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, size, err = DirUsage(dir)
	if err != nil {
		t.Fatalf("DirUsage: %v", err)
	}
	if files != 1 || size != 10 {
		t.Fatalf("DirUsage=(%d,%d), want (1,10)", files, size)
	}
}
