package fileutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func SanitizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// Truncate trims s and cuts it to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "…"
		}
		n++
	}
	return s
}

// SanitizeFilenameComponent keeps letters, digits, '-', '_' and '.'; everything else becomes '_'.
// Leading and trailing dots, dashes and underscores are removed so the result can never name a
// parent or hidden path.
func SanitizeFilenameComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return strings.Trim(b.String(), "._-")
}

// EnsureNotExists returns an error naming path when it already exists.
func EnsureNotExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteJSONFileAtomic marshals v and writes it atomically with the given mode.
func WriteJSONFileAtomic(path string, v any, pretty bool, mode fs.FileMode) (int64, error) {
	b, err := MarshalJSON(v, pretty)
	if err != nil {
		return 0, fmt.Errorf("marshal json: %w", err)
	}
	n, err := WriteFileAtomic(path, b, mode, true)
	if err != nil {
		return n, fmt.Errorf("write json: %w", err)
	}
	return n, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place. With
// trailingNewline a final "\n" is appended. It returns the number of data bytes written.
func WriteFileAtomic(path string, data []byte, mode fs.FileMode, trailingNewline bool) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_write_*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return 0, err
	}

	n, err := tmp.Write(data)
	if err != nil {
		_ = tmp.Close()
		return int64(n), err
	}
	if trailingNewline {
		if _, err := tmp.Write([]byte("\n")); err != nil {
			_ = tmp.Close()
			return int64(n), err
		}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return int64(n), err
	}
	if err := tmp.Close(); err != nil {
		return int64(n), err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return int64(n), err
	}
	return int64(n), nil
}

// DirUsage counts regular files directly inside dir and their total size. Hidden temp files are
// skipped. A missing dir reports zero.
func DirUsage(dir string) (files int, bytes int64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, 0, err
		}
		files++
		bytes += info.Size()
	}
	return files, bytes, nil
}
