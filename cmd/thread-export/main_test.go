package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
)

const exportArchive = `{"data": [
 {"id": "c/1", "title": "First", "current_node": "a1", "mapping": {
   "a1": {"id": "a1", "parent": null, "message": {"id": "a1", "author": {"role": "user"}, "create_time": 1704103200, "content": {"content_type": "text", "parts": ["hello"]}}}
 }},
 {"id": "c2", "title": "Second", "current_node": "b1", "mapping": {
   "b1": {"id": "b1", "parent": null, "message": {"id": "b1", "author": {"role": "user"}, "create_time": 1706781600, "content": {"content_type": "text", "parts": ["later"]}}}
 }}
]}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("thread-export", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputPath == "" {
		t.Fatalf("expected default InputPath")
	}
	if cfg.OutputDir == "" {
		t.Fatalf("expected default OutputDir")
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("thread-export", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "a/b/c.json",
		"-out", "x/y",
		"-pretty",
		"-overwrite",
		"-array-field", "data",
		"-from", "2024-01-01",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputPath != "a/b/c.json" {
		t.Fatalf("InputPath=%q, want %q", cfg.InputPath, "a/b/c.json")
	}
	if cfg.OutputDir != "x/y" {
		t.Fatalf("OutputDir=%q, want %q", cfg.OutputDir, "x/y")
	}
	if !cfg.Pretty || !cfg.Overwrite {
		t.Fatalf("Pretty=%v Overwrite=%v, want true", cfg.Pretty, cfg.Overwrite)
	}
	if cfg.ArrayField != "data" || cfg.From != "2024-01-01" {
		t.Fatalf("ArrayField=%q From=%q", cfg.ArrayField, cfg.From)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty config")
	}
	cfg := defaultConfig()
	cfg.OutputDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing OutputDir")
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	in := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(in, []byte(exportArchive), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	cfg := defaultConfig()
	cfg.InputPath = in
	cfg.OutputDir = filepath.Join(t.TempDir(), "threads")

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "threads_written=2 ") {
		t.Fatalf("summary=%q", out.String())
	}
	for _, name := range []string{"c_1.json", "c2.json"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	cfg.OutputDir = filepath.Join(t.TempDir(), "recent")
	cfg.From = "2024-02-01"
	out.Reset()
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run -from: %v", err)
	}
	if !strings.HasPrefix(out.String(), "threads_written=1 ") {
		t.Fatalf("summary=%q", out.String())
	}

	cfg.From = "2030-01-01"
	if err := run(context.Background(), cfg, io.Discard, quietLogger()); !errors.Is(err, wrapped.ErrEmptyFilteredRange) {
		t.Fatalf("err=%v, want ErrEmptyFilteredRange", err)
	}
}
