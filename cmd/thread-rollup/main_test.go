package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// c-joy on 2024-01-01 (positive, short), c-doom on 2024-02-01 (negative, long).
const rollupArchive = `[
 {"id": "c-joy", "title": "Party Plans", "current_node": "a2", "mapping": {
   "a1": {"id": "a1", "parent": null, "message": {"id": "a1", "author": {"role": "user"}, "create_time": 1704103200, "content": {"content_type": "text", "parts": ["love this great idea"]}}},
   "a2": {"id": "a2", "parent": "a1", "message": {"id": "a2", "author": {"role": "assistant"}, "create_time": 1704103260, "content": {"content_type": "text", "parts": ["thanks"]}}}
 }},
 {"id": "c-doom", "title": "Docker Build Failure", "current_node": "b2", "mapping": {
   "b1": {"id": "b1", "parent": null, "message": {"id": "b1", "author": {"role": "user"}, "create_time": 1706781600, "content": {"content_type": "text", "parts": ["error error the build keeps failing with a bug in the docker layer cache and I cannot figure out why"]}}},
   "b2": {"id": "b2", "parent": "b1", "message": {"id": "b2", "author": {"role": "assistant"}, "create_time": 1706781660, "content": {"content_type": "text", "parts": ["Let us walk through the docker build step by step and inspect the cache keys, base image digests and any files copied before the failing layer"]}}}
 }}
]`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T) Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(path, []byte(rollupArchive), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	cfg := defaultConfig()
	cfg.InPath = path
	return cfg
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("thread-rollup", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "exports/conversations.json",
		"-title", "docker",
		"-top", "3",
		"-limit", "7",
		"-seed", "42",
		"-from", "2024-01-01",
		"-json",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InPath != "exports/conversations.json" {
		t.Fatalf("InPath=%q", cfg.InPath)
	}
	if cfg.Title != "docker" || cfg.Top != 3 || cfg.Limit != 7 || cfg.Seed != 42 || !cfg.JSON {
		t.Fatalf("cfg=%+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Random = true
	cfg.ThreadID = "x"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for -random with -thread")
	}
	cfg = defaultConfig()
	cfg.To = "yesterday"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for bad -to")
	}
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestRun_Rankings(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.JSON = true
	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got rankings
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out.String())
	}
	if got.Threads != 2 {
		t.Fatalf("Threads=%d, want 2", got.Threads)
	}
	if got.Longest[0].ConvID != "c-doom" {
		t.Fatalf("Longest[0]=%s, want c-doom", got.Longest[0].ConvID)
	}
	if got.MostStressed[0].ConvID != "c-doom" || got.Happiest[0].ConvID != "c-joy" {
		t.Fatalf("stressed=%s happiest=%s", got.MostStressed[0].ConvID, got.Happiest[0].ConvID)
	}
}

func TestRun_RangeAndTitle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.From = "2024-02-01"
	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "threads=1\n") {
		t.Fatalf("output:\n%s", out.String())
	}

	cfg = testConfig(t)
	cfg.Title = "DOCKER"
	out.Reset()
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "threads=1 shown=1") || !strings.Contains(out.String(), "id=c-doom") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestRun_ThreadAndRandom(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.ThreadID = "c-joy"
	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "## Party Plans") || !strings.Contains(out.String(), "love this great idea") {
		t.Fatalf("thread output:\n%s", out.String())
	}

	cfg.ThreadID = "missing"
	if err := run(context.Background(), cfg, io.Discard, quietLogger()); !errors.Is(err, errThreadNotFound) {
		t.Fatalf("err=%v, want errThreadNotFound", err)
	}

	cfg = testConfig(t)
	cfg.Random = true
	cfg.Seed = 7
	out.Reset()
	if err := run(context.Background(), cfg, &out, quietLogger()); err != nil {
		t.Fatalf("run -random: %v", err)
	}
	if !strings.Contains(out.String(), "- conversation_id: `c-") {
		t.Fatalf("random output:\n%s", out.String())
	}
}
