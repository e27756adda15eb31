package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
)

type Config struct {
	InputPath  string
	OutputDir  string
	ArrayField string
	From       string
	To         string
	TZ         string
	Pretty     bool
	Overwrite  bool
	LogLevel   string
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.OutputDir == "" {
		return errors.New("missing -out")
	}
	if err := (wrapped.Query{From: c.From, To: c.To}).Validate(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.TZ); err != nil {
		return fmt.Errorf("invalid -tz: %w", err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid -log-level: %w", err)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InputPath: "conversations.json",
		OutputDir: "threads",
		TZ:        "UTC",
		LogLevel:  "info",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	// Avoid mutating the global FlagSet if called from tests.
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Path to conversations.json (ChatGPT export)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory to write per-thread JSON files into")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print each output JSON file")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "If top-level JSON is an object, name of field containing conversations array (e.g. data)")
	fs.StringVar(&cfg.From, "from", "", "Only export messages on or after this date (YYYY-MM-DD)")
	fs.StringVar(&cfg.To, "to", "", "Only export messages on or before this date (YYYY-MM-DD)")
	fs.StringVar(&cfg.TZ, "tz", cfg.TZ, "IANA time zone used for dates")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-export -pretty -overwrite")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-export -in exports/conversations.json -out exports/threads -from 2024-01-01")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InputPath = filepath.Clean(cfg.InputPath)
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return cfg, nil
}
