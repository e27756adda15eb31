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
	InPath     string
	ArrayField string
	TZ         string

	From string
	To   string

	Title    string
	ThreadID string
	Random   bool
	Seed     int64
	Top      int
	Limit    int

	JSON     bool
	LogLevel string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.Random && c.ThreadID != "" {
		return errors.New("-random and -thread are mutually exclusive")
	}
	if c.Top < 0 {
		return errors.New("top must be >= 0")
	}
	if c.Limit < 0 {
		return errors.New("limit must be >= 0")
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
		InPath:   "conversations.json",
		TZ:       "UTC",
		Top:      wrapped.DefaultTopN,
		Limit:    wrapped.DefaultIndexLimit,
		LogLevel: "warn",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to conversations.json (ChatGPT export)")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "If top-level JSON is an object, name of field containing conversations array")
	fs.StringVar(&cfg.TZ, "tz", cfg.TZ, "IANA time zone used for dates")
	fs.StringVar(&cfg.From, "from", "", "Only rank threads with messages on or after this date (YYYY-MM-DD)")
	fs.StringVar(&cfg.To, "to", "", "Only rank threads with messages on or before this date (YYYY-MM-DD)")
	fs.StringVar(&cfg.Title, "title", "", "List threads whose title contains this substring (case-insensitive)")
	fs.StringVar(&cfg.ThreadID, "thread", "", "Print the full thread with this conversation id as markdown")
	fs.BoolVar(&cfg.Random, "random", false, "Print one random thread as markdown")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Seed for -random (0 uses the current time)")
	fs.IntVar(&cfg.Top, "top", cfg.Top, "Size of each ranking")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "Max threads listed by -title (0 disables the cap)")
	fs.BoolVar(&cfg.JSON, "json", false, "Emit rankings and listings as JSON")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-rollup -in conversations.json -top 10")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-rollup -in conversations.json -title docker -json")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-rollup -in conversations.json -random")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.InPath = filepath.Clean(cfg.InPath)
	return cfg, nil
}
