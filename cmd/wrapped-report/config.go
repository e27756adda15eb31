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
	ArrayField string
	RelayURL   string
	OutPath    string
	Format     string
	Pretty     bool
	Schema     bool

	From    string
	To      string
	Keyword string
	Title   string
	Top     int

	TZ         string
	IndexLimit int
	OmitDNA    bool
	LogLevel   string
}

func (c Config) Validate() error {
	if c.Schema {
		return nil
	}
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	switch c.Format {
	case "json", "text", "markdown":
	default:
		return fmt.Errorf("invalid -format %q (want json, text or markdown)", c.Format)
	}
	if c.Top < 0 {
		return errors.New("top must be >= 0")
	}
	if c.IndexLimit < 0 {
		return errors.New("index-limit must be >= 0")
	}
	if err := c.Query().Validate(); err != nil {
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

func (c Config) Query() wrapped.Query {
	return wrapped.Query{
		From:        c.From,
		To:          c.To,
		Keyword:     c.Keyword,
		TitleFilter: c.Title,
		TopN:        c.Top,
	}
}

func defaultConfig() Config {
	return Config{
		InputPath:  "conversations.json",
		Format:     "json",
		Pretty:     true,
		TZ:         "UTC",
		IndexLimit: wrapped.DefaultIndexLimit,
		LogLevel:   "info",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Path to conversations.json (ChatGPT export)")
	fs.StringVar(&cfg.ArrayField, "array-field", "", "If top-level JSON is an object, name of field containing conversations array")
	fs.StringVar(&cfg.RelayURL, "relay-url", "", "Optional relay base URL; the archive is uploaded and the relay's copy analyzed (falls back to local on failure)")
	fs.StringVar(&cfg.OutPath, "out", "", "Write the report here instead of stdout")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: json, text or markdown")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Pretty-print JSON output")
	fs.BoolVar(&cfg.Schema, "schema", false, "Print the report JSON Schema and exit")
	fs.StringVar(&cfg.From, "from", "", "Inclusive start date (YYYY-MM-DD)")
	fs.StringVar(&cfg.To, "to", "", "Inclusive end date (YYYY-MM-DD)")
	fs.StringVar(&cfg.Keyword, "q", "", "Keyword to count (case-insensitive substring)")
	fs.StringVar(&cfg.Title, "title", "", "Filter the thread index by title substring")
	fs.IntVar(&cfg.Top, "top", 0, "Size of each thread ranking (0 = default 5)")
	fs.StringVar(&cfg.TZ, "tz", cfg.TZ, "IANA time zone used for dates, hours and streaks")
	fs.IntVar(&cfg.IndexLimit, "index-limit", cfg.IndexLimit, "Max threads listed in the thread index")
	fs.BoolVar(&cfg.OmitDNA, "no-dna", false, "Omit the emotional DNA grid from the report")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExit codes: 1 archive could not be read, 2 bad flags, 3 no messages in corpus or range.")
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/wrapped-report -in conversations.json -format markdown")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/wrapped-report -in conversations.json -from 2024-01-01 -to 2024-12-31 -q python -out wrapped.json")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/wrapped-report -schema")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InputPath = filepath.Clean(cfg.InputPath)
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}
