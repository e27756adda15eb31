package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/fileutils"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/relay"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/tokenizer"
)

const (
	exitArchive = 1
	exitUsage   = 2
	exitEmpty   = 3
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitUsage)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitUsage)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg Config, stdout io.Writer, log logrus.FieldLogger) error {
	if cfg.Schema {
		schema, err := wrapped.ReportSchema()
		if err != nil {
			return err
		}
		b, err := fileutils.MarshalJSON(schema, true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(b))
		return err
	}

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return fmt.Errorf("load -tz: %w", err)
	}

	start := time.Now()
	archive, err := loadArchive(ctx, cfg, log)
	if err != nil {
		return err
	}

	counter := tokenizer.Default()
	if err := tokenizer.LoadError(); err != nil {
		log.WithError(err).Warn("tokenizer unavailable, using approximate token counts")
	}

	corpus, err := wrapped.BuildCorpus(archive, wrapped.BuildOptions{
		Enricher: wrapped.Enricher{Tokens: counter, Location: loc},
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"conversations": len(archive),
		"rows":          len(corpus),
	}).Info("corpus built")

	opts := wrapped.DefaultReportOptions()
	opts.IndexLimit = cfg.IndexLimit
	opts.OmitDNA = cfg.OmitDNA
	report, err := wrapped.BuildReport(corpus, cfg.Query(), opts)
	if err != nil {
		return err
	}

	out, err := render(report, cfg.Format, cfg.Pretty)
	if err != nil {
		return fmt.Errorf("render %s: %w", cfg.Format, err)
	}

	if cfg.OutPath == "" {
		_, err := stdout.Write(out)
		return err
	}
	n, err := fileutils.WriteFileAtomic(cfg.OutPath, out, 0o644, false)
	if err != nil {
		return fmt.Errorf("write -out: %w", err)
	}
	fmt.Fprintf(stdout, "messages=%d threads=%d range=%s..%s bytes_written=%d out=%s elapsed=%s\n",
		report.Counts.Messages, report.Counts.Threads, report.Range.From, report.Range.To, n, cfg.OutPath,
		time.Since(start).Round(time.Millisecond))
	return nil
}

// loadArchive reads the archive locally, or through the relay when one is configured. A relay
// failure falls back to the local decode.
func loadArchive(ctx context.Context, cfg Config, log logrus.FieldLogger) (wrapped.Archive, error) {
	decode := wrapped.DecodeOptions{ArrayField: cfg.ArrayField}
	if cfg.RelayURL == "" {
		return wrapped.ReadArchiveFile(ctx, cfg.InputPath, decode)
	}

	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read -in: %w", err)
	}
	archive, err := relay.NewClient(cfg.RelayURL).Upload(ctx, filepath.Base(cfg.InputPath), data)
	if err == nil {
		log.WithFields(logrus.Fields{"relay": cfg.RelayURL, "conversations": len(archive)}).Info("archive processed by relay")
		return archive, nil
	}
	log.WithError(err).Warn("relay upload failed, processing locally")
	return wrapped.DecodeArchiveBytes(ctx, data, decode)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, wrapped.ErrEmptyCorpus), errors.Is(err, wrapped.ErrEmptyFilteredRange):
		return exitEmpty
	default:
		return exitArchive
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, wrapped.ErrEmptyCorpus):
		return "no timestamped user or assistant messages found in the archive; check that -in is a ChatGPT conversations.json export"
	case errors.Is(err, wrapped.ErrEmptyFilteredRange):
		return "no messages fall within -from/-to; widen the date range"
	default:
		return err.Error()
	}
}
