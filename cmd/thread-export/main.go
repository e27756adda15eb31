package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if errors.Is(err, wrapped.ErrEmptyCorpus) || errors.Is(err, wrapped.ErrEmptyFilteredRange) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, stdout io.Writer, log logrus.FieldLogger) error {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return fmt.Errorf("load -tz: %w", err)
	}
	corpus, err := wrapped.LoadCorpusFile(ctx, cfg.InputPath,
		wrapped.DecodeOptions{ArrayField: cfg.ArrayField},
		wrapped.BuildOptions{Enricher: wrapped.Enricher{Location: loc}},
	)
	if err != nil {
		return err
	}
	view, err := corpus.Filter(wrapped.Query{From: cfg.From, To: cfg.To})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"rows": len(view), "out_dir": cfg.OutputDir}).Info("exporting threads")

	res, err := wrapped.ExportThreads(ctx, view, cfg.OutputDir, wrapped.ExportOptions{
		OverwriteExisting: cfg.Overwrite,
		Pretty:            cfg.Pretty,
		DirMode:           0o755,
		FileMode:          0o644,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "threads_written=%d bytes_written=%d out_dir=%s\n", res.ThreadsWritten, res.BytesWritten, cfg.OutputDir)
	return nil
}
