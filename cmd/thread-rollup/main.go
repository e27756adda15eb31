package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/fileutils"
)

var errThreadNotFound = errors.New("thread not found")

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

type rankings struct {
	Threads      int                  `json:"threads"`
	Longest      []wrapped.ThreadStat `json:"longest"`
	MostStressed []wrapped.ThreadStat `json:"most_stressed"`
	Happiest     []wrapped.ThreadStat `json:"happiest"`
}

type listing struct {
	Title   string               `json:"title"`
	Total   int                  `json:"total"`
	Threads []wrapped.ThreadStat `json:"threads"`
}

func run(ctx context.Context, cfg Config, stdout io.Writer, log logrus.FieldLogger) error {
	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return fmt.Errorf("load -tz: %w", err)
	}
	corpus, err := wrapped.LoadCorpusFile(ctx, cfg.InPath,
		wrapped.DecodeOptions{ArrayField: cfg.ArrayField},
		wrapped.BuildOptions{Enricher: wrapped.Enricher{Location: loc}},
	)
	if err != nil {
		return err
	}

	ix := wrapped.NewThreadIndex(corpus)
	if cfg.From != "" || cfg.To != "" {
		view, err := corpus.Filter(wrapped.Query{From: cfg.From, To: cfg.To})
		if err != nil {
			return err
		}
		ix = ix.Restrict(view)
	}
	log.WithFields(logrus.Fields{"rows": len(corpus), "threads": ix.Len()}).Debug("thread index built")

	switch {
	case cfg.ThreadID != "":
		ts, ok := ix.Lookup(cfg.ThreadID)
		if !ok {
			return fmt.Errorf("%w: %s", errThreadNotFound, cfg.ThreadID)
		}
		_, err := io.WriteString(stdout, wrapped.RenderThreadMarkdown(ts, ix.Thread(ts.ConvID)))
		return err

	case cfg.Random:
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		ts, ok := ix.Random(rand.New(rand.NewSource(seed)))
		if !ok {
			return fmt.Errorf("%w: index is empty", errThreadNotFound)
		}
		_, err := io.WriteString(stdout, wrapped.RenderThreadMarkdown(ts, ix.Thread(ts.ConvID)))
		return err

	case cfg.Title != "":
		found := ix.SearchTitle(cfg.Title)
		out := listing{Title: cfg.Title, Total: found.Len(), Threads: found.Stats()}
		if cfg.Limit > 0 && len(out.Threads) > cfg.Limit {
			out.Threads = out.Threads[:cfg.Limit]
		}
		if cfg.JSON {
			return writeJSON(stdout, out)
		}
		fmt.Fprintf(stdout, "title~%q threads=%d shown=%d\n", cfg.Title, out.Total, len(out.Threads))
		for _, ts := range out.Threads {
			writeStatLine(stdout, ts)
		}
		return nil

	default:
		out := rankings{
			Threads:      ix.Len(),
			Longest:      ix.Longest(cfg.Top),
			MostStressed: ix.MostStressed(cfg.Top),
			Happiest:     ix.Happiest(cfg.Top),
		}
		if cfg.JSON {
			return writeJSON(stdout, out)
		}
		fmt.Fprintf(stdout, "threads=%d\n", out.Threads)
		for _, section := range []struct {
			name  string
			stats []wrapped.ThreadStat
		}{
			{"longest", out.Longest},
			{"most_stressed", out.MostStressed},
			{"happiest", out.Happiest},
		} {
			fmt.Fprintf(stdout, "\n[%s]\n", section.name)
			for _, ts := range section.stats {
				writeStatLine(stdout, ts)
			}
		}
		return nil
	}
}

func writeStatLine(w io.Writer, ts wrapped.ThreadStat) {
	fmt.Fprintf(w, "%s  %s  tokens=%d sentiment=%.2f messages=%d id=%s\n",
		ts.FirstDate, fileutils.Truncate(fileutils.SanitizeNewlines(ts.Title), 50), ts.TotalTokens, ts.MeanSentiment, ts.MessageCount, ts.ConvID)
}

func writeJSON(w io.Writer, v any) error {
	b, err := fileutils.MarshalJSON(v, true)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
