package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/notify"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/relay"
	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/tokenizer"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:], relay.ConfigFromEnv())
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
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newServer(ctx context.Context, cfg relay.Config, log *logrus.Logger) (*relay.Server, error) {
	disk, err := relay.NewDiskStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	var store relay.Store = disk
	if cfg.S3.Enabled() {
		s3Store, err := relay.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		store = relay.MultiStore{disk, s3Store}
		log.WithField("bucket", cfg.S3.Bucket).Info("mirroring uploads to S3")
	}

	counter := tokenizer.Default()
	if err := tokenizer.LoadError(); err != nil {
		log.WithError(err).Warn("tokenizer unavailable, using approximate token counts")
	}
	cache, err := wrapped.NewCorpusCache(cfg.CacheSize,
		wrapped.BuildOptions{Enricher: wrapped.Enricher{Tokens: counter}},
		wrapped.DefaultReportOptions(),
	)
	if err != nil {
		return nil, err
	}

	mailer := notify.NewMailer(cfg.Mail, log)
	if !cfg.Mail.Enabled() {
		log.Info("admin forwarding disabled (ADMIN_EMAIL, SMTP_USER and SMTP_PASSWORD required)")
	}

	return relay.NewServer(cfg, relay.Deps{
		Store:   store,
		Usage:   disk,
		Mailer:  mailer,
		Webhook: notify.NewWebhook(cfg.WebhookURL, log),
		Cache:   cache,
		Log:     log,
	})
}
