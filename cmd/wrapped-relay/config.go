package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/relay"
)

// parseFlags starts from the environment (and .env) and lets flags override it.
func parseFlags(fs *flag.FlagSet, args []string, base relay.Config) (relay.Config, error) {
	cfg := base
	fs.SetOutput(os.Stderr)

	origins := strings.Join(cfg.CORSOrigins, ",")

	fs.StringVar(&cfg.Port, "port", cfg.Port, "Listen port (env PORT)")
	fs.StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "Directory uploads are stored in (env STORAGE_DIR)")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "Max request body size (env MAX_UPLOAD_BYTES)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-request timeout")
	fs.IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Number of corpora kept in the report cache (env CACHE_SIZE)")
	fs.StringVar(&origins, "cors-origins", origins, "Comma-separated allowed CORS origins (env CORS_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "Operator notification webhook (env NOTIFY_WEBHOOK_URL)")
	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "Optional S3 bucket mirroring uploads (env S3_BUCKET)")
	fs.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "S3 region (env AWS_REGION)")
	fs.StringVar(&cfg.S3.Prefix, "s3-prefix", cfg.S3.Prefix, "Key prefix for S3 uploads (env S3_PREFIX)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (env LOG_LEVEL)")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nSMTP forwarding is configured through ADMIN_EMAIL, SMTP_SERVER, SMTP_PORT, SMTP_USER and SMTP_PASSWORD;")
		fmt.Fprintln(fs.Output(), "S3 credentials through AWS_ACCESS_KEY and AWS_SECRET_KEY.")
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/wrapped-relay -port 8000 -storage-dir uploads")
		fmt.Fprintln(fs.Output(), "  S3_BUCKET=wrapped-uploads go run ./cmd/wrapped-relay -log-level debug")
	}

	if err := fs.Parse(args); err != nil {
		return relay.Config{}, err
	}

	cfg.StorageDir = filepath.Clean(cfg.StorageDir)
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return cfg, nil
}
