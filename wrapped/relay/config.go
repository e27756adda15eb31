// Package relay implements the remote upload backend: it receives conversation archives, stores
// them by content hash, forwards them to the admin and serves reports from a corpus cache.
package relay

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/notify"
)

const (
	DefaultMaxUploadBytes = 256 << 20
	DefaultCacheSize      = 8
	DefaultRequestTimeout = 2 * time.Minute
)

// S3Config selects an optional S3 mirror for stored uploads. Empty Bucket disables it.
type S3Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether an S3 bucket is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Config is the relay server configuration.
type Config struct {
	Port           string
	StorageDir     string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	CacheSize      int
	CORSOrigins    []string
	WebhookURL     string
	LogLevel       string

	Mail notify.MailConfig
	S3   S3Config
}

// ConfigFromEnv loads .env (if present) and reads the relay configuration from the environment.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Port:           getEnv("PORT", "8000"),
		StorageDir:     getEnv("STORAGE_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		RequestTimeout: DefaultRequestTimeout,
		CacheSize:      getEnvInt("CACHE_SIZE", DefaultCacheSize),
		CORSOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Mail: notify.MailConfig{
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
			Server:     getEnv("SMTP_SERVER", "smtp.gmail.com"),
			Port:       getEnvInt("SMTP_PORT", 587),
			User:       getEnv("SMTP_USER", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
		},
		S3: S3Config{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("AWS_REGION", "us-east-2"),
			AccessKey: getEnv("AWS_ACCESS_KEY", ""),
			SecretKey: getEnv("AWS_SECRET_KEY", ""),
			Prefix:    getEnv("S3_PREFIX", "uploads/"),
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("Config: port is empty")
	}
	if strings.TrimSpace(c.StorageDir) == "" {
		return errors.New("Config: storage dir is empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("Config: max upload bytes must be > 0, got %d", c.MaxUploadBytes)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("Config: cache size must be > 0, got %d", c.CacheSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("Config: request timeout must be > 0, got %s", c.RequestTimeout)
	}
	if c.S3.Enabled() && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		return errors.New("Config: S3_BUCKET set but AWS credentials are missing")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("Config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "value": v, "default": def}).Warn("env value is not an int, using default")
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
