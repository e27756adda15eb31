// Package notify delivers operator notifications about uploaded archives.
//
// The webhook only ever sees upload metadata (size and time), never archive content.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// AsyncTimeout bounds a fire-and-forget notification, retries included.
const AsyncTimeout = 5 * time.Second

const (
	embedTitle  = "📊 GPT Wrapped - New Upload"
	embedColor  = 16711765
	embedStatus = "✅ Processing"
	embedFooter = "Privacy-first: No user data transmitted"

	timestampLayout = "2006-01-02 15:04:05"
)

// Upload is the metadata of one uploaded archive.
type Upload struct {
	ByteSize  int64
	Timestamp time.Time
}

// Webhook posts Discord-style embeds to an operator channel.
type Webhook struct {
	URL    string
	Client *http.Client
	Log    logrus.FieldLogger

	// MaxAttempts bounds delivery attempts (defaults to 3).
	MaxAttempts int
	// RateLimitWaits and ServerErrorWaits are the pauses before each retry, indexed by attempt.
	// A Retry-After header on a 429 response overrides RateLimitWaits.
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

// NewWebhook returns a Webhook with default retry pacing. An empty url yields a Webhook whose
// Notify is a no-op.
func NewWebhook(url string, log logrus.FieldLogger) *Webhook {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Webhook{
		URL:              url,
		Client:           &http.Client{Timeout: AsyncTimeout},
		Log:              log,
		MaxAttempts:      3,
		RateLimitWaits:   []time.Duration{1 * time.Second, 2 * time.Second},
		ServerErrorWaits: []time.Duration{250 * time.Millisecond, 1 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
	Footer struct {
		Text string `json:"text"`
	} `json:"footer"`
}

type message struct {
	Embeds []embed `json:"embeds"`
}

// Payload renders the notification body for u.
func Payload(u Upload) ([]byte, error) {
	e := embed{
		Title: embedTitle,
		Color: embedColor,
		Fields: []embedField{
			{Name: "File Size", Value: fmt.Sprintf("%.2f KB", float64(u.ByteSize)/1024), Inline: true},
			{Name: "Timestamp", Value: u.Timestamp.Format(timestampLayout), Inline: true},
			{Name: "Status", Value: embedStatus, Inline: false},
		},
	}
	e.Footer.Text = embedFooter
	return json.Marshal(message{Embeds: []embed{e}})
}

// StatusError is a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

// Notify delivers u, retrying on rate limits, 5xx responses and transport errors.
func (w *Webhook) Notify(ctx context.Context, u Upload) error {
	if !w.Enabled() {
		return nil
	}
	body, err := Payload(u)
	if err != nil {
		return fmt.Errorf("Notify: marshal payload: %w", err)
	}

	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := w.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}

		var wait time.Duration
		switch {
		case isRateLimitError(err):
			wait = waitAt(w.RateLimitWaits, attempt)
			var se *StatusError
			if errors.As(err, &se) && se.RetryAfter > 0 {
				wait = se.RetryAfter
			}
		case isServerError(err):
			wait = waitAt(w.ServerErrorWaits, attempt)
		default:
			return fmt.Errorf("Notify: %w", err)
		}
		if err := sleep(ctx, wait); err != nil {
			return fmt.Errorf("Notify: %w (last error: %v)", err, lastErr)
		}
	}
	return fmt.Errorf("Notify: failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyAsync delivers u in the background with AsyncTimeout. Failures are logged at debug level
// and otherwise ignored.
func (w *Webhook) NotifyAsync(u Upload) {
	if !w.Enabled() {
		return
	}
	log := w.logger()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), AsyncTimeout)
		defer cancel()
		if err := w.Notify(ctx, u); err != nil {
			log.WithFields(logrus.Fields{
				"byte_size": u.ByteSize,
				"error":     err.Error(),
			}).Debug("upload notification dropped")
		}
	}()
}

func (w *Webhook) logger() logrus.FieldLogger {
	if w.Log == nil {
		return logrus.StandardLogger()
	}
	return w.Log
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	se := &StatusError{StatusCode: resp.StatusCode}
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return se
}

func isRateLimitError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests
}

func isServerError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	// Transport failures (refused connections, resets) are retried like server errors,
	// unless the caller gave up.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func waitAt(waits []time.Duration, attempt int) time.Duration {
	if len(waits) == 0 {
		return 0
	}
	if attempt < len(waits) {
		return waits[attempt]
	}
	return waits[len(waits)-1]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
