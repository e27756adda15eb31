package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped"
)

// ClientTimeout bounds a whole upload round trip.
const ClientTimeout = 30 * time.Second

// Client uploads archives to a relay and decodes the archive it echoes back.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: ClientTimeout},
	}
}

// Upload posts data as conversations.json and returns the relay's parsed copy of the archive.
// Any non-200 status or a status other than "success" is an error; callers are expected to fall
// back to local processing.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (wrapped.Archive, error) {
	if c == nil || c.BaseURL == "" {
		return nil, errors.New("Upload: relay url is empty")
	}
	if name == "" {
		name = "conversations.json"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", "application/json")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("Upload: create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("Upload: write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("Upload: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("Upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: ClientTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Upload: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Upload: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Upload: relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var envelope struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("Upload: decode response: %w: %w", wrapped.ErrMalformedArchive, err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("Upload: relay status %q: %s", envelope.Status, envelope.Message)
	}

	archive, err := wrapped.DecodeArchiveBytes(ctx, respBody, wrapped.DecodeOptions{ArrayField: "data"})
	if err != nil {
		return nil, fmt.Errorf("Upload: %w", err)
	}
	return archive, nil
}
