package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUpload_RoundTrip(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	archive, err := NewClient(srv.URL+"/").Upload(context.Background(), "", []byte(testArchive))
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, "c1", archive[0].Key())
	assert.Len(t, archive[0].Mapping, 3)
}

func TestClientUpload_Failures(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), "conversations.json", []byte(`{broken`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	notOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "message": "busy", "data": []any{}})
	}))
	defer notOK.Close()
	_, err = NewClient(notOK.URL).Upload(context.Background(), "conversations.json", []byte(testArchive))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `relay status "error"`)

	_, err = NewClient("").Upload(context.Background(), "x", nil)
	require.Error(t, err)
}

type recordingStore struct {
	mu    sync.Mutex
	name  string
	names []string
	err   error
}

func (s *recordingStore) Name() string { return s.name }

func (s *recordingStore) Put(ctx context.Context, name string, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return nil
}

func TestMultiStore(t *testing.T) {
	t.Parallel()

	a := &recordingStore{name: "a"}
	b := &recordingStore{name: "b"}
	require.NoError(t, MultiStore{a, b}.Put(context.Background(), "f.json", []byte("[]")))
	assert.Equal(t, []string{"f.json"}, a.names)
	assert.Equal(t, []string{"f.json"}, b.names)

	boom := errors.New("boom")
	err := MultiStore{a, &recordingStore{name: "bad", err: boom}}.Put(context.Background(), "g.json", nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad:")
}

func TestDiskStore(t *testing.T) {
	t.Parallel()

	s, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "a.json", []byte("[1]")))
	require.Error(t, s.Put(context.Background(), "../escape.json", []byte("[]")))
	require.Error(t, s.Put(context.Background(), "", []byte("[]")))

	files, size, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, 1, files)
	assert.Equal(t, int64(3), size)

	_, err = NewDiskStore("")
	require.Error(t, err)
}

func TestS3StoreKey(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(context.Background(), S3Config{Bucket: "b", Region: "us-east-2"})
	require.Error(t, err, "credentials are required")

	s, err := NewS3Store(context.Background(), S3Config{Bucket: "b", Region: "us-east-2", AccessKey: "k", SecretKey: "s", Prefix: "uploads/"})
	require.NoError(t, err)
	assert.Equal(t, "uploads/f.json", s.Key("f.json"))
	assert.Equal(t, "s3", s.Name())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("S3_BUCKET", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "9001", cfg.Port)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.Server)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	require.NoError(t, cfg.Validate())

	cfg.S3.Bucket = "bucket"
	cfg.S3.AccessKey = ""
	require.Error(t, cfg.Validate())
}
