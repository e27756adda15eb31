package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMailConfig() MailConfig {
	return MailConfig{
		AdminEmail: "admin@example.com",
		Server:     "smtp.example.com",
		Port:       587,
		User:       "bot@example.com",
		Password:   "secret",
	}
}

func TestBuildForwardMessage(t *testing.T) {
	t.Parallel()

	data := []byte(`[{"id":"c1"}]`)
	f := Forwarded{
		Filename:   "conversations_20240304_050607_abcdef0123456789.json",
		SHA256:     "abcdef0123456789",
		UploadTime: "20240304_050607",
		ByteSize:   int64(len(data)),
		Data:       data,
	}
	raw, err := BuildForwardMessage("bot@example.com", "admin@example.com", f, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", msg.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "GPT Wrapped - New File Upload [20240304_050607]", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	textBody, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Contains(t, string(textBody), "Filename: "+f.Filename)
	assert.Contains(t, string(textBody), "SHA256: abcdef0123456789")
	assert.Contains(t, string(textBody), "File Size: 0.01 KB")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, f.Filename, att.FileName())
	assert.Equal(t, "application/octet-stream", att.Header.Get("Content-Type"))
	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestMailerForward(t *testing.T) {
	t.Parallel()

	var gotAddr, gotFrom string
	var gotTo []string
	m := NewMailer(testMailConfig(), quietLogger())
	m.Send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		return nil
	}

	sent, err := m.Forward(context.Background(), Forwarded{Filename: "f.json", Data: []byte("[]")})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)
}

func TestMailerForward_DisabledAndFailing(t *testing.T) {
	t.Parallel()

	cfg := testMailConfig()
	cfg.Password = ""
	sent, err := NewMailer(cfg, quietLogger()).Forward(context.Background(), Forwarded{})
	require.NoError(t, err)
	assert.False(t, sent)

	m := NewMailer(testMailConfig(), quietLogger())
	m.Send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay refused") }
	sent, err = m.Forward(context.Background(), Forwarded{Filename: "f.json"})
	require.Error(t, err)
	assert.False(t, sent)
	assert.Contains(t, err.Error(), "relay refused")
}
