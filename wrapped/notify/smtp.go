package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// MailConfig configures the admin forwarder. Forwarding is disabled unless AdminEmail, User and
// Password are all set.
type MailConfig struct {
	AdminEmail string
	Server     string
	Port       int
	User       string
	Password   string
}

// Enabled reports whether mail forwarding is fully configured.
func (c MailConfig) Enabled() bool {
	return c.AdminEmail != "" && c.User != "" && c.Password != ""
}

// Forwarded describes one stored archive being forwarded to the admin mailbox.
type Forwarded struct {
	Filename   string
	SHA256     string
	UploadTime string
	ByteSize   int64
	Data       []byte
}

// SendFunc matches smtp.SendMail, which upgrades to STARTTLS when the server advertises it.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer forwards uploaded archives to the admin mailbox as attachments.
type Mailer struct {
	Config MailConfig
	Log    logrus.FieldLogger
	Send   SendFunc
	Now    func() time.Time
}

// NewMailer returns a Mailer that delivers through smtp.SendMail.
func NewMailer(cfg MailConfig, log logrus.FieldLogger) *Mailer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mailer{Config: cfg, Log: log, Send: smtp.SendMail, Now: time.Now}
}

// Forward mails f to the admin. It reports false without error when forwarding is disabled.
func (m *Mailer) Forward(ctx context.Context, f Forwarded) (bool, error) {
	if m == nil || !m.Config.Enabled() {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.Config.Server == "" {
		return false, errors.New("Forward: smtp server is empty")
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	msg, err := BuildForwardMessage(m.Config.User, m.Config.AdminEmail, f, now())
	if err != nil {
		return false, fmt.Errorf("Forward: build message: %w", err)
	}

	send := m.Send
	if send == nil {
		send = smtp.SendMail
	}
	addr := net.JoinHostPort(m.Config.Server, strconv.Itoa(m.Config.Port))
	auth := smtp.PlainAuth("", m.Config.User, m.Config.Password, m.Config.Server)
	if err := send(addr, auth, m.Config.User, []string{m.Config.AdminEmail}, msg); err != nil {
		return false, fmt.Errorf("Forward: send to %s: %w", addr, err)
	}

	m.Log.WithFields(logrus.Fields{
		"filename": f.Filename,
		"sha256":   f.SHA256,
	}).Info("archive forwarded to admin")
	return true, nil
}

// BuildForwardMessage renders the multipart message carrying f as a base64 attachment.
func BuildForwardMessage(from, to string, f Forwarded, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	tw, err := mw.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(tw, "New conversations.json file uploaded to GPT Wrapped\n\n")
	fmt.Fprintf(tw, "Filename: %s\n", f.Filename)
	fmt.Fprintf(tw, "SHA256: %s\n", f.SHA256)
	fmt.Fprintf(tw, "Upload Time: %s\n", f.UploadTime)
	fmt.Fprintf(tw, "File Size: %.2f KB\n", float64(f.ByteSize)/1024)

	attHeader := textproto.MIMEHeader{}
	attHeader.Set("Content-Type", "application/octet-stream")
	attHeader.Set("Content-Transfer-Encoding", "base64")
	attHeader.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Filename}))
	aw, err := mw.CreatePart(attHeader)
	if err != nil {
		return nil, err
	}
	if err := writeBase64Lines(aw, f.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "GPT Wrapped - New File Upload ["+f.UploadTime+"]"))
	fmt.Fprintf(&msg, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// writeBase64Lines wraps encoded output at 76 columns.
func writeBase64Lines(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := min(76, len(enc))
		if _, err := w.Write([]byte(enc[:n] + "\r\n")); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
