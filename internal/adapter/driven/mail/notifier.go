// Package mail implements the Notifier port: alerts are rendered to HTML and
// delivered over SMTP with implicit TLS.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// SendFunc delivers a fully formed RFC 5322 message.
type SendFunc func(ctx context.Context, from string, to []string, msg []byte) error

// Notifier sends alert mail from the configured account to the recipients.
type Notifier struct {
	secrets    model.Secrets
	recipients []string
	send       SendFunc
	now        func() time.Time
	preview    bool
}

// NewNotifier creates a Notifier that dials addr (host:port) with implicit TLS
// and authenticates with the secrets. Recipients default to the sending account.
func NewNotifier(addr string, secrets model.Secrets, recipients []string) *Notifier {
	n := &Notifier{
		secrets:    secrets,
		recipients: recipients,
		now:        time.Now,
	}
	n.send = func(ctx context.Context, from string, to []string, msg []byte) error {
		return sendTLS(ctx, addr, secrets, from, to, msg)
	}
	return n
}

// NewNotifierWithSender creates a Notifier with a custom delivery function.
// This constructor is intended for testing.
func NewNotifierWithSender(secrets model.Secrets, recipients []string, send SendFunc) *Notifier {
	return &Notifier{
		secrets:    secrets,
		recipients: recipients,
		send:       send,
		now:        time.Now,
	}
}

// NewPreviewNotifier creates a Notifier that writes each message to w instead
// of sending it. No credentials are required.
func NewPreviewNotifier(from string, recipients []string, w io.Writer) *Notifier {
	if from == "" {
		from = "dojialert@localhost"
	}
	return &Notifier{
		secrets:    model.Secrets{User: from},
		recipients: recipients,
		send: func(_ context.Context, _ string, _ []string, msg []byte) error {
			_, err := w.Write(msg)
			return err
		},
		now:     time.Now,
		preview: true,
	}
}

// Notify renders and sends the alert. Returns model.ErrMissingCredentials
// without dialing when either secret is absent.
func (n *Notifier) Notify(ctx context.Context, alert model.Alert) error {
	if !n.preview && !n.secrets.Complete() {
		return model.ErrMissingCredentials
	}

	to := n.recipients
	if len(to) == 0 {
		to = []string{n.secrets.User}
	}

	msg, err := BuildMessage(ctx, n.secrets.User, to, alert, n.now())
	if err != nil {
		return err
	}

	if err := n.send(ctx, n.secrets.User, to, msg); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}

	slog.Info("alert mail sent", "run_id", alert.RunID, "recipients", len(to), "matches", len(alert.Matches))
	return nil
}

// BuildMessage assembles a multipart/alternative message with a plain-text and
// an HTML part.
func BuildMessage(ctx context.Context, from string, to []string, alert model.Alert, date time.Time) ([]byte, error) {
	htmlBody, err := RenderHTML(ctx, alert)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain; charset=utf-8", RenderText(alert)); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=utf-8", htmlBody); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", (&mail.Address{Address: from}).String())
	fmt.Fprintf(&msg, "To: %s\r\n", formatAddressList(to))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", Subject(alert)))
	fmt.Fprintf(&msg, "Date: %s\r\n", date.Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}

	// Quoted-printable keeps every encoded line under 76 octets, well inside
	// the 998-octet SMTP line limit, however many rows the table has.
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("flush %s part: %w", contentType, err)
	}
	return nil
}

func formatAddressList(addrs []string) string {
	formatted := make([]string, 0, len(addrs))
	for _, a := range addrs {
		formatted = append(formatted, (&mail.Address{Address: a}).String())
	}
	return strings.Join(formatted, ", ")
}

// smtpConversationTimeout bounds a whole SMTP transaction when the caller's
// context carries no deadline.
const smtpConversationTimeout = time.Minute

// conversationDeadline returns the context deadline when there is one, and
// now plus smtpConversationTimeout otherwise.
func conversationDeadline(ctx context.Context, now time.Time) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return now.Add(smtpConversationTimeout)
}

// sendTLS performs an SMTP transaction over an implicitly encrypted connection.
func sendTLS(ctx context.Context, addr string, secrets model.Secrets, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse smtp address %q: %w", addr, err)
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 15 * time.Second},
		Config:    &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := conn.SetDeadline(conversationDeadline(ctx, time.Now())); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set smtp deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", secrets.User, secrets.AppPassword, host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return client.Quit()
}
