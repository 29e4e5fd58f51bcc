package services

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
	"github.com/hermes-crm/hermes/utils"
)

// Message is one outbound greeting handed to a channel sender.
type Message struct {
	GreetingID     uint
	IdempotencyKey string
	Recipient      string
	Subject        string
	Body           string
	ImagePath      string
}

// Sender delivers a message over one concrete channel. Send returns a
// short provider message for the delivery record.
type Sender interface {
	Channel() models.DeliveryChannel
	Send(ctx context.Context, msg Message) (string, error)
}

// SenderRegistry resolves a sender by channel.
type SenderRegistry struct {
	senders map[models.DeliveryChannel]Sender
}

// NewSenderRegistry creates a registry over the given senders
func NewSenderRegistry(senders ...Sender) *SenderRegistry {
	reg := &SenderRegistry{senders: make(map[models.DeliveryChannel]Sender, len(senders))}
	for _, s := range senders {
		reg.senders[s.Channel()] = s
	}
	return reg
}

// Get returns the sender for the channel
func (r *SenderRegistry) Get(channel models.DeliveryChannel) (Sender, bool) {
	s, ok := r.senders[channel]
	return s, ok
}

// FileSender writes greetings into a local outbox directory as plain
// text files. It is the default channel for demos and development.
type FileSender struct {
	outboxDir string
}

// NewFileSender creates a file channel sender
func NewFileSender(outboxDir string) *FileSender {
	return &FileSender{outboxDir: outboxDir}
}

// Channel returns the channel this sender serves
func (s *FileSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelFile
}

// Send writes the outbox record delivery_<greetingID>_<key>.txt
func (s *FileSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := os.MkdirAll(s.outboxDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create outbox directory: %w", err)
	}

	filename := fmt.Sprintf("delivery_%d_%s.txt", msg.GreetingID, msg.IdempotencyKey)
	payload := strings.Join([]string{
		"TO: " + msg.Recipient,
		"SUBJECT: " + msg.Subject,
		"",
		msg.Body,
		"",
		"IMAGE: " + msg.ImagePath,
	}, "\n")

	path := filepath.Join(s.outboxDir, filename)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("failed to write outbox file: %w", err)
	}

	return "written:" + filename, nil
}

// SMTPSender delivers greetings over SMTP with optional STARTTLS or
// implicit TLS and an optional PNG card attachment.
type SMTPSender struct {
	cfg config.SMTP
}

// NewSMTPSender creates an email channel sender
func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Channel returns the channel this sender serves
func (s *SMTPSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelEmail
}

// Send builds the MIME message and pushes it through the SMTP session
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	if !s.cfg.Configured() {
		return "", fmt.Errorf("smtp is not configured")
	}

	body, err := s.buildMIME(msg)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	client, err := s.dial(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("smtp dial failed: %w", err)
	}
	defer client.Close()

	if !s.cfg.UseSSL && s.cfg.UseSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return "", fmt.Errorf("starttls failed: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(s.cfg.FromEmail); err != nil {
		return "", fmt.Errorf("smtp mail from failed: %w", err)
	}
	if err := client.Rcpt(msg.Recipient); err != nil {
		return "", fmt.Errorf("smtp rcpt to failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data failed: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return "", fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp close failed: %w", err)
	}

	if err := client.Quit(); err != nil {
		return "", fmt.Errorf("smtp quit failed: %w", err)
	}

	return "smtp:accepted", nil
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	if s.cfg.UseSSL {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: s.cfg.Host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, s.cfg.Host)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, s.cfg.Host)
}

func (s *SMTPSender) buildMIME(msg Message) ([]byte, error) {
	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.FromName), s.cfg.FromEmail)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.Recipient + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + utils.UTCNowFormat("Mon, 02 Jan 2006 15:04:05 -0700") + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	attachment, err := s.readAttachment(msg.ImagePath)
	if err != nil {
		// A missing card must not block the text from going out.
		attachment = nil
	}

	if attachment == nil {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(msg.Body))))
		return []byte(b.String()), nil
	}

	const boundary = "hermes-mime-boundary"
	b.WriteString("Content-Type: multipart/mixed; boundary=" + boundary + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(msg.Body))))
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: image/png\r\n")
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", filepath.Base(msg.ImagePath)))
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(attachment)))
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String()), nil
}

func (s *SMTPSender) readAttachment(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// wrapBase64 folds base64 content at 76 characters per RFC 2045.
func wrapBase64(encoded string) string {
	const lineLen = 76
	var b strings.Builder
	for len(encoded) > lineLen {
		b.WriteString(encoded[:lineLen])
		b.WriteString("\r\n")
		encoded = encoded[lineLen:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	return b.String()
}

// NoopSender accepts everything and does nothing. Used in tests and as
// a dry-run channel.
type NoopSender struct{}

// NewNoopSender creates a no-op channel sender
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Channel returns the channel this sender serves
func (s *NoopSender) Channel() models.DeliveryChannel {
	return models.DeliveryChannelNoop
}

// Send does nothing and reports success
func (s *NoopSender) Send(ctx context.Context, msg Message) (string, error) {
	return "noop", nil
}
