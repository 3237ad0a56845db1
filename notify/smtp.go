package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/glimte/travel-notify/metrics"
)

// SMTPSender delivers messages over SMTP with STARTTLS and plain
// authentication. Transient delivery failures are reported to the caller,
// which owns the retry decision.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	logger   *slog.Logger

	// sendMail is swapped out in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// SMTPOption configures the SMTPSender.
type SMTPOption func(*SMTPSender)

// WithSMTPLogger sets the logger.
func WithSMTPLogger(logger *slog.Logger) SMTPOption {
	return func(s *SMTPSender) {
		s.logger = logger
	}
}

// NewSMTPSender creates a sender for the given server and sender identity.
func NewSMTPSender(host string, port int, username, password, from, fromName string, options ...SMTPOption) *SMTPSender {
	s := &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		logger:   slog.Default(),
		sendMail: smtp.SendMail,
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Send delivers one message. It blocks until the SMTP exchange completes or
// ctx is cancelled.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	payload := s.encode(msg)

	s.logger.Info("sending email",
		"to", msg.To,
		"subject", msg.Subject,
		"host", s.host,
	)

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(addr, auth, s.from, []string{msg.To}, payload)
	}()

	select {
	case <-ctx.Done():
		metrics.ObserveEmailSend("cancelled", time.Since(start))
		return ctx.Err()
	case err := <-done:
		if err != nil {
			metrics.ObserveEmailSend("error", time.Since(start))
			s.logger.Error("email send failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
			return fmt.Errorf("notify: send to %s: %w", msg.To, err)
		}
	}

	metrics.ObserveEmailSend("sent", time.Since(start))
	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// encode builds the RFC 5322 wire form of the message.
func (s *SMTPSender) encode(msg Message) []byte {
	contentType := "text/plain; charset=\"UTF-8\""
	if msg.HTML {
		contentType = "text/html; charset=\"UTF-8\""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", formatAddress(s.fromName, s.from))
	fmt.Fprintf(&sb, "To: %s\r\n", formatAddress(msg.ToName, msg.To))
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&sb, "Content-Type: %s\r\n", contentType)
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return []byte(sb.String())
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", name), email)
}
