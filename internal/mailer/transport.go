package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPTransport sends through a plain SMTP relay with optional PLAIN auth.
type SMTPTransport struct {
	addr string
	host string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPTransport builds a transport for addr ("host:port").
func NewSMTPTransport(addr, username, password string) *SMTPTransport {
	host := addr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		host = addr[:i]
	}
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPTransport{addr: addr, host: host, auth: auth, send: smtp.SendMail}
}

// Send writes an RFC 5322 message to the relay.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mailer: message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.send(t.addr, t.auth, msg.From, msg.To, compose(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogTransport only logs messages; used when SMTP is not configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport builds a log-only transport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the message envelope.
func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("email (log transport)",
		zap.String("trigger", msg.Trigger),
		zap.String("ticket_id", msg.TicketID),
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
		zap.Int("body_length", len(msg.Body)))
	return nil
}
