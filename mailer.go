package pinauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPConfig holds the connection settings for SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail over SMTP. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	config SMTPConfig
	logger Logger
}

// NewSMTPMailer creates a Mailer backed by an SMTP server.
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the mailer.
func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Send delivers the message. The context deadline bounds the dial; SMTP
// conversation errors are wrapped so callers can surface a delivery failure.
func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	client, err := m.dial(ctx, addr)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to SMTP server")
	}
	defer client.Close()

	if m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP authentication failed")
		}
	}

	if err := client.Mail(parseAddress(m.config.From)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP MAIL command failed")
	}

	if err := client.Rcpt(msg.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP RCPT command failed")
	}

	writer, err := client.Data()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "SMTP DATA command failed")
	}

	if _, err := writer.Write([]byte(buildMessage(m.config.From, msg))); err != nil {
		writer.Close()
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to write SMTP message body")
	}

	if err := writer.Close(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to finalize SMTP message")
	}

	return client.Quit()
}

func (m *SMTPMailer) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{}

	if m.config.Port == 465 {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: m.config.Host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, m.config.Host)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

func buildMessage(from string, msg MailMessage) string {
	headers := []string{
		"From: " + from,
		"To: " + msg.To,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		msg.Body,
	}
	return strings.Join(headers, "\r\n")
}

func parseAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}

// LogMailer writes messages to the logger instead of delivering them.
// Meant for local development where no SMTP server is available.
type LogMailer struct {
	logger Logger
}

// NewLogMailer creates a Mailer that only logs.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(_ context.Context, msg MailMessage) error {
	m.logger.Info("mail (not sent)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}

// NewOtpMail builds the verification code message sent during registration.
func NewOtpMail(to, code string, ttl time.Duration) MailMessage {
	minutes := int(ttl.Minutes())
	return MailMessage{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf(
			"Your verification code is: %s\n\nThe code expires in %d minutes. If you did not request it you can ignore this message.",
			code, minutes,
		),
	}
}
