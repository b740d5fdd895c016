package monitoring

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dux-ghl-sync/internal/config"
)

// SMTPSink mails alerts over an implicit-TLS SMTP connection.
type SMTPSink struct {
	cfg     config.AlertConfig
	timeout time.Duration
}

// NewSMTPSink creates a sink from the alert config.
func NewSMTPSink(cfg config.AlertConfig) *SMTPSink {
	return &SMTPSink{cfg: cfg, timeout: 15 * time.Second}
}

// Name implements Sink.
func (s *SMTPSink) Name() string { return "smtp" }

// Deliver sends the alert to every configured recipient.
func (s *SMTPSink) Deliver(ctx context.Context, alert Alert) error {
	if len(s.cfg.To) == 0 {
		return eris.New("monitoring: smtp sink has no recipients")
	}

	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.timeout},
		Config:    &tls.Config{ServerName: s.cfg.SMTPHost, MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return eris.Wrapf(err, "monitoring: dial smtp %s", addr)
	}
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	c, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close() //nolint:errcheck
		return eris.Wrap(err, "monitoring: smtp handshake")
	}
	defer c.Close() //nolint:errcheck

	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := c.Auth(auth); err != nil {
			return eris.Wrap(err, "monitoring: smtp auth")
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return eris.Wrap(err, "monitoring: smtp mail from")
	}
	for _, rcpt := range s.cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return eris.Wrapf(err, "monitoring: smtp rcpt %s", rcpt)
		}
	}

	w, err := c.Data()
	if err != nil {
		return eris.Wrap(err, "monitoring: smtp data")
	}
	if _, err := w.Write(buildMessage(s.cfg, alert)); err != nil {
		w.Close() //nolint:errcheck
		return eris.Wrap(err, "monitoring: smtp write body")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "monitoring: smtp close body")
	}
	return c.Quit()
}

// buildMessage renders a plain-text RFC 5322 message for alert.
func buildMessage(cfg config.AlertConfig, alert Alert) []byte {
	subject := cfg.Subject
	if subject == "" {
		subject = "dux-ghl-sync alert"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s [%s]\r\n", subject, alert.Type)
	fmt.Fprintf(&b, "Date: %s\r\n", alert.Timestamp.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")

	fmt.Fprintf(&b, "%s\r\n\r\n", alert.Message)
	fmt.Fprintf(&b, "time: %s\r\n", alert.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "severity: %s\r\n", alert.Severity)

	keys := make([]string, 0, len(alert.Details))
	for k := range alert.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\r\n", k, alert.Details[k])
	}
	return []byte(b.String())
}
