// Package mailer submits outreach email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Security modes for the SMTP connection.
const (
	SecuritySSL      = "ssl"
	SecuritySTARTTLS = "starttls"
	SecurityNone     = "none"
)

// SMTPMailer sends one message per connection.
type SMTPMailer struct {
	smtp    config.SMTPConfig
	sender  config.SenderConfig
	tlsConf *tls.Config
	now     func() time.Time
}

// Option configures an SMTPMailer.
type Option func(*SMTPMailer)

// WithTLSConfig overrides the TLS client configuration.
func WithTLSConfig(c *tls.Config) Option {
	return func(m *SMTPMailer) { m.tlsConf = c }
}

// New creates an SMTPMailer.
func New(smtpCfg config.SMTPConfig, sender config.SenderConfig, opts ...Option) *SMTPMailer {
	m := &SMTPMailer{smtp: smtpCfg, sender: sender, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Security returns the effective connection mode. An unset mode is derived
// from the port: 465 is implicit TLS, anything else STARTTLS.
func (m *SMTPMailer) Security() string {
	if s := strings.ToLower(strings.TrimSpace(m.smtp.Security)); s != "" {
		return s
	}
	if m.smtp.Port == 465 {
		return SecuritySSL
	}
	return SecuritySTARTTLS
}

// Send delivers a plain-text message to one recipient. The bool reports
// success; the string is the Message-ID on success and the failure otherwise.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) (bool, string) {
	if missing := m.missing(); len(missing) > 0 {
		return false, "missing smtp configuration: " + strings.Join(missing, ", ")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return false, "missing recipient"
	}

	msgID := uuid.New().String() + "@" + domainOf(m.sender.Address)
	raw, err := m.compose(to, subject, body, msgID)
	if err != nil {
		return false, err.Error()
	}

	start := time.Now()
	if err := m.deliver(ctx, to, raw); err != nil {
		zap.L().Warn("mailer: send failed",
			zap.String("to", to),
			zap.String("security", m.Security()),
			zap.Error(err),
		)
		return false, err.Error()
	}
	zap.L().Info("mailer: sent",
		zap.String("to", to),
		zap.String("message_id", msgID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return true, "<" + msgID + ">"
}

func (m *SMTPMailer) missing() []string {
	var out []string
	if m.smtp.Host == "" {
		out = append(out, "smtp.host")
	}
	if m.smtp.Port <= 0 {
		out = append(out, "smtp.port")
	}
	if m.sender.Address == "" {
		out = append(out, "sender.address")
	}
	if (m.smtp.Username == "") != (m.smtp.Password == "") {
		out = append(out, "smtp.username/smtp.password")
	}
	return out
}

// compose renders the RFC 5322 message.
func (m *SMTPMailer) compose(to, subject, body, msgID string) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Name: m.sender.DisplayName, Address: m.sender.Address}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetMessageID(msgID)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, eris.Wrap(err, "mailer: create message")
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, eris.Wrap(err, "mailer: write body")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "mailer: close message")
	}
	return buf.Bytes(), nil
}

func (m *SMTPMailer) deliver(ctx context.Context, to string, raw []byte) error {
	timeout := m.smtp.Timeout()
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	addr := net.JoinHostPort(m.smtp.Host, strconv.Itoa(m.smtp.Port))
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	switch m.Security() {
	case SecuritySSL:
		td := &tls.Dialer{NetDialer: dialer, Config: m.tlsConfig()}
		conn, err = td.DialContext(ctx, "tcp", addr)
	case SecuritySTARTTLS, SecurityNone:
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	default:
		return eris.Errorf("mailer: unknown security mode %q", m.Security())
	}
	if err != nil {
		return eris.Wrapf(err, "mailer: dial %s", addr)
	}
	defer conn.Close() //nolint:errcheck
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return eris.Wrap(err, "mailer: set deadline")
	}

	c, err := smtp.NewClient(conn, m.smtp.Host)
	if err != nil {
		return eris.Wrap(err, "mailer: smtp handshake")
	}
	defer c.Close() //nolint:errcheck

	if m.Security() == SecuritySTARTTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return eris.New("mailer: server does not support STARTTLS")
		}
		if err := c.StartTLS(m.tlsConfig()); err != nil {
			return eris.Wrap(err, "mailer: starttls")
		}
	}

	if m.smtp.Username != "" {
		auth := smtp.PlainAuth("", m.smtp.Username, m.smtp.Password, m.smtp.Host)
		if err := c.Auth(auth); err != nil {
			return eris.Wrap(err, "mailer: auth")
		}
	}
	if err := c.Mail(m.sender.Address); err != nil {
		return eris.Wrap(err, "mailer: mail from")
	}
	if err := c.Rcpt(to); err != nil {
		return eris.Wrapf(err, "mailer: rcpt to %s", to)
	}
	w, err := c.Data()
	if err != nil {
		return eris.Wrap(err, "mailer: data")
	}
	if _, err := w.Write(raw); err != nil {
		return eris.Wrap(err, "mailer: write message")
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "mailer: close data")
	}
	// The server accepted the message once DATA closed cleanly.
	if err := c.Quit(); err != nil {
		zap.L().Debug("mailer: quit after delivery", zap.String("to", to), zap.Error(err))
	}
	return nil
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.tlsConf != nil {
		return m.tlsConf
	}
	return &tls.Config{ServerName: m.smtp.Host, MinVersion: tls.VersionTLS12}
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// String describes the transport for logs.
func (m *SMTPMailer) String() string {
	return fmt.Sprintf("smtp://%s:%d (%s)", m.smtp.Host, m.smtp.Port, m.Security())
}
