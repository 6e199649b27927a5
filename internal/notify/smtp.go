package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"
)

const smtpTimeout = 30 * time.Second

// SMTP delivers plain-text mail through an SMTP relay with PLAIN auth.
type SMTP struct {
	host     string
	port     int
	user     string
	password string
	startTLS bool
	from     Address
	replyTo  string
	tlsConf  *tls.Config
}

// SMTPOpts holds parameters for creating an SMTP sender.
type SMTPOpts struct {
	Host     string
	Port     int
	User     string
	Password string
	StartTLS bool
	From     Address
	ReplyTo  string
	TLS      *tls.Config // defaults to ServerName = Host
}

// NewSMTP creates an SMTP sender.
func NewSMTP(opts SMTPOpts) (*SMTP, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	tlsConf := opts.TLS
	if tlsConf == nil {
		tlsConf = &tls.Config{ServerName: opts.Host}
	}
	return &SMTP{
		host:     opts.Host,
		port:     opts.Port,
		user:     opts.User,
		password: opts.Password,
		startTLS: opts.StartTLS,
		from:     opts.From,
		replyTo:  opts.ReplyTo,
		tlsConf:  tlsConf,
	}, nil
}

// Send delivers msg. The connection honours ctx's deadline.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	dialer := &net.Dialer{Timeout: smtpTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(smtpTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp: handshake: %w", err)
	}
	defer c.Close()

	if s.startTLS {
		if err := c.StartTLS(s.tlsConf); err != nil {
			return fmt.Errorf("smtp: starttls: %w", err)
		}
	}
	if s.user != "" {
		if err := c.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	if err := c.Mail(s.from.Email); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := w.Write(s.format(msg)); err != nil {
		return fmt.Errorf("smtp: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close data: %w", err)
	}
	return c.Quit()
}

// format renders msg as a UTF-8 plain-text MIME message.
func (s *SMTP) format(msg Message) []byte {
	from := mail.Address{Name: s.from.Name, Address: s.from.Email}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if s.replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", s.replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return b.Bytes()
}
