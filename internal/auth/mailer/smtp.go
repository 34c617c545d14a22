package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EncryptionMode selects how the SMTP connection is secured.
type EncryptionMode string

const (
	EncNone     EncryptionMode = "NONE"
	EncStartTLS EncryptionMode = "STARTTLS"
	EncSSLTLS   EncryptionMode = "SSL/TLS"
)

// SMTPSender delivers verification codes over SMTP. It supports the common
// provider setups (implicit TLS on 465, STARTTLS on 587, plaintext for local
// relays).
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
	Enc      EncryptionMode
}

// NewSMTPSender builds an SMTPSender, defaulting to STARTTLS when the
// encryption mode is unrecognized.
func NewSMTPSender(host string, port int, username, password, fromAddr, fromName, enc string) *SMTPSender {
	mode := EncryptionMode(strings.ToUpper(strings.TrimSpace(enc)))
	if mode != EncNone && mode != EncStartTLS && mode != EncSSLTLS {
		mode = EncStartTLS
	}
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		FromAddr: fromAddr,
		FromName: fromName,
		Enc:      mode,
	}
}

// SendVerificationCode emails the 6-digit code. Any failure is returned as-is;
// the caller decides what to roll back.
func (s *SMTPSender) SendVerificationCode(ctx context.Context, email, code string) error {
	subject := "Your ReeUtil verification code"
	body := fmt.Sprintf(
		"Your verification code is %s.\r\n\r\nIt expires in 10 minutes. If you did not request it, ignore this message.\r\n",
		code)
	msg := s.buildMessage(email, subject, body)

	var d net.Dialer
	if deadline, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(deadline)
		if d.Timeout <= 0 {
			d.Timeout = 10 * time.Second
		}
	} else {
		d.Timeout = 15 * time.Second
	}

	address := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)

	switch s.Enc {
	case EncSSLTLS:
		conn, err := tls.DialWithDialer(&d, "tcp", address, &tls.Config{ServerName: s.Host})
		if err != nil {
			return fmt.Errorf("mailer: tls dial: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			return fmt.Errorf("mailer: new client: %w", err)
		}
		defer client.Quit()

		return s.deliver(client, auth, email, msg)

	case EncStartTLS:
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("mailer: dial: %w", err)
		}

		client, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("mailer: new client: %w", err)
		}
		defer client.Quit()

		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
				return fmt.Errorf("mailer: starttls: %w", err)
			}
		}

		return s.deliver(client, auth, email, msg)

	default: // EncNone
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("mailer: dial: %w", err)
		}

		client, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("mailer: new client: %w", err)
		}
		defer client.Quit()

		return s.deliver(client, nil, email, msg)
	}
}

func (s *SMTPSender) deliver(client *smtp.Client, auth smtp.Auth, rcpt string, msg []byte) error {
	if auth != nil && s.Username != "" {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}
	if err := client.Mail(s.FromAddr); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(strings.TrimSpace(rcpt)); err != nil {
		return fmt.Errorf("mailer: RCPT TO %s: %w", rcpt, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close data: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	if s.FromName != "" {
		fmt.Fprintf(&b, "From: %s <%s>\r\n", s.FromName, s.FromAddr)
	} else {
		fmt.Fprintf(&b, "From: %s\r\n", s.FromAddr)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
