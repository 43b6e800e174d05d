package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-mail/mail"
)

// TLS modes understood by SMTPSender.
const (
	TLSModeAuto = "auto" // STARTTLS when the server offers it
	TLSModeSSL  = "ssl"  // implicit TLS, usually port 465
	TLSModeNone = "none"
)

var ErrNoRecipients = errors.New("message has no recipients")

// SMTPSender sends messages through an SMTP relay.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	TLSMode  string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	mode := TLSModeAuto
	if port == 465 {
		mode = TLSModeSSL
	}
	return &SMTPSender{Host: host, Port: port, User: user, Password: password, From: from, TLSMode: mode}
}

// dialAndSend is a seam for testing mail.Dialer.DialAndSend.
var dialAndSend = func(d *mail.Dialer, m *mail.Message) error {
	return d.DialAndSend(m)
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Password)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	switch s.TLSMode {
	case TLSModeSSL:
		d.SSL = true
	case TLSModeNone:
		d.StartTLSPolicy = mail.NoStartTLS
	}

	if err := dialAndSend(d, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m
}
