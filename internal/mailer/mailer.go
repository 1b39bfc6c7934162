// Package mailer delivers transactional vendor notifications.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages. Delivery failures never block ledger writes;
// callers log and move on.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP delivers mail through a plain SMTP relay (Mailpit in development).
type SMTP struct {
	host string
	port int
	from string
}

// NewSMTP constructs an SMTP mailer.
func NewSMTP(host string, port int, from string) *SMTP {
	return &SMTP{host: host, port: port, from: from}
}

// Send delivers one message.
func (m *SMTP) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
