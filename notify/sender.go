// Package notify delivers outbound email. Callers compose the message; senders only transport it.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Message is one email. TextBody is a real plaintext alternative supplied by the caller,
// never derived from HTMLBody.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("recipient %q is invalid: %w", m.To, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return fmt.Errorf("a body is required")
	}
	return nil
}

// Sender attempts delivery of a message. Transport failures wrap errors.ErrTransport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
