package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSender writes messages to the log instead of delivering them. Used in development.
type LogSender struct{}

var _ Sender = LogSender{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.TextBody).
		Msg("Email (not sent, log transport)")
	return nil
}
