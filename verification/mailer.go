package verification

import (
	"context"
	"fmt"
	"html"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/jrsteele09/lively-auth/notify"
	"github.com/jrsteele09/lively-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const VerifyEmailSubject = "Lively - Verify Email Address"

// Mailer issues a verification token for an account and emails the link to it
type Mailer struct {
	issuer *Issuer
	sender notify.Sender
	strict bool
}

type MailerOption func(*Mailer)

// WithStrictDelivery makes transport failures fatal. Without it they are logged and swallowed.
func WithStrictDelivery(strict bool) MailerOption {
	return func(m *Mailer) {
		m.strict = strict
	}
}

func NewMailer(issuer *Issuer, sender notify.Sender, options ...MailerOption) (*Mailer, error) {
	if issuer == nil {
		return nil, errors.New("[NewMailer] issuer is required")
	}
	if sender == nil {
		return nil, errors.New("[NewMailer] sender is required")
	}
	m := &Mailer{issuer: issuer, sender: sender}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// ConstructAndSend issues a token for user and sends a link back to origin.
// Issuing failures are always returned; transport failures only when delivery is strict.
func (m *Mailer) ConstructAndSend(ctx context.Context, user *users.User, origin string) error {
	if user == nil || user.ID == "" || user.Email == "" {
		return errors.New("[Mailer.ConstructAndSend] user id and email are required")
	}

	tok, err := m.issuer.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	link := BuildVerificationLink(origin, tok.Encoded, user.Email)
	msg := notify.Message{
		To:       user.Email,
		Subject:  VerifyEmailSubject,
		HTMLBody: verifyEmailHTML(link),
		TextBody: verifyEmailText(link),
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		log.Err(err).Str("to", user.Email).Bool("strict", m.strict).Msg("Failed to send verification email")
		if m.strict {
			if !apperrors.Is(err, apperrors.ErrTransport) {
				err = fmt.Errorf("%w: %w", apperrors.ErrTransport, err)
			}
			return apperrors.Wrapf(err, "email could not be sent")
		}
		return nil
	}
	return nil
}

func verifyEmailHTML(link string) string {
	return "<p>Please click the link below to verify your email address:</p>" +
		`<p><a href="` + html.EscapeString(link) + `">Click To Verify</a></p>`
}

func verifyEmailText(link string) string {
	return "Please open the link below to verify your email address:\n\n" + link + "\n"
}
