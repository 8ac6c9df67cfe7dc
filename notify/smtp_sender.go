package notify

import (
	"context"
	"strconv"

	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

// MailClient delivers composed messages. *mail.Client satisfies it.
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Account  string
	Password string
	From     string
}

// SMTPSender sends multipart/alternative mail through an SMTP relay with PLAIN auth
type SMTPSender struct {
	cfg    SMTPConfig
	client MailClient
}

var _ Sender = (*SMTPSender)(nil)

type SMTPOption func(*SMTPSender)

func WithMailClient(client MailClient) SMTPOption {
	return func(s *SMTPSender) {
		s.client = client
	}
}

func NewSMTPSender(cfg SMTPConfig, options ...SMTPOption) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, errors.New("[NewSMTPSender] host and port are required")
	}
	if cfg.From == "" {
		return nil, errors.New("[NewSMTPSender] from address is required")
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "[NewSMTPSender] invalid port %q", cfg.Port)
	}

	s := &SMTPSender{cfg: cfg}
	for _, opt := range options {
		opt(s)
	}
	if s.client != nil {
		return s, nil
	}

	clientOptions := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Account != "" {
		clientOptions = append(clientOptions,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Account),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSMTPSender] failed to create mail client")
	}
	s.client = client
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Wrapf(apperrors.ErrTransport, "smtp send cancelled (%v)", err)
	}

	m, err := s.compose(msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return apperrors.Wrapf(apperrors.ErrTransport, "smtp send to %s (%v)", msg.To, err)
	}
	log.Info().Str("to", msg.To).Str("relay", s.cfg.Host).Msg("Email sent")
	return nil
}

// compose puts the plaintext body first so clients prefer the HTML alternative
func (s *SMTPSender) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, errors.Wrapf(err, "invalid from address %q", s.cfg.From)
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient %q", msg.To)
	}
	m.Subject(msg.Subject)
	m.SetDate()

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}
	return m, nil
}
