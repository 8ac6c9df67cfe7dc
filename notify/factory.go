package notify

import (
	"context"
	"fmt"

	"github.com/jrsteele09/lively-auth/internal/config"
)

// NewFromConfig picks the transport named by MAIL_TRANSPORT
func NewFromConfig(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	switch transport := cfg.GetMailTransport(); transport {
	case config.MailTransportLog:
		return LogSender{}, nil
	case config.MailTransportSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.GetSmtpHost(),
			Port:     cfg.GetSmtpPort(),
			Account:  cfg.GetSmtpAccount(),
			Password: cfg.GetSmtpPassword(),
			From:     cfg.GetEmailFrom(),
		})
	case config.MailTransportSES:
		return NewSESSenderFromEnv(ctx, cfg.GetAWSRegion(), cfg.GetEmailFrom())
	default:
		return nil, fmt.Errorf("unknown mail transport %q", transport)
	}
}
