package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	apperrors "github.com/jrsteele09/lively-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const charsetUTF8 = "UTF-8"

// SESClient is the part of the SES v2 API the sender uses. *sesv2.Client satisfies it.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender delivers mail through Amazon SES
type SESSender struct {
	client SESClient
	from   string
}

var _ Sender = (*SESSender)(nil)

func NewSESSender(client SESClient, from string) (*SESSender, error) {
	if client == nil {
		return nil, errors.New("[NewSESSender] ses client is required")
	}
	if from == "" {
		return nil, errors.New("[NewSESSender] from address is required")
	}
	return &SESSender{client: client, from: from}, nil
}

// NewSESSenderFromEnv builds an SES client from the default AWS credential chain
// (environment, shared config, or an attached IAM role).
func NewSESSenderFromEnv(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "[NewSESSenderFromEnv] load aws config")
	}
	return NewSESSender(sesv2.NewFromConfig(cfg), from)
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Charset: aws.String(charsetUTF8), Data: aws.String(msg.HTMLBody)}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Charset: aws.String(charsetUTF8), Data: aws.String(msg.TextBody)}
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Charset: aws.String(charsetUTF8), Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrTransport, "ses send to %s (%v)", msg.To, err)
	}

	log.Info().Str("to", msg.To).Str("messageId", aws.ToString(out.MessageId)).Msg("Email sent")
	return nil
}
