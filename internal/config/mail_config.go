package config

type MailConfig interface {
	GetMailTransport() string
	GetEmailFrom() string
	GetAWSRegion() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
}

const (
	MailTransportLog  = "log"
	MailTransportSMTP = "smtp"
	MailTransportSES  = "ses"
)

type Mail struct{}

var _ MailConfig = Mail{}

func (Mail) GetMailTransport() string {
	return GetEnv("MAIL_TRANSPORT", MailTransportLog)
}

func (Mail) GetEmailFrom() string {
	return GetEnv("EMAIL_FROM", "Lively <lively@zachayers.io>")
}

func (Mail) GetAWSRegion() string {
	return GetEnv("AWS_REGION", "us-east-1")
}

func (Mail) GetSmtpHost() string {
	return GetEnv("SMTP_HOST", "smtp.gmail.com")
}

func (Mail) GetSmtpPort() string {
	return GetEnv("SMTP_PORT", "587")
}

func (Mail) GetSmtpAccount() string {
	return GetEnv("SMTP_ACCOUNT", "")
}

func (Mail) GetSmtpPassword() string {
	return GetEnv("SMTP_PASSWORD", "")
}
