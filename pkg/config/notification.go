package config

// SMTPConfig holds outgoing email configuration.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"1025"`
	TLS      bool   `env:"SMTP_TLS" env-default:"false"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" env-default:"no-reply@localhost"`
}

// TwilioConfig holds outgoing SMS configuration.
type TwilioConfig struct {
	AccountSid string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	From       string `env:"TWILIO_FROM" env-default:"+15005550006"`
}

// NotificationConfig holds delivery toggles.
type NotificationConfig struct {
	// EmailEnabled and SMSEnabled gate the respective notifiers; with a
	// channel disabled, its notices are dropped with a log line.
	EmailEnabled bool `env:"NOTIFY_EMAIL_ENABLED" env-default:"true"`
	SMSEnabled   bool `env:"NOTIFY_SMS_ENABLED" env-default:"false"`
}
