// Package config holds the environment-driven configuration of the
// identity service, one file per concern. Values are loaded with cleanenv
// and every knob has a development-friendly default.
package config

import "github.com/ilyakaznacheev/cleanenv"

// Config is the root configuration of the identity service.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	SMTP         SMTPConfig
	Twilio       TwilioConfig
	Security     SecurityConfig
	Notification NotificationConfig
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
