package config

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host string `env:"IDENTITY_HOST" env-default:"0.0.0.0"`
	Port uint16 `env:"IDENTITY_PORT" env-default:"4000"`

	// BaseURL is the externally visible URL used to build links in
	// outgoing email.
	BaseURL string `env:"IDENTITY_BASE_URL" env-default:"http://localhost:4000"`
}
