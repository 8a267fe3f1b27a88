package config

import "time"

// JWTConfig holds session credential configuration.
type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer        string        `env:"JWT_ISSUER" env-default:"identity-core"`
	SessionExpiry time.Duration `env:"SESSION_EXPIRY" env-default:"24h"`
}
