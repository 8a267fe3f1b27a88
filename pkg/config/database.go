package config

import "fmt"

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host     string `env:"IDENTITY_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"IDENTITY_PG_PORT" env-default:"5432"`
	Database string `env:"IDENTITY_PG_DATABASE" env-default:"identity_db"`
	User     string `env:"IDENTITY_PG_USER" env-default:"identity"`
	Password string `env:"IDENTITY_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"IDENTITY_PG_SCHEMA" env-default:"public"`

	// InMemory selects the in-memory store instead of PostgreSQL, for
	// local development and tests.
	InMemory bool `env:"IDENTITY_IN_MEMORY" env-default:"false"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}
