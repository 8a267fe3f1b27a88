package config

import "time"

// SecurityConfig holds credential and token policy knobs.
type SecurityConfig struct {
	BcryptCost       int `env:"BCRYPT_COST" env-default:"10"`
	LockoutThreshold int `env:"LOCKOUT_THRESHOLD" env-default:"5"`

	PasswordMinLength        int  `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
	PasswordRequireUppercase bool `env:"PASSWORD_REQUIRE_UPPERCASE" env-default:"true"`
	PasswordRequireLowercase bool `env:"PASSWORD_REQUIRE_LOWERCASE" env-default:"true"`
	PasswordRequireDigit     bool `env:"PASSWORD_REQUIRE_DIGIT" env-default:"true"`

	EmailTokenExpiry time.Duration `env:"EMAIL_TOKEN_EXPIRY" env-default:"24h"`
	PhoneCodeExpiry  time.Duration `env:"PHONE_CODE_EXPIRY" env-default:"10m"`
	ResetTokenExpiry time.Duration `env:"RESET_TOKEN_EXPIRY" env-default:"10m"`

	// PhoneRegion is the default region for phone numbers supplied
	// without a country prefix.
	PhoneRegion string `env:"PHONE_REGION" env-default:"US"`
}
