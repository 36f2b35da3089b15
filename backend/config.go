package backend

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/twoauth/twoauth/auth"
)

// Config is the backend startup surface. Invalid values are fatal at
// startup; the only silent fallbacks are the documented TTL and rotation
// defaults applied inside the auth package.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// DBPath is the sqlite database file, ":memory:" for ephemeral runs.
	DBPath string
	// TokenTTL bounds issued tokens. Zero means auth.DefaultTokenTTL.
	TokenTTL time.Duration
	// KeyRotationPeriod replaces the signing key on this cadence. Zero
	// means auth.DefaultKeyRotationPeriod.
	KeyRotationPeriod time.Duration
	// ActivationMode is one of none, email, test.
	ActivationMode string
	// SMTPAddr and SMTPFrom configure mail delivery for the email
	// activation mode.
	SMTPAddr string
	SMTPFrom string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8081",
		DBPath:         "twoauth.db",
		ActivationMode: string(auth.ActivationTest),
		LogLevel:       "info",
	}
}

// FromEnv overlays TWOAUTH_* environment variables on the defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TWOAUTH_BACKEND_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TWOAUTH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TWOAUTH_TOKEN_TTL_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TokenTTL = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TWOAUTH_KEY_ROTATION_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.KeyRotationPeriod = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("TWOAUTH_ACTIVATION_MODE"); v != "" {
		cfg.ActivationMode = v
	}
	if v := os.Getenv("TWOAUTH_SMTP_ADDR"); v != "" {
		cfg.SMTPAddr = v
	}
	if v := os.Getenv("TWOAUTH_SMTP_FROM"); v != "" {
		cfg.SMTPFrom = v
	}
	if v := os.Getenv("TWOAUTH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Validate rejects a config the server must not start with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DBPath, validation.Required),
		validation.Field(&c.ActivationMode, validation.Required, validation.In(
			string(auth.ActivationNone),
			string(auth.ActivationEmail),
			string(auth.ActivationTest),
		)),
	)
}
