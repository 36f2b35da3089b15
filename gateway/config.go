package gateway

import (
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// DefaultSessionCookieName is used when no custom name is configured.
// With TLS the name gains the __Host- prefix, binding the cookie to this
// host and the root path.
const DefaultSessionCookieName = "XYZ_S"

// Config is the gateway startup surface.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// BackendURL is the base URL of the token-issuing backend.
	BackendURL string
	// TLSEnabled switches Secure cookies, HSTS, and the __Host- prefix.
	TLSEnabled bool
	// SessionCookieName overrides DefaultSessionCookieName.
	SessionCookieName string
	// MaxSessions caps concurrent sessions per account. Zero means
	// DefaultMaxSessions.
	MaxSessions int
	// AllowedOrigins and AllowedMethods configure CORS.
	AllowedOrigins []string
	AllowedMethods []string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		BackendURL:        "http://localhost:8081",
		SessionCookieName: DefaultSessionCookieName,
		MaxSessions:       DefaultMaxSessions,
		AllowedOrigins:    []string{"*"},
		AllowedMethods:    []string{"GET", "POST", "PUT", "DELETE"},
		LogLevel:          "info",
	}
}

// FromEnv overlays TWOAUTH_* environment variables on the defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TWOAUTH_GATEWAY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TWOAUTH_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("TWOAUTH_TLS_ENABLED"); v != "" {
		cfg.TLSEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("TWOAUTH_SESSION_COOKIE"); v != "" {
		cfg.SessionCookieName = v
	}
	if v := os.Getenv("TWOAUTH_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("TWOAUTH_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TWOAUTH_ALLOWED_METHODS"); v != "" {
		cfg.AllowedMethods = splitList(v)
	}
	if v := os.Getenv("TWOAUTH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Validate rejects a config the gateway must not start with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.BackendURL, validation.Required, is.URL),
		validation.Field(&c.MaxSessions, validation.Min(0)),
	)
}

// CookieName is the effective session cookie name.
func (c Config) CookieName() string {
	name := c.SessionCookieName
	if strings.TrimSpace(name) == "" {
		name = DefaultSessionCookieName
	}
	if c.TLSEnabled {
		return "__Host-" + name
	}
	return name
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
