package auth

import (
	"context"
	"fmt"
)

// Logger is the logging contract the package depends on. The logger
// package provides a zerolog-backed implementation; defLogger is the
// stderr fallback used when callers pass nil.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// KeyStore exposes the current signing key. Every issuance and
// verification reads through it, so replacing the key invalidates all
// previously issued tokens.
type KeyStore interface {
	Current() []byte
}

// TokenService issues and verifies bearer tokens.
type TokenService interface {
	Generate(user *User) (string, error)
	Validate(raw string) (AuthClaims, error)
}

// TokenValidator validates tokens without tying callers to the issuing
// implementation.
type TokenValidator interface {
	Validate(raw string) (AuthClaims, error)
}

// Mailer delivers activation tokens out-of-band.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args) }
func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args) }

func (defLogger) print(level, msg string, args []any) {
	if len(args) == 0 {
		fmt.Printf("[%s] AUTH %s\n", level, msg)
		return
	}
	fmt.Printf("[%s] AUTH %s %v\n", level, msg, args)
}
