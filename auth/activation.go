package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// ActivationMode selects what happens to a freshly registered account.
type ActivationMode string

const (
	// ActivationNone creates accounts already active, no token.
	ActivationNone ActivationMode = "none"
	// ActivationEmail mails the activation token to the user.
	ActivationEmail ActivationMode = "email"
	// ActivationTest logs the token so test harnesses can pick it up.
	ActivationTest ActivationMode = "test"
)

// activationTokenSize matches the signing key size: the token is a
// high-entropy one-time secret, not derived from any account data.
const activationTokenSize = 64

// Confirmer carries the activation token of one registration and knows
// how to hand it to the user out-of-band.
type Confirmer interface {
	// Token returns the one-time activation token, empty when the
	// account is created already active.
	Token() string
	SendConfirmation(ctx context.Context) error
}

// ConfirmerFactory builds a Confirmer per registration according to the
// configured activation mode.
type ConfirmerFactory struct {
	mode   ActivationMode
	mailer Mailer
	logger Logger
}

// NewConfirmerFactory validates the mode up front; an unknown mode is a
// configuration error and should fail process startup.
func NewConfirmerFactory(mode ActivationMode, mailer Mailer, logger Logger) (*ConfirmerFactory, error) {
	switch mode {
	case ActivationNone, ActivationEmail, ActivationTest:
	default:
		return nil, fmt.Errorf("unknown activation mode %q", mode)
	}
	if mode == ActivationEmail && mailer == nil {
		return nil, fmt.Errorf("activation mode %q requires a mailer", mode)
	}
	if logger == nil {
		logger = defLogger{}
	}

	return &ConfirmerFactory{
		mode:   mode,
		mailer: mailer,
		logger: logger,
	}, nil
}

// New returns the Confirmer for one registration.
func (f *ConfirmerFactory) New(email string) (Confirmer, error) {
	if f.mode == ActivationNone {
		return noneConfirmer{}, nil
	}

	token, err := NewActivationToken()
	if err != nil {
		return nil, fmt.Errorf("generate activation token: %w", err)
	}

	if f.mode == ActivationTest {
		return &testConfirmer{token: token, email: email, logger: f.logger}, nil
	}
	return &emailConfirmer{token: token, email: email, mailer: f.mailer}, nil
}

// NewActivationToken returns a fresh random token, standard base64.
func NewActivationToken() (string, error) {
	raw := make([]byte, activationTokenSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type noneConfirmer struct{}

func (noneConfirmer) Token() string { return "" }

func (noneConfirmer) SendConfirmation(context.Context) error { return nil }

type emailConfirmer struct {
	token  string
	email  string
	mailer Mailer
}

func (c *emailConfirmer) Token() string { return c.token }

func (c *emailConfirmer) SendConfirmation(ctx context.Context) error {
	body := fmt.Sprintf("Insert this registration token in the next login: %s", c.token)
	return c.mailer.Send(ctx, c.email, "Confirm Registration", body)
}

type testConfirmer struct {
	token  string
	email  string
	logger Logger
}

func (c *testConfirmer) Token() string { return c.token }

func (c *testConfirmer) SendConfirmation(context.Context) error {
	c.logger.Info("activation token issued", "email", c.email, "token", c.token)
	return nil
}
