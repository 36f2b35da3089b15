package gateway

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// CSRFCookieName carries the masked token to the client.
	CSRFCookieName = "XSRF-TOKEN"
	// CSRFHeaderName is where clients echo the token back.
	CSRFHeaderName = "X-XSRF-TOKEN"
	// CSRFFormFieldName is the form fallback for server-rendered posts.
	CSRFFormFieldName = "_csrf"

	csrfSessionKey  = "csrf_token"
	csrfTokenLength = 32
)

var (
	ErrCSRFTokenMissing  = errors.New("CSRF token missing")
	ErrCSRFTokenMismatch = errors.New("CSRF token mismatch")
)

type csrfConfig struct {
	// Session yields the request's session; it must hand every caller
	// in one request the same object or the raw token and the principal
	// end up in different sessions.
	Session func(*fiber.Ctx) (*session.Session, error)
	// Exempt skips validation, used for the two unauthenticated entry
	// points. The masked cookie is still refreshed.
	Exempt func(*fiber.Ctx) bool
	// Secure marks the cookie Secure when TLS terminates here.
	Secure bool
}

var csrfSafeMethods = map[string]struct{}{
	fiber.MethodGet:     {},
	fiber.MethodHead:    {},
	fiber.MethodOptions: {},
	fiber.MethodTrace:   {},
}

// newCSRFMiddleware implements the double-submit check: the session holds
// the raw token, the client holds an XOR-masked copy and echoes it in a
// header or form field on every state-changing request. The mask uses a
// fresh random pad per response so the echoed token never repeats, which
// keeps compression oracles from recovering it. A failed check is the
// same bare 401 as any other authentication failure.
func newCSRFMiddleware(cfg csrfConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := cfg.Session(c)
		if err != nil {
			return unauthorized(c)
		}

		raw, err := sessionCSRFToken(sess)
		if err != nil {
			return unauthorized(c)
		}

		_, safe := csrfSafeMethods[c.Method()]
		exempt := cfg.Exempt != nil && cfg.Exempt(c)

		if !safe && !exempt {
			if err := validateCSRF(c, raw); err != nil {
				return unauthorized(c)
			}
		}

		masked, err := maskCSRFToken(raw)
		if err != nil {
			return unauthorized(c)
		}
		setCSRFCookie(c, masked, cfg.Secure)

		return c.Next()
	}
}

// sessionCSRFToken returns the session's raw token, minting one on first
// use. The mint only writes to the in-memory session; persisting is left
// to the end-of-request save, because a fiber session must not be
// touched again once Save has released it.
func sessionCSRFToken(sess *session.Session) ([]byte, error) {
	if encoded, ok := sess.Get(csrfSessionKey).(string); ok && encoded != "" {
		raw, err := base64.RawURLEncoding.DecodeString(encoded)
		if err == nil && len(raw) == csrfTokenLength {
			return raw, nil
		}
	}

	raw := make([]byte, csrfTokenLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, err
	}

	sess.Set(csrfSessionKey, base64.RawURLEncoding.EncodeToString(raw))
	return raw, nil
}

func validateCSRF(c *fiber.Ctx, raw []byte) error {
	received := c.Get(CSRFHeaderName)
	if received == "" {
		received = c.FormValue(CSRFFormFieldName)
	}
	if received == "" {
		return ErrCSRFTokenMissing
	}

	unmasked := unmaskCSRFToken(received)
	if unmasked == nil {
		return ErrCSRFTokenMismatch
	}

	if subtle.ConstantTimeCompare(unmasked, raw) != 1 {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// maskCSRFToken returns base64url(pad || pad XOR raw) with a fresh pad.
func maskCSRFToken(raw []byte) (string, error) {
	pad := make([]byte, len(raw))
	if _, err := io.ReadFull(rand.Reader, pad); err != nil {
		return "", err
	}

	out := make([]byte, 2*len(raw))
	copy(out, pad)
	for i, b := range raw {
		out[len(raw)+i] = pad[i] ^ b
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// unmaskCSRFToken reverses maskCSRFToken; nil means the value was not a
// well-formed masked token.
func unmaskCSRFToken(masked string) []byte {
	decoded, err := base64.RawURLEncoding.DecodeString(masked)
	if err != nil || len(decoded) == 0 || len(decoded)%2 != 0 {
		return nil
	}

	half := len(decoded) / 2
	raw := make([]byte, half)
	for i := 0; i < half; i++ {
		raw[i] = decoded[i] ^ decoded[half+i]
	}
	return raw
}

func setCSRFCookie(c *fiber.Ctx, masked string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CSRFCookieName,
		Value:    masked,
		Path:     "/",
		Secure:   secure,
		HTTPOnly: false, // the client script must read it to echo it
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearCSRFCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		Secure:   secure,
		HTTPOnly: false,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}
