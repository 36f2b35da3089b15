// Package jwtware is the inbound bearer-token filter: it turns a valid
// Authorization header into request identity and otherwise leaves the
// request anonymous. Access control is someone else's job.
package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/twoauth/twoauth/auth"
)

// DefaultContextKey is where verified claims land in the request locals.
const DefaultContextKey = "identity"

// minAuthHeaderLen is a cheap plausibility gate: "Bearer " plus the
// shortest header.payload.signature an HS512 token can have. Anything
// shorter is not worth parsing.
const minAuthHeaderLen = 83

const authScheme = "Bearer "

// Config configures the filter.
type Config struct {
	// Validator verifies raw tokens. Required.
	Validator auth.TokenValidator

	// ContextKey is the locals key for verified claims. Defaults to
	// DefaultContextKey.
	ContextKey string

	// Filter skips the middleware entirely when it returns true, used
	// for the unauthenticated entry points.
	Filter func(*fiber.Ctx) bool
}

// New returns the filter middleware. It never rejects a request itself:
// a missing, malformed, expired, or forged token leaves the request
// unauthenticated and the downstream authorization layer decides whether
// that is acceptable for the route.
func New(cfg Config) fiber.Handler {
	if cfg.Validator == nil {
		panic("jwtware: Validator is required")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw := rawTokenFromHeader(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := cfg.Validator.Validate(raw)
		if err != nil {
			// don't trust the token, proceed anonymous
			return c.Next()
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(auth.WithClaimsContext(c.UserContext(), claims))

		return c.Next()
	}
}

// RequireAuthenticated guards routes that need an identity: bare 401, no
// body, when the filter left the request anonymous.
func RequireAuthenticated(contextKey string) fiber.Handler {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}
	return func(c *fiber.Ctx) error {
		if _, ok := ClaimsFromCtx(c, contextKey); !ok {
			// no body: the 401 carries no reason
			return c.Status(fiber.StatusUnauthorized).Send(nil)
		}
		return c.Next()
	}
}

// ClaimsFromCtx extracts verified claims from the request locals.
func ClaimsFromCtx(c *fiber.Ctx, contextKey string) (auth.AuthClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}
	claims, ok := c.Locals(contextKey).(auth.AuthClaims)
	return claims, ok
}

func rawTokenFromHeader(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) < minAuthHeaderLen || !strings.HasPrefix(header, authScheme) {
		return ""
	}
	return header[len(authScheme):]
}
