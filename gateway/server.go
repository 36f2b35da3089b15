package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"

	"github.com/twoauth/twoauth/auth"
)

const sessionIdleTimeout = 30 * time.Minute

// Gateway is the edge in front of the backend: it owns the bearer tokens
// on behalf of browsers and exposes only an opaque session cookie.
type Gateway struct {
	cfg      Config
	app      *fiber.App
	store    *session.Store
	registry *SessionRegistry
	backend  *backendClient
	logger   auth.Logger
}

// New wires the gateway around an in-memory session store and registry.
func New(cfg Config, logger auth.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}
	if logger == nil {
		logger = noopLoggerFallback{}
	}

	store := session.New(session.Config{
		KeyLookup:      "cookie:" + cfg.CookieName(),
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.TLSEnabled,
		CookieSameSite: fiber.CookieSameSiteStrictMode,
		Expiration:     sessionIdleTimeout,
	})

	g := &Gateway{
		cfg:      cfg,
		store:    store,
		registry: NewSessionRegistry(cfg.MaxSessions),
		backend:  &backendClient{base: strings.TrimRight(cfg.BackendURL, "/")},
		logger:   logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "twoauth-gateway",
	})

	app.Use(tagRequests(logger))
	app.Use(helmet.New(helmet.Config{
		HSTSMaxAge:     hstsMaxAge(cfg.TLSEnabled),
		ReferrerPolicy: "no-referrer",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: strings.Join(cfg.AllowedMethods, ","),
	}))
	// must wrap every session user: the one Save per request happens on
	// the way out, after the CSRF middleware and the handlers
	app.Use(g.saveSessions)
	app.Use(newCSRFMiddleware(csrfConfig{
		Session: g.session,
		Exempt:  isUnauthenticatedEntryPoint,
		Secure:  cfg.TLSEnabled,
	}))

	app.Post("/login", g.HandleLogin)
	app.Post("/registration", g.HandleRegistration)
	app.Post("/logout", g.requirePrincipal, g.HandleLogout)
	app.Post("/complete-logout", g.requirePrincipal, g.HandleCompleteLogout)
	app.All("/*", g.requirePrincipal, g.HandleRelay)

	g.app = app
	return g, nil
}

// App exposes the fiber app for tests.
func (g *Gateway) App() *fiber.App {
	return g.app
}

// Start serves until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- g.app.Listen(g.cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		return g.app.Shutdown()
	case err := <-errc:
		return err
	}
}

// tagRequests gives every request an id. The relay forwards it, so a
// backend log line and the gateway line that caused it share the id.
func tagRequests(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
			c.Request().Header.Set(fiber.HeaderXRequestID, id)
		}
		c.Set(fiber.HeaderXRequestID, id)

		err := c.Next()

		logger.Debug("request completed",
			"id", id,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode())
		return err
	}
}

// isUnauthenticatedEntryPoint exempts the two public endpoints from CSRF
// validation; before a session exists there is no token to echo.
func isUnauthenticatedEntryPoint(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodPost {
		return false
	}
	path := c.Path()
	return path == "/login" || path == "/registration"
}

func hstsMaxAge(tls bool) int {
	if !tls {
		return 0
	}
	return 63072000 // two years
}

type noopLoggerFallback struct{}

func (noopLoggerFallback) Debug(string, ...any) {}
func (noopLoggerFallback) Info(string, ...any)  {}
func (noopLoggerFallback) Warn(string, ...any)  {}
func (noopLoggerFallback) Error(string, ...any) {}
