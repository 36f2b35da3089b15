package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/twoauth/twoauth/auth"
	"github.com/twoauth/twoauth/auth/jwtware"
)

// Server is the token-issuing backend: registration, login, and the
// protected /users resource behind the bearer-token filter.
type Server struct {
	cfg    Config
	app    *fiber.App
	db     *bun.DB
	keys   *auth.InMemoryKeyStore
	logger auth.Logger
}

// New wires the backend. The signing-key rotation task starts in Start,
// not here, so tests can exercise the app without background work.
func New(cfg Config, logger auth.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	if logger == nil {
		logger = noopLoggerFallback{}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		return nil, fmt.Errorf("create users table: %w", err)
	}

	keys := auth.NewInMemoryKeyStore(cfg.KeyRotationPeriod, logger)
	tokens := auth.NewTokenService(keys, cfg.TokenTTL, logger)
	repo := auth.NewUsersRepository(db, logger)

	var mailer auth.Mailer = auth.LogMailer{Logger: logger}
	if cfg.SMTPAddr != "" {
		mailer = auth.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}

	confirmers, err := auth.NewConfirmerFactory(auth.ActivationMode(cfg.ActivationMode), mailer, logger)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}

	controller := &Controller{
		Registration: auth.NewRegistrationService(repo, confirmers, logger),
		Login:        auth.NewLoginService(repo, tokens, logger),
		Users:        repo,
		Logger:       logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "twoauth-backend",
	})

	app.Use(tagRequests(logger))
	app.Use(jwtware.New(jwtware.Config{
		Validator: tokens,
		Filter:    isUnauthenticatedEntryPoint,
	}))

	app.Post("/registration", controller.HandleRegistration)
	app.Post("/login", controller.HandleLogin)

	users := app.Group("/users", jwtware.RequireAuthenticated(""))
	users.Get("/:email", controller.GetUser)
	users.Put("/", controller.UpdateUser)
	users.Delete("/:email", controller.DeleteUser)

	return &Server{
		cfg:    cfg,
		app:    app,
		db:     db,
		keys:   keys,
		logger: logger,
	}, nil
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins key rotation and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.keys.Start(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errc:
		return err
	}
}

// Shutdown stops the server and closes the store.
func (s *Server) Shutdown() error {
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	return s.db.Close()
}

// tagRequests gives every request an id, echoed in the response and
// logged on completion so backend and gateway lines correlate.
func tagRequests(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
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

// isUnauthenticatedEntryPoint excludes the two public endpoints from the
// token filter by exact path match.
func isUnauthenticatedEntryPoint(c *fiber.Ctx) bool {
	path := c.Path()
	return path == "/login" || path == "/registration"
}

type noopLoggerFallback struct{}

func (noopLoggerFallback) Debug(string, ...any) {}
func (noopLoggerFallback) Info(string, ...any)  {}
func (noopLoggerFallback) Warn(string, ...any)  {}
func (noopLoggerFallback) Error(string, ...any) {}
