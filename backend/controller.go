package backend

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/twoauth/twoauth/auth"
)

// Controller maps the HTTP boundary onto the auth services. Error policy:
// validation problems become 400 with a safe reason, every authentication
// failure is a bare 401, persistence surprises are a generic 500. Domain
// "not found / not updated / not deleted" outcomes map to 400 like the
// rest of the client errors.
type Controller struct {
	Registration *auth.RegistrationService
	Login        *auth.LoginService
	Users        auth.Users
	Logger       auth.Logger
}

// errorBody is the envelope the gateway unwraps for 400 responses.
type errorBody struct {
	Error     string    `json:"error"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type jwtResponse struct {
	JWT string `json:"jwt"`
}

// HandleRegistration serves POST /registration.
func (ctrl *Controller) HandleRegistration(c *fiber.Ctx) error {
	req := &auth.RegistrationRequest{}
	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "Invalid request body.")
	}
	defer req.EraseCredentials()

	if err := auth.ValidateRegistration(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := ctrl.Registration.Register(c.UserContext(), req); err != nil {
		return badRequest(c, "User not registered.")
	}

	return c.Status(fiber.StatusOK).Send(nil)
}

// HandleLogin serves POST /login.
func (ctrl *Controller) HandleLogin(c *fiber.Ctx) error {
	req := &auth.AuthRequest{}
	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "Invalid request body.")
	}
	defer req.EraseCredentials()

	if err := auth.ValidateAuthRequest(req); err != nil {
		return badRequest(c, err.Error())
	}

	token, err := ctrl.Login.Login(c.UserContext(), req)
	switch {
	case err == nil:
		return c.JSON(jwtResponse{JWT: token})
	case errors.Is(err, auth.ErrActivationNotNeeded):
		return badRequest(c, "Activation Token is not necessary.")
	case errors.Is(err, auth.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).Send(nil)
	default:
		ctrl.Logger.Error("login failed unexpectedly", "error", err)
		return internalError(c)
	}
}

// GetUser serves GET /users/:email.
func (ctrl *Controller) GetUser(c *fiber.Ctx) error {
	email := c.Params("email")
	if err := auth.ValidateEmail(email); err != nil {
		return badRequest(c, "Email "+err.Error()+".")
	}

	user, err := ctrl.Users.GetByEmail(c.UserContext(), email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return badRequest(c, "User not found.")
		}
		ctrl.Logger.Error("user lookup failed", "error", err)
		return internalError(c)
	}

	return c.JSON(user.SecureDTO())
}

// UpdateUser serves PUT /users. The write is an optimistic-lock update:
// a stale LastUpdate loses and the client must re-read.
func (ctrl *Controller) UpdateUser(c *fiber.Ctx) error {
	user := &auth.SecureUser{}
	if err := c.BodyParser(user); err != nil {
		return badRequest(c, "Invalid request body.")
	}

	if err := auth.ValidateSecureUser(user); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := ctrl.Users.UpdateProfile(c.UserContext(), user)
	if err != nil {
		ctrl.Logger.Error("profile update failed", "error", err)
		return internalError(c)
	}
	if !updated {
		return badRequest(c, "User not updated.")
	}

	return c.Status(fiber.StatusOK).Send(nil)
}

// DeleteUser serves DELETE /users/:email.
func (ctrl *Controller) DeleteUser(c *fiber.Ctx) error {
	email := c.Params("email")
	if err := auth.ValidateEmail(email); err != nil {
		return badRequest(c, "Email "+err.Error()+".")
	}

	deleted, err := ctrl.Users.Delete(c.UserContext(), email)
	if err != nil {
		ctrl.Logger.Error("user delete failed", "error", err)
		return internalError(c)
	}
	if !deleted {
		return badRequest(c, "User not deleted.")
	}

	return c.Status(fiber.StatusOK).Send(nil)
}

func badRequest(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorBody{
		Error:     reason,
		Status:    fiber.StatusBadRequest,
		Timestamp: time.Now(),
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{
		Error:     "Something went wrong.",
		Status:    fiber.StatusInternalServerError,
		Timestamp: time.Now(),
	})
}
