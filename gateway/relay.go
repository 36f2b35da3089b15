package gateway

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	localsPrincipalKey       = "gateway_principal"
	localsSessionKey         = "gateway_session"
	localsSessionFinishedKey = "gateway_session_finished"
)

// session returns the one session object for this request. The store
// hands out a new object per Get, and a cookieless request would get a
// different session each time, so the first lookup is cached in locals.
func (g *Gateway) session(c *fiber.Ctx) (*session.Session, error) {
	if sess, ok := c.Locals(localsSessionKey).(*session.Session); ok {
		return sess, nil
	}
	sess, err := g.store.Get(c)
	if err != nil {
		return nil, err
	}
	c.Locals(localsSessionKey, sess)
	return sess, nil
}

// finishSession marks the request's session as done with: it has been
// saved or destroyed and must not be touched again.
func finishSession(c *fiber.Ctx) {
	c.Locals(localsSessionFinishedKey, true)
}

// saveSessions persists the request's session once every handler is
// done with it. fiber releases a Session back to its pool on Save, so
// the save has to be the last touch of the request; handlers that end
// the lifecycle themselves (login's save, logout's destroy) mark the
// session finished and are skipped here.
func (g *Gateway) saveSessions(c *fiber.Ctx) error {
	err := c.Next()

	sess, ok := c.Locals(localsSessionKey).(*session.Session)
	if !ok || c.Locals(localsSessionFinishedKey) != nil {
		return err
	}
	if saveErr := sess.Save(); saveErr != nil {
		g.logger.Error("session save failed", "error", saveErr)
	}
	return err
}

// requirePrincipal guards the relay: no session-bound principal means a
// bare 401, no detail.
func (g *Gateway) requirePrincipal(c *fiber.Ctx) error {
	sess, err := g.session(c)
	if err != nil {
		return unauthorized(c)
	}
	principal, ok := sess.Get(principalSessionKey).(Principal)
	if !ok {
		return unauthorized(c)
	}
	c.Locals(localsPrincipalKey, principal)
	return c.Next()
}

// HandleRelay proxies the authenticated request to the backend with the
// stored token substituted for the session cookie. A 401 coming back
// means the token aged out of the key window: the whole client-side
// security context is torn down before the response is written.
func (g *Gateway) HandleRelay(c *fiber.Ctx) error {
	principal, ok := c.Locals(localsPrincipalKey).(Principal)
	if !ok {
		return unauthorized(c)
	}

	c.Request().Header.Del(fiber.HeaderCookie)
	c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+principal.Token)

	if err := proxy.Do(c, g.cfg.BackendURL+c.OriginalURL()); err != nil {
		g.logger.Error("relay failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusBadGateway).Send(nil)
	}
	c.Response().Header.Del(fiber.HeaderServer)

	if c.Response().StatusCode() == fiber.StatusUnauthorized {
		g.logger.Info("backend rejected token, ending session", "subject", principal.Subject)
		if sess, err := g.session(c); err == nil {
			g.teardown(c, sess, &principal)
		}
		c.Response().ResetBody()
		c.Status(fiber.StatusUnauthorized)
	}
	return nil
}

// teardown unwinds one session: registry slot, server-side session
// state, CSRF cookie, and a Clear-Site-Data hint for the browser.
func (g *Gateway) teardown(c *fiber.Ctx, sess *session.Session, principal *Principal) {
	g.registry.Remove(principal.Subject, sess.ID())
	if err := sess.Destroy(); err != nil {
		g.logger.Error("session destroy failed", "error", err)
	}
	// a destroyed session must never be saved back into the store
	finishSession(c)
	clearCSRFCookie(c, g.cfg.TLSEnabled)
	c.Set("Clear-Site-Data", `"*"`)
}

// unauthorized writes a 401 with no body. SendStatus would fill in the
// status text, and these responses must stay empty.
func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).Send(nil)
}

func okEmpty(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).Send(nil)
}
