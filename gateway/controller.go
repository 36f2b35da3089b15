package gateway

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

const principalSessionKey = "principal"

// backendClient forwards the two unauthenticated entry points to the
// backend over its JSON API.
type backendClient struct {
	base string
}

func (b *backendClient) post(path string, body []byte) (int, []byte, error) {
	agent := fiber.Post(b.base + path)
	agent.ContentType(fiber.MIMEApplicationJSON)
	agent.Body(body)

	code, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, errs[0]
	}
	return code, respBody, nil
}

// backendError is the backend's 400 envelope; only the reason is relayed.
type backendError struct {
	Error string `json:"error"`
}

// HandleRegistration forwards POST /registration. The gateway never
// inspects the credentials; a backend 400 reason is safe to relay, any
// other failure is a bare 401.
func (g *Gateway) HandleRegistration(c *fiber.Ctx) error {
	code, body, err := g.backend.post("/registration", c.Body())
	if err != nil {
		g.logger.Error("registration forward failed", "error", err)
		return unauthorized(c)
	}

	switch code {
	case fiber.StatusOK:
		return okEmpty(c)
	case fiber.StatusBadRequest:
		return relayBadRequest(c, body)
	default:
		return unauthorized(c)
	}
}

// HandleLogin forwards POST /login and, on success, wraps the issued
// token in a session-bound principal. Only the opaque session cookie
// goes back to the browser; the token itself never does.
func (g *Gateway) HandleLogin(c *fiber.Ctx) error {
	code, body, err := g.backend.post("/login", c.Body())
	if err != nil {
		g.logger.Error("login forward failed", "error", err)
		return unauthorized(c)
	}

	switch code {
	case fiber.StatusOK:
	case fiber.StatusBadRequest:
		return relayBadRequest(c, body)
	default:
		return unauthorized(c)
	}

	var resp struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		g.logger.Error("invalid jwt response from backend", "error", err)
		return unauthorized(c)
	}

	principal, err := NewPrincipal(resp.JWT)
	if err != nil {
		g.logger.Error("invalid jwt response from backend", "error", err)
		return unauthorized(c)
	}

	sess, err := g.session(c)
	if err != nil {
		return unauthorized(c)
	}

	// a re-login inside an existing session gives up its old slot first
	if old, ok := sess.Get(principalSessionKey).(Principal); ok {
		g.registry.Remove(old.Subject, sess.ID())
	}

	// privilege change: never keep the pre-login session id
	if err := sess.Regenerate(); err != nil {
		return unauthorized(c)
	}

	// refuse the login past the cap; never evict a live session, but do
	// reclaim slots whose sessions idled out of the store
	if !g.registry.TryAdd(principal.Subject, sess.ID()) {
		g.pruneExpiredSessions(principal.Subject)
		if !g.registry.TryAdd(principal.Subject, sess.ID()) {
			g.logger.Warn("login refused, session cap reached", "subject", principal.Subject)
			if err := sess.Destroy(); err != nil {
				g.logger.Error("session destroy failed", "error", err)
			}
			finishSession(c)
			return unauthorized(c)
		}
	}

	sess.Set(principalSessionKey, *principal)

	// Save releases the session object, so grab the id first and make
	// sure nothing downstream saves it again.
	id := sess.ID()
	finishSession(c)
	if err := sess.Save(); err != nil {
		g.registry.Remove(principal.Subject, id)
		g.logger.Error("session save failed", "error", err)
		return unauthorized(c)
	}

	return okEmpty(c)
}

// pruneExpiredSessions drops registry slots whose sessions are gone from
// the store. The store expires idle sessions on its own and tells no
// one, so without this an account whose sessions all idled out would be
// locked out until restart.
func (g *Gateway) pruneExpiredSessions(subject string) {
	for _, id := range g.registry.Sessions(subject) {
		raw, err := g.store.Storage.Get(id)
		if err != nil || raw != nil {
			continue
		}
		g.registry.Remove(subject, id)
	}
}

// HandleLogout ends the current session only.
func (g *Gateway) HandleLogout(c *fiber.Ctx) error {
	sess, err := g.session(c)
	if err != nil {
		return unauthorized(c)
	}
	principal, ok := sess.Get(principalSessionKey).(Principal)
	if !ok {
		return unauthorized(c)
	}

	g.teardown(c, sess, &principal)
	return okEmpty(c)
}

// HandleCompleteLogout invalidates every session of the authenticated
// principal, not just the current one.
func (g *Gateway) HandleCompleteLogout(c *fiber.Ctx) error {
	sess, err := g.session(c)
	if err != nil {
		return unauthorized(c)
	}
	principal, ok := sess.Get(principalSessionKey).(Principal)
	if !ok {
		return unauthorized(c)
	}

	current := sess.ID()
	for _, id := range g.registry.RemoveAll(principal.Subject) {
		if id == current {
			continue
		}
		if err := g.store.Storage.Delete(id); err != nil {
			g.logger.Error("session purge failed", "session", id, "error", err)
		}
	}

	g.teardown(c, sess, &principal)
	return okEmpty(c)
}

func relayBadRequest(c *fiber.Ctx, body []byte) error {
	var envelope backendError
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == "" {
		return unauthorized(c)
	}
	return c.Status(fiber.StatusBadRequest).SendString(envelope.Error)
}
