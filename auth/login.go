package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// LoginService is the service-side authentication entry point: credential
// check, activation gating, token issuance. The only side effect is the
// activation CAS write; no token is issued unless every gate passes.
type LoginService struct {
	repo   Users
	tokens TokenService
	logger Logger
}

func NewLoginService(repo Users, tokens TokenService, logger Logger) *LoginService {
	if logger == nil {
		logger = defLogger{}
	}
	return &LoginService{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Login walks the request through credential verification, the activation
// gate, and issuance. Every authentication failure returns
// ErrUnauthorized with no distinguishing detail; the plaintext password
// is erased on all paths.
func (s *LoginService) Login(ctx context.Context, req *AuthRequest) (string, error) {
	defer req.EraseCredentials()

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("login account lookup failed", "error", err)
		}
		return "", ErrUnauthorized
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return "", ErrUnauthorized
	}

	if user.IsActive {
		// an active account never needs an activation token; supplying
		// one is a client error, not something to ignore silently
		if req.ActivationToken != "" {
			return "", ErrActivationNotNeeded
		}
	} else if !s.tryActivation(ctx, req, user) {
		return "", ErrUnauthorized
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		s.logger.Error("token issuance failed", "error", err)
		return "", err
	}

	return token, nil
}

// tryActivation compares the supplied token byte-for-byte against the
// stored one and, on match, runs the compare-and-swap enable. Under two
// concurrent logins exactly one CAS wins; the loser fails like any bad
// credential.
func (s *LoginService) tryActivation(ctx context.Context, req *AuthRequest, user *User) bool {
	if req.ActivationToken == "" {
		s.logger.Warn("inactive account attempted login without an activation token", "email", user.Email)
		return false
	}

	if subtle.ConstantTimeCompare([]byte(req.ActivationToken), []byte(user.ActivationToken)) != 1 {
		s.logger.Warn("inactive account attempted login with an invalid activation token", "email", user.Email)
		return false
	}

	enabled, err := s.repo.EnableAccount(ctx, user)
	if err != nil {
		s.logger.Error("account activation write failed", "email", user.Email, "error", err)
		return false
	}
	return enabled
}
