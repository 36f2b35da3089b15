package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the documented fallback when the configured TTL is
// missing or below one millisecond.
const DefaultTokenTTL = 8 * time.Hour

// tokenService signs with whatever key the store currently holds, so a
// rotation between issuance and verification invalidates the token.
type tokenService struct {
	keys   KeyStore
	ttl    time.Duration
	logger Logger
}

// NewTokenService returns a TokenService issuing HS512 tokens with the
// given TTL against the key store's current key.
func NewTokenService(keys KeyStore, ttl time.Duration, logger Logger) TokenService {
	if ttl < time.Millisecond {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &tokenService{
		keys:   keys,
		ttl:    ttl,
		logger: logger,
	}
}

// Generate issues a token for the user: sub is the email, the permissions
// claim is the account's permission list copied verbatim.
func (ts *tokenService) Generate(user *User) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		// never nil: the claim must be present even when empty
		Grants: append(make([]string, 0, len(user.Permissions)), user.Permissions...),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signed, err := token.SignedString(ts.keys.Current())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate fails closed: any structural, signature, expiry, or claim
// defect collapses to ErrTokenInvalid. Callers treat the single outcome
// as "not authenticated" and never branch on the reason.
func (ts *tokenService) Validate(raw string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.keys.Current(), nil
	})
	if err != nil {
		ts.logger.Debug("token rejected", "error", err)
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if strings.TrimSpace(claims.Subject()) == "" {
		ts.logger.Debug("token rejected", "error", "blank subject")
		return nil, ErrTokenInvalid
	}

	// the permissions claim must exist and be a list; a non-list or a
	// list with non-string entries already failed unmarshaling above
	if claims.Grants == nil {
		ts.logger.Debug("token rejected", "error", "missing permissions claim")
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
