package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the identity a verified token reconstructs: the subject
// and the permission list frozen at issuance time.
type AuthClaims interface {
	Subject() string
	Permissions() []string
	HasPermission(permission string) bool
	IssuedAt() time.Time
	Expires() time.Time
}

// JWTClaims is the concrete claims payload. Permissions are copied from
// the account at issuance and go stale until the next login.
type JWTClaims struct {
	jwt.RegisteredClaims
	Grants []string `json:"permissions"`
}

var _ AuthClaims = (*JWTClaims)(nil)

func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *JWTClaims) Permissions() []string {
	return c.Grants
}

// HasPermission reports whether the token carries the given permission.
// The claim is semantically a set; order is irrelevant.
func (c *JWTClaims) HasPermission(permission string) bool {
	for _, p := range c.Grants {
		if p == permission {
			return true
		}
	}
	return false
}

func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
