package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twoauth/twoauth/auth"
)

var testSigningKey = []byte(strings.Repeat("k", 64))

func testUser() *auth.User {
	return &auth.User{
		Email:       "jane.doe@example.com",
		Permissions: []string{"profile", "admin"},
		IsActive:    true,
	}
}

func TestTokenService_Generate(t *testing.T) {
	keys := &stubKeys{key: testSigningKey}
	service := auth.NewTokenService(keys, time.Hour, nil)

	t.Run("round trip preserves subject and permissions", func(t *testing.T) {
		token, err := service.Generate(testUser())
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", claims.Subject())
		assert.Equal(t, []string{"profile", "admin"}, claims.Permissions())
		assert.True(t, claims.HasPermission("admin"))
		assert.False(t, claims.HasPermission("root"))
	})

	t.Run("expiry is issuance plus the configured ttl", func(t *testing.T) {
		token, err := service.Generate(testUser())
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.WithinDuration(t, claims.IssuedAt().Add(time.Hour), claims.Expires(), time.Second)
	})

	t.Run("signs with HS512", func(t *testing.T) {
		token, err := service.Generate(testUser())
		require.NoError(t, err)

		parsed, _, err := jwt.NewParser().ParseUnverified(token, &jwt.RegisteredClaims{})
		require.NoError(t, err)
		assert.Equal(t, "HS512", parsed.Header["alg"])
	})
}

func TestTokenService_Validate(t *testing.T) {
	keys := &stubKeys{key: testSigningKey}
	service := auth.NewTokenService(keys, time.Hour, nil)

	t.Run("rejects garbage", func(t *testing.T) {
		for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
			_, err := service.Validate(raw)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid, "raw=%q", raw)
		}
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		token, err := service.Generate(testUser())
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "xx." + parts[2]

		_, err = service.Validate(tampered)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		short := auth.NewTokenService(keys, time.Millisecond, nil)
		token, err := short.Generate(testUser())
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)

		_, err = short.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rejects a token signed with a rotated-out key", func(t *testing.T) {
		rotating := &stubKeys{key: append([]byte(nil), testSigningKey...)}
		svc := auth.NewTokenService(rotating, time.Hour, nil)

		token, err := svc.Generate(testUser())
		require.NoError(t, err)

		rotating.key = []byte(strings.Repeat("n", 64))

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rejects the none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "jane.doe@example.com",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rejects a blank subject", func(t *testing.T) {
		token, err := service.Generate(&auth.User{Email: "  ", Permissions: []string{"profile"}})
		require.NoError(t, err)

		_, err = service.Validate(token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("rejects a missing permissions claim", func(t *testing.T) {
		bare := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
			Subject:   "jane.doe@example.com",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		raw, err := bare.SignedString(testSigningKey)
		require.NoError(t, err)

		_, err = service.Validate(raw)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("accepts an empty but present permissions list", func(t *testing.T) {
		token, err := service.Generate(&auth.User{Email: "jane.doe@example.com", Permissions: []string{}})
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.Empty(t, claims.Permissions())
	})
}
