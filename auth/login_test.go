package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/twoauth/twoauth/auth"
)

const testPassword = "Correct-Horse-7"

func activeUser(t *testing.T) *auth.User {
	t.Helper()

	raw, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	hash := string(raw)

	return &auth.User{
		Email:        "jane.doe@example.com",
		PasswordHash: hash,
		Permissions:  []string{"profile"},
		IsActive:     true,
		LastUpdate:   time.Now(),
	}
}

func inactiveUser(t *testing.T, activationToken string) *auth.User {
	user := activeUser(t)
	user.IsActive = false
	user.ActivationToken = activationToken
	return user
}

func TestLoginService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("active account with valid credentials gets a token", func(t *testing.T) {
		repo := &MockUsers{}
		tokens := &MockTokenService{}
		user := activeUser(t)

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		tokens.On("Generate", user).Return("signed-token", nil)

		service := auth.NewLoginService(repo, tokens, nil)
		token, err := service.Login(ctx, &auth.AuthRequest{Email: user.Email, Password: testPassword})

		require.NoError(t, err)
		assert.Equal(t, "signed-token", token)
		repo.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("unknown account fails like a bad password", func(t *testing.T) {
		repo := &MockUsers{}
		repo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrUserNotFound)

		service := auth.NewLoginService(repo, &MockTokenService{}, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{Email: "nobody@example.com", Password: testPassword})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		repo := &MockUsers{}
		user := activeUser(t)
		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

		service := auth.NewLoginService(repo, &MockTokenService{}, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{Email: user.Email, Password: "wrong-password"})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("active account supplying an activation token is a client error", func(t *testing.T) {
		repo := &MockUsers{}
		user := activeUser(t)
		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

		service := auth.NewLoginService(repo, &MockTokenService{}, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{
			Email:           user.Email,
			Password:        testPassword,
			ActivationToken: "tok-1",
		})

		assert.ErrorIs(t, err, auth.ErrActivationNotNeeded)
	})

	t.Run("inactive account with the right token activates and logs in", func(t *testing.T) {
		repo := &MockUsers{}
		tokens := &MockTokenService{}
		user := inactiveUser(t, "tok-1")

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		repo.On("EnableAccount", ctx, user).Return(true, nil)
		tokens.On("Generate", user).Return("signed-token", nil)

		service := auth.NewLoginService(repo, tokens, nil)
		token, err := service.Login(ctx, &auth.AuthRequest{
			Email:           user.Email,
			Password:        testPassword,
			ActivationToken: "tok-1",
		})

		require.NoError(t, err)
		assert.Equal(t, "signed-token", token)
		repo.AssertExpectations(t)
	})

	t.Run("inactive account without a token never reaches the CAS", func(t *testing.T) {
		repo := &MockUsers{}
		user := inactiveUser(t, "tok-1")
		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

		service := auth.NewLoginService(repo, &MockTokenService{}, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{Email: user.Email, Password: testPassword})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		repo.AssertNotCalled(t, "EnableAccount", mock.Anything, mock.Anything)
	})

	t.Run("inactive account with the wrong token never reaches the CAS", func(t *testing.T) {
		repo := &MockUsers{}
		user := inactiveUser(t, "tok-1")
		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)

		service := auth.NewLoginService(repo, &MockTokenService{}, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{
			Email:           user.Email,
			Password:        testPassword,
			ActivationToken: "tok-wrong",
		})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		repo.AssertNotCalled(t, "EnableAccount", mock.Anything, mock.Anything)
	})

	t.Run("losing the activation race is unauthorized, no token issued", func(t *testing.T) {
		repo := &MockUsers{}
		tokens := &MockTokenService{}
		user := inactiveUser(t, "tok-1")

		repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
		repo.On("EnableAccount", ctx, user).Return(false, nil)

		service := auth.NewLoginService(repo, tokens, nil)
		_, err := service.Login(ctx, &auth.AuthRequest{
			Email:           user.Email,
			Password:        testPassword,
			ActivationToken: "tok-1",
		})

		assert.ErrorIs(t, err, auth.ErrUnauthorized)
		tokens.AssertNotCalled(t, "Generate", mock.Anything)
	})

	t.Run("the plaintext password is erased on every path", func(t *testing.T) {
		repo := &MockUsers{}
		user := activeUser(t)
		repo.On("GetByEmail", ctx, mock.Anything).Return(user, nil)
		tokens := &MockTokenService{}
		tokens.On("Generate", mock.Anything).Return("signed-token", nil)

		service := auth.NewLoginService(repo, tokens, nil)

		good := &auth.AuthRequest{Email: user.Email, Password: testPassword}
		_, err := service.Login(ctx, good)
		require.NoError(t, err)
		assert.Empty(t, good.Password)

		bad := &auth.AuthRequest{Email: user.Email, Password: "wrong-password"}
		_, err = service.Login(ctx, bad)
		require.Error(t, err)
		assert.Empty(t, bad.Password)
	})
}
