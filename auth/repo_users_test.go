package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/twoauth/twoauth/auth"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().
		Model((*auth.User)(nil)).
		Exec(context.Background())
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, repo auth.Users, email, activationToken string) *auth.User {
	t.Helper()

	now := time.Now()
	user := &auth.User{
		Email:           email,
		PasswordHash:    "$2a$10$fakefakefakefakefakefake",
		FirstName:       "Jane",
		LastName:        "Doe",
		Creation:        now,
		LastUpdate:      now,
		Permissions:     []string{"profile"},
		IsActive:        activationToken == "",
		ActivationToken: activationToken,
	}
	require.NoError(t, repo.Register(context.Background(), user))

	// read back so the CAS stamps match what the database stored
	stored, err := repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return stored
}

func TestUsersRepository_Register(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t), nil)
	ctx := context.Background()

	t.Run("round trips the record", func(t *testing.T) {
		seedUser(t, repo, "jane.doe@example.com", "")

		user, err := repo.GetByEmail(ctx, "jane.doe@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Jane", user.FirstName)
		assert.Equal(t, []string{"profile"}, user.Permissions)
		assert.True(t, user.IsActive)
		assert.Empty(t, user.ActivationToken)
	})

	t.Run("rejects a duplicate email", func(t *testing.T) {
		user := seedUser(t, repo, "dup@example.com", "")

		err := repo.Register(ctx, user)
		assert.ErrorIs(t, err, auth.ErrUserNotSaved)
	})

	t.Run("unknown email is ErrUserNotFound", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestUsersRepository_EnableAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("activates an inactive account exactly once", func(t *testing.T) {
		repo := auth.NewUsersRepository(newTestDB(t), nil)
		user := seedUser(t, repo, "jane.doe@example.com", "tok-1")

		enabled, err := repo.EnableAccount(ctx, user)
		require.NoError(t, err)
		assert.True(t, enabled)

		stored, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
		assert.Empty(t, stored.ActivationToken)
		assert.True(t, stored.LastUpdate.After(user.LastUpdate))

		// the stamps the first caller read are stale now
		enabled, err = repo.EnableAccount(ctx, user)
		require.NoError(t, err)
		assert.False(t, enabled)
	})

	t.Run("wrong token never mutates the row", func(t *testing.T) {
		repo := auth.NewUsersRepository(newTestDB(t), nil)
		user := seedUser(t, repo, "jane.doe@example.com", "tok-1")

		stale := *user
		stale.ActivationToken = "tok-wrong"

		enabled, err := repo.EnableAccount(ctx, &stale)
		require.NoError(t, err)
		assert.False(t, enabled)

		stored, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)
		assert.Equal(t, "tok-1", stored.ActivationToken)
	})

	t.Run("concurrent activations produce a single winner", func(t *testing.T) {
		repo := auth.NewUsersRepository(newTestDB(t), nil)
		user := seedUser(t, repo, "jane.doe@example.com", "tok-1")

		var wg sync.WaitGroup
		wins := make(chan bool, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u := *user
				enabled, err := repo.EnableAccount(ctx, &u)
				assert.NoError(t, err)
				wins <- enabled
			}()
		}
		wg.Wait()
		close(wins)

		winners := 0
		for won := range wins {
			if won {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestUsersRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("applies name changes when the stamp matches", func(t *testing.T) {
		repo := auth.NewUsersRepository(newTestDB(t), nil)
		user := seedUser(t, repo, "jane.doe@example.com", "")

		dto := user.SecureDTO()
		dto.FirstName = "Janet"
		dto.LastName = "Smith"

		updated, err := repo.UpdateProfile(ctx, dto)
		require.NoError(t, err)
		assert.True(t, updated)

		stored, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, "Janet", stored.FirstName)
		assert.Equal(t, "Smith", stored.LastName)
	})

	t.Run("a stale stamp loses", func(t *testing.T) {
		repo := auth.NewUsersRepository(newTestDB(t), nil)
		user := seedUser(t, repo, "jane.doe@example.com", "")

		first := user.SecureDTO()
		first.FirstName = "Janet"
		updated, err := repo.UpdateProfile(ctx, first)
		require.NoError(t, err)
		require.True(t, updated)

		second := user.SecureDTO()
		second.FirstName = "Joan"
		updated, err = repo.UpdateProfile(ctx, second)
		require.NoError(t, err)
		assert.False(t, updated)

		stored, err := repo.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, "Janet", stored.FirstName)
	})
}

func TestUsersRepository_Delete(t *testing.T) {
	repo := auth.NewUsersRepository(newTestDB(t), nil)
	ctx := context.Background()

	seedUser(t, repo, "jane.doe@example.com", "")

	deleted, err := repo.Delete(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetByEmail(ctx, "jane.doe@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	deleted, err = repo.Delete(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.False(t, deleted)
}
