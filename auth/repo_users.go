package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Users is the account repository contract. The document store is the
// system of record; consistency for activation and profile updates is
// achieved entirely through conditional writes, never locks.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) error

	// EnableAccount is the activation compare-and-swap: the write
	// succeeds only if the stored row is still inactive, still carries
	// the same activation token, and has the same last-update stamp the
	// caller read. A false return with nil error is a lost race, not a
	// system failure.
	EnableAccount(ctx context.Context, user *User) (bool, error)

	// UpdateProfile applies first/last name changes iff the stored
	// last-update stamp still matches the one the caller read.
	UpdateProfile(ctx context.Context, user *SecureUser) (bool, error)

	Delete(ctx context.Context, email string) (bool, error)
}

type users struct {
	db     *bun.DB
	logger Logger
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed Users repository.
func NewUsersRepository(db *bun.DB, logger Logger) Users {
	if logger == nil {
		logger = defLogger{}
	}
	return &users{db: db, logger: logger}
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}

	err := r.db.NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *users) Register(ctx context.Context, user *User) error {
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		// duplicate email and any other insert rejection look the same
		// to the caller; the detail stays in the server log
		r.logger.Error("user insert rejected", "email", user.Email, "error", err)
		return ErrUserNotSaved
	}
	return nil
}

func (r *users) EnableAccount(ctx context.Context, user *User) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = ?", true).
		Set("activation_token = NULL").
		Set("last_update = ?", time.Now()).
		Where("?TableAlias.email = ?", user.Email).
		Where("?TableAlias.is_active = ?", false).
		Where("?TableAlias.last_update = ?", user.LastUpdate).
		Where("?TableAlias.activation_token = ?", user.ActivationToken).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return affectedOne(res)
}

func (r *users) UpdateProfile(ctx context.Context, user *SecureUser) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("first_name = ?", user.FirstName).
		Set("last_name = ?", user.LastName).
		Set("last_update = ?", time.Now()).
		Where("?TableAlias.email = ?", user.Email).
		Where("?TableAlias.last_update = ?", user.LastUpdate).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return affectedOne(res)
}

func (r *users) Delete(ctx context.Context, email string) (bool, error) {
	res, err := r.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return affectedOne(res)
}

func affectedOne(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
