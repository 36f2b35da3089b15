package auth

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the account record. The email is the identity key. The
// invariant the repository maintains is IsActive == true iff
// ActivationToken is empty.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	Email           string    `bun:"email,pk" json:"email"`
	PasswordHash    string    `bun:"password_hash,notnull" json:"-"`
	FirstName       string    `bun:"first_name,notnull" json:"firstName"`
	LastName        string    `bun:"last_name,notnull" json:"lastName"`
	Creation        time.Time `bun:"creation,notnull" json:"creation"`
	LastUpdate      time.Time `bun:"last_update,notnull" json:"lastUpdate"`
	Permissions     []string  `bun:"permissions" json:"permissions"`
	IsActive        bool      `bun:"is_active,notnull" json:"isActive"`
	ActivationToken string    `bun:"activation_token,nullzero" json:"-"`
}

// SecureUser is the outward projection of a User: no password hash, no
// activation token.
type SecureUser struct {
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Creation    time.Time `json:"creation"`
	LastUpdate  time.Time `json:"lastUpdate"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"isActive"`
}

// SecureDTO strips credentials and the activation token from the record.
func (u *User) SecureDTO() *SecureUser {
	return &SecureUser{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Creation:    u.Creation,
		LastUpdate:  u.LastUpdate,
		Permissions: append([]string(nil), u.Permissions...),
		IsActive:    u.IsActive,
	}
}

// RegistrationRequest is the registration payload. The plaintext password
// lives here only until the hash is computed.
type RegistrationRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Permissions []string `json:"permissions"`
}

// EraseCredentials clears the plaintext password so it does not linger in
// the request object after the hash exists.
func (r *RegistrationRequest) EraseCredentials() {
	r.Password = ""
}

// AuthRequest is the login payload. ActivationToken is required exactly
// once, for the first login of an inactive account.
type AuthRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ActivationToken string `json:"activationToken,omitempty"`
}

// EraseCredentials clears the plaintext password. Login calls it on every
// path, success or failure.
func (r *AuthRequest) EraseCredentials() {
	r.Password = ""
}
