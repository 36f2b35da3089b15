package auth

import "errors"

// ErrUnauthorized is the single outcome for every authentication failure:
// unknown account, bad password, missing or wrong activation token, and a
// lost activation race all collapse into it so the 401 boundary never
// reveals why authentication failed.
var ErrUnauthorized = errors.New("unauthorized")

// ErrActivationNotNeeded is returned when an already active account
// presents an activation token. Unlike ErrUnauthorized it is a client
// error and is safe to surface with a reason.
var ErrActivationNotNeeded = errors.New("activation token is not necessary")

// ErrTokenInvalid covers every token verification defect: malformed
// structure, bad signature, expiry, blank subject, or a permissions claim
// that is not a list of strings.
var ErrTokenInvalid = errors.New("invalid token")

// ErrUserNotFound is the error we return for non found users
var ErrUserNotFound = errors.New("user not found")

// ErrUserNotSaved signals a rejected registration insert
var ErrUserNotSaved = errors.New("user not registered")

// ErrUserNotUpdated signals a failed optimistic-lock profile update
var ErrUserNotUpdated = errors.New("user not updated")

// ErrUserNotDeleted signals a delete that removed nothing
var ErrUserNotDeleted = errors.New("user not deleted")

// ErrNoEmptyString rejects empty input where a secret is expected
var ErrNoEmptyString = errors.New("empty string not allowed")
