// Package auth implements the token-issuing core of the twoauth backend:
// the rotating signing-key store, JWT issuance and verification, the
// account activation state machine with its optimistic-concurrency write,
// and the login protocol that ties them together.
//
// The package owns the User model and its bun repository. HTTP wiring
// lives in the backend package; the bearer-token request filter lives in
// auth/jwtware.
package auth
