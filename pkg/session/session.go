// Package session defines caller identity and the authentication contract
// used by the backend dispatcher.
package session

import (
	"context"
	"errors"
)

// Identity describes an authenticated caller. Domain handlers receive it
// as an argument and scope their data access by UserID.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Admin  bool   `json:"admin,omitempty"`
}

// ErrUnauthorized is returned by authenticators for missing, unknown,
// or expired credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Authenticator resolves a bearer token to a caller identity.
// Implementations must return ErrUnauthorized (possibly wrapped) when
// the token does not identify a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, token string) (Identity, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}
