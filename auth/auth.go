package auth

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized indicates authentication failed or no valid credentials were supplied.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInsufficientScope indicates the caller authenticated but lacks required scope.
var ErrInsufficientScope = errors.New("insufficient scope")

// UserInfo represents an authenticated principal resolved from a bearer
// credential. Implementations should be lightweight and safe for concurrent
// use.
type UserInfo interface {
	// UserID returns the unique identifier for the principal.
	UserID() string
	// Scopes returns the scopes granted to the credential.
	Scopes() []string
	// ExpiresAt returns the credential's expiry, or the zero time when the
	// credential does not expire.
	ExpiresAt() time.Time
	// Claims unmarshals the principal's claims into the provided struct reference.
	Claims(ref any) error
}

// Authenticator validates bearer credentials and returns the associated
// principal. It should return ErrUnauthorized for invalid credentials. The
// gate is purely a pre-condition applied before session dispatch; it does
// not participate in session state.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, tok string) (UserInfo, error)
}
