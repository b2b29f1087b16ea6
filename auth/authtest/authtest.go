// Package authtest provides Authenticator implementations for tests and
// development environments.
package authtest

import (
	"context"
	"time"

	"github.com/ggoodman/sessionmux/auth"
)

// Static is a test authenticator backed by a fixed token → principal map.
// Tokens absent from the map fail with auth.ErrUnauthorized.
type Static struct {
	Tokens map[string]string
}

// NewStatic creates a Static authenticator accepting the given tokens.
func NewStatic(tokens map[string]string) *Static {
	return &Static{Tokens: tokens}
}

func (s *Static) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	userID, ok := s.Tokens[tok]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return staticUserInfo{userID: userID}, nil
}

type staticUserInfo struct {
	userID string
}

func (s staticUserInfo) UserID() string       { return s.userID }
func (s staticUserInfo) Scopes() []string     { return nil }
func (s staticUserInfo) ExpiresAt() time.Time { return time.Time{} }
func (s staticUserInfo) Claims(ref any) error { return nil }

var _ auth.Authenticator = (*Static)(nil)
