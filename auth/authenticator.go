// Package auth describes the backend collaborators the session depends on
// and provides their REST implementation.
package auth

import (
	"context"

	"github.com/jrsteele09/go-clinic-client/users"
)

// Credentials are what a user signs in with.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is a self-registration request.
type Profile struct {
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	Roles     []users.RoleType `json:"roles,omitempty"`
}

// Result is a fully authenticated session as returned by login and register.
type Result struct {
	AccessToken string      `json:"accessToken"`
	User        *users.User `json:"user"`
}

// Authenticator is the backend surface the session manager talks to.
//
// Refresh is called with no arguments: the backend renews the session from
// an ambient credential (a long-lived cookie) that the client never reads.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*Result, error)
	Register(ctx context.Context, profile Profile) (*Result, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (string, error)
}
