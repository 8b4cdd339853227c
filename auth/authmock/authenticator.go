package authmock

import (
	"context"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/stretchr/testify/mock"
)

var _ auth.Authenticator = (*Authenticator)(nil)

type Authenticator struct {
	mock.Mock
}

func New() *Authenticator {
	return &Authenticator{}
}

func (m *Authenticator) Login(ctx context.Context, creds auth.Credentials) (*auth.Result, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Result), args.Error(1)
}

func (m *Authenticator) Register(ctx context.Context, profile auth.Profile) (*auth.Result, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Result), args.Error(1)
}

func (m *Authenticator) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Authenticator) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
