package pipeline

import "context"

// RequestKind tells the pipeline what a request is for, so that a 401 from an
// auth endpoint is not mistaken for an expired session.
type RequestKind int

const (
	KindResource RequestKind = iota
	KindLogin
	KindRegister
	KindRefresh
	KindLogout
)

func (k RequestKind) String() string {
	switch k {
	case KindLogin:
		return "login"
	case KindRegister:
		return "register"
	case KindRefresh:
		return "refresh"
	case KindLogout:
		return "logout"
	default:
		return "resource"
	}
}

type kindKey struct{}
type retriedKey struct{}
type bearerKey struct{}

// WithKind tags every request made with ctx.
func WithKind(ctx context.Context, kind RequestKind) context.Context {
	return context.WithValue(ctx, kindKey{}, kind)
}

// KindFrom returns the kind ctx was tagged with, KindResource if none.
func KindFrom(ctx context.Context) RequestKind {
	if k, ok := ctx.Value(kindKey{}).(RequestKind); ok {
		return k
	}
	return KindResource
}

// WithBearer carries the token a logout should revoke. The session has
// already been cleared by the time the backend is told, so the transport
// cannot take it from the session.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFrom returns the token set by WithBearer, "" if none.
func BearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// IsRetried reports whether ctx belongs to a request already re-issued once.
func IsRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}
