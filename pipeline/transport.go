// Package pipeline is the request path every outgoing API call takes. It
// attaches the session's bearer token and, when the backend answers 401,
// renews the token once and re-issues the call.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// TokenProvider returns the access token to present, or "" when there is no
// session.
type TokenProvider interface {
	AccessToken() string
}

// Refresher exchanges a rejected token for a fresh one.
type Refresher interface {
	Refresh(ctx context.Context, stale string) (string, error)
}

// Reasons a 401 is passed back to the caller without a refresh.
const (
	SkipRefreshCall = "refresh_call"
	SkipCredentials = "credentials"
	SkipLogout      = "logout"
	SkipRetried     = "already_retried"
	SkipAnonymous   = "anonymous"
	SkipBody        = "body_not_replayable"
)

// maxDrain bounds how much of a discarded 401 body is read so the connection
// can be reused.
const maxDrain = 4 << 10

var _ http.RoundTripper = (*Transport)(nil)

type Transport struct {
	base      http.RoundTripper
	tokens    TokenProvider
	refresher Refresher
	metrics   *metrics.Metrics
}

type Option func(*Transport)

// WithBase sets the round tripper requests are finally sent through.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.base = base
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

func NewTransport(tokens TokenProvider, refresher Refresher, options ...Option) *Transport {
	t := &Transport{
		tokens:    tokens,
		refresher: refresher,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.base == nil {
		t.base = http.DefaultTransport
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sent := t.tokenFor(req)
	resp, err := t.base.RoundTrip(authorize(req, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if reason := skipReason(req, sent); reason != "" {
		log.Debug().Str("path", req.URL.Path).Str("reason", reason).Msg("401 passed through without refresh")
		t.metrics.Skipped(reason)
		return resp, nil
	}

	drain(resp)

	ctx := markRetried(req.Context())
	fresh, err := t.refresher.Refresh(ctx, sent)
	if err != nil {
		return nil, err
	}

	retry, err := rewind(req.Clone(ctx), req)
	if err != nil {
		return nil, err
	}
	t.metrics.Retried()
	log.Debug().Str("path", req.URL.Path).Msg("retrying request with refreshed token")
	return t.base.RoundTrip(authorize(retry, fresh))
}

// tokenFor is the session's token, except for a logout carrying the token of
// the session it ends.
func (t *Transport) tokenFor(req *http.Request) string {
	if KindFrom(req.Context()) == KindLogout {
		if bearer := BearerFrom(req.Context()); bearer != "" {
			return bearer
		}
	}
	return t.tokens.AccessToken()
}

// skipReason returns the guard that stops recovery of a 401, "" if none does.
func skipReason(req *http.Request, sent string) string {
	switch KindFrom(req.Context()) {
	case KindRefresh:
		return SkipRefreshCall
	case KindLogin, KindRegister:
		return SkipCredentials
	case KindLogout:
		return SkipLogout
	}
	if IsRetried(req.Context()) {
		return SkipRetried
	}
	if sent == "" {
		return SkipAnonymous
	}
	if hasBody(req) && req.GetBody == nil {
		return SkipBody
	}
	return ""
}

// authorize returns a copy of req carrying token. The caller's request is
// never modified.
func authorize(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	r := req.Clone(req.Context())
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(r)
	return r
}

func rewind(retry, orig *http.Request) (*http.Request, error) {
	if !hasBody(orig) {
		return retry, nil
	}
	body, err := orig.GetBody()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", clinicerrors.ErrBodyNotReplayable, err)
	}
	retry.Body = body
	return retry, nil
}

func hasBody(req *http.Request) bool {
	return req.Body != nil && req.Body != http.NoBody
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}
