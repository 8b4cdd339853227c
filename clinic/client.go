// Package clinic wires the session, the request pipeline, the refresh
// coordinator and the route gate into one client, and performs the
// navigation their outcomes call for.
package clinic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/gate"
	"github.com/jrsteele09/go-clinic-client/internal/config"
	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/internal/metrics"
	"github.com/jrsteele09/go-clinic-client/navigation"
	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/jrsteele09/go-clinic-client/pipeline"
	"github.com/jrsteele09/go-clinic-client/refresh"
	"github.com/jrsteele09/go-clinic-client/sessions"
	"github.com/jrsteele09/go-clinic-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

// SessionExpiredReason is shown on the login page after a refresh is denied.
const SessionExpiredReason = "Your session has expired. Please sign in again."

// Config is the part of the application configuration the client needs.
type Config interface {
	config.APIConfig
	config.RouteConfig
}

type Client struct {
	cfg     Config
	service *sessions.Service
	gate    *gate.Gate
	nav     navigation.Navigator
	http    *http.Client

	mu          sync.Mutex
	pendingFrom string // Location to resume after the next sign in
	current     string // Last location rendered

	notifications sync.WaitGroup
}

type options struct {
	routes     []gate.Route
	authn      auth.Authenticator
	base       http.RoundTripper
	registerer prometheus.Registerer
	inspector  *token.Inspector
}

type Option func(*options)

// WithRoutes replaces the default clinic route table.
func WithRoutes(routes []gate.Route) Option {
	return func(o *options) {
		o.routes = routes
	}
}

// WithAuthenticator replaces the REST auth collaborator.
func WithAuthenticator(authn auth.Authenticator) Option {
	return func(o *options) {
		o.authn = authn
	}
}

// WithBaseTransport sets the round tripper beneath the request pipeline.
func WithBaseTransport(base http.RoundTripper) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithRegisterer registers the client's metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

func WithInspector(inspector *token.Inspector) Option {
	return func(o *options) {
		o.inspector = inspector
	}
}

func New(cfg Config, kv persist.KV, nav navigation.Navigator, opts ...Option) (*Client, error) {
	o := options{
		routes:    gate.DefaultRoutes(),
		base:      http.DefaultTransport,
		inspector: token.NewInspector(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	g, err := gate.New(cfg.GetLoginRoute(), cfg.GetLandingRoute(), o.routes)
	if err != nil {
		return nil, err
	}

	// The jar holds the backend's refresh cookie, the ambient credential
	// that lets a refresh succeed without the user's password.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("clinic: cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar, Timeout: cfg.GetRequestTimeout()}

	authn := o.authn
	if authn == nil {
		authn = auth.NewHTTPAuthenticator(cfg, httpClient)
	}

	c := &Client{
		cfg:     cfg,
		service: sessions.NewService(sessions.NewStore(), kv, authn, sessions.WithInspector(o.inspector)),
		gate:    g,
		nav:     nav,
		http:    httpClient,
	}

	m := metrics.New(o.registerer)
	coordinator := refresh.NewCoordinator(authn, c.service,
		refresh.WithDenialHandler(c.refreshDenied),
		refresh.WithMetrics(m),
	)
	httpClient.Transport = pipeline.NewTransport(c.service, coordinator,
		pipeline.WithBase(pipeline.NewChain(pipeline.LoggingTripper).Then(o.base)),
		pipeline.WithMetrics(m),
	)
	return c, nil
}

// Start restores any persisted session. Until it returns, protected
// locations decide to Loading.
func (c *Client) Start(ctx context.Context) error {
	return c.service.Rehydrate(ctx)
}

func (c *Client) Session() sessions.Snapshot {
	return c.service.Store().Snapshot()
}

// Subscribe calls fn after every session change.
func (c *Client) Subscribe(fn func(sessions.Snapshot)) (unsubscribe func()) {
	return c.service.Store().Subscribe(fn)
}

// TokenSource exposes the current access token.
func (c *Client) TokenSource() oauth2.TokenSource {
	return c.service.Store()
}

func (c *Client) Gate() *gate.Gate {
	return c.gate
}

// HTTPClient returns the client every API call must go through.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get fetches a path of the clinic API.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GetBaseURL()+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// Post sends body to a path of the clinic API. The body is buffered so that
// the request can be replayed after a token refresh.
func (c *Client) Post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GetBaseURL()+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.http.Do(req)
}

// Visit asks the gate about location and navigates accordingly.
func (c *Client) Visit(location string) gate.Decision {
	d := c.gate.Decide(c.Session(), location)

	switch d.State {
	case gate.Render:
		c.mu.Lock()
		c.current = location
		c.mu.Unlock()
		c.nav.Navigate(location, navigation.State{})
	case gate.Redirect:
		if d.Target == c.gate.LoginPath() {
			c.mu.Lock()
			c.pendingFrom = d.From
			c.mu.Unlock()
		}
		c.redirect(d.Target, navigation.State{From: d.From, Reason: d.Reason})
	}
	return d
}

// Login signs in and resumes the location that sent the user to the login
// page, when the user may see it. Errors are returned as the collaborator
// reported them and nothing is navigated.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) error {
	outcome, err := c.service.Login(ctx, creds)
	if err != nil {
		return err
	}
	c.signedIn(outcome)
	return nil
}

func (c *Client) Register(ctx context.Context, profile auth.Profile) error {
	outcome, err := c.service.Register(ctx, profile)
	if err != nil {
		return err
	}
	c.signedIn(outcome)
	return nil
}

func (c *Client) signedIn(outcome sessions.Outcome) {
	c.mu.Lock()
	from := c.pendingFrom
	c.pendingFrom = ""
	c.mu.Unlock()

	c.Visit(c.gate.Resume(outcome.User, from))
}

// Logout clears the session and navigates to the login page before the
// backend hears about it. The notification runs detached and its outcome is
// only logged.
func (c *Client) Logout(ctx context.Context) {
	outcome := c.service.Logout()

	c.mu.Lock()
	c.pendingFrom, c.current = "", ""
	c.mu.Unlock()
	c.redirect(c.gate.LoginPath(), navigation.State{})

	notifyCtx := context.WithoutCancel(ctx)
	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()
		c.service.NotifyLogout(notifyCtx, outcome.AccessToken)
	}()
}

// Wait blocks until detached logout notifications finish or ctx ends. Only
// process shutdown needs it.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refreshDenied ends the session whose token could not be renewed and sends
// the user to sign in again, resuming where they were.
func (c *Client) refreshDenied(ctx context.Context, stale string, err error) {
	if _, expired := c.service.Expire(ctx, stale); !expired {
		return
	}
	log.Warn().Err(err).Msg("session could not be renewed")

	c.mu.Lock()
	from := c.current
	c.pendingFrom, c.current = from, ""
	c.mu.Unlock()
	c.redirect(c.gate.LoginPath(), navigation.State{From: from, Reason: SessionExpiredReason})
}

func (c *Client) redirect(path string, state navigation.State) {
	log.Debug().Str("to", path).Str("from", state.From).Msg("redirect")
	c.nav.Navigate(path, state)
}

// IsSessionExpired reports whether err means the user must sign in again.
func IsSessionExpired(err error) bool {
	return errors.Is(err, auth.ErrRefreshDenied) || errors.Is(err, clinicerrors.ErrNoSession)
}
