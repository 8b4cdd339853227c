// Package server is a development stand-in for the clinic REST backend. It
// issues short-lived access tokens and rotating refresh cookies so that the
// client's session lifecycle can be exercised end to end.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/internal/config"
	"github.com/jrsteele09/go-clinic-client/token"
	refreshtoken "github.com/jrsteele09/go-clinic-client/token/refresh"
	"github.com/jrsteele09/go-clinic-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Config is the part of the application configuration the backend needs.
type Config interface {
	config.EnvConfig
	config.APIConfig
	config.StubConfig
}

// Repos holds all repository dependencies for the Server
type Repos struct {
	Users         users.UserRepo    // Accounts that can sign in
	RefreshTokens refreshtoken.Repo // Server side of the refresh cookies
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    Config
	repos     Repos
	issuer    *token.Issuer
	refresh   *refreshtoken.Manager
	validator *auth.Validator
	metrics   *serverMetrics
	registry  *prometheus.Registry
	fixtures  *fixtures
}

type Option func(*options)

type options struct {
	nowFunc func() time.Time
}

// WithNowFunc sets the clock used for issuing and expiring tokens.
func WithNowFunc(now func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = now
	}
}

func New(cfg Config, repos Repos, opts ...Option) (*Server, error) {
	if repos.Users == nil {
		return nil, fmt.Errorf("[Server New] Users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, fmt.Errorf("[Server New] RefreshTokens repo is required")
	}
	if cfg.GetSigningSecret() == "" {
		return nil, fmt.Errorf("[Server New] signing secret is required")
	}

	o := options{nowFunc: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		repos:  repos,
		issuer: token.NewIssuer(token.NewHMACSigner(cfg.GetSigningSecret()),
			token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
			token.WithIssuerNowFunc(o.nowFunc),
		),
		refresh:   refreshtoken.NewManager(repos.RefreshTokens, cfg.GetRefreshTokenExpiry(), o.nowFunc),
		validator: auth.NewValidator(),
		metrics:   newServerMetrics(registry),
		registry:  registry,
		fixtures:  newFixtures(),
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+resetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
