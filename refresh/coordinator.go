// Package refresh renews the access token on behalf of every request that
// found it rejected, issuing at most one refresh call at a time.
package refresh

import (
	"context"
	"fmt"

	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// flightKey names the one process-wide refresh slot.
const flightKey = "refresh"

// Backend performs the actual refresh call.
type Backend interface {
	Refresh(ctx context.Context) (string, error)
}

// Session is where a refreshed token is installed.
type Session interface {
	AccessToken() string
	// ApplyRefresh replaces stale with fresh, failing if stale is no longer
	// the current token.
	ApplyRefresh(ctx context.Context, stale, fresh string) error
}

// DenialHandler is called once per failed flight with the token that could
// not be renewed.
type DenialHandler func(ctx context.Context, stale string, err error)

// Coordinator implements pipeline.Refresher.
type Coordinator struct {
	backend  Backend
	session  Session
	onDenied DenialHandler
	metrics  *metrics.Metrics
	flight   singleflight.Group
}

type Option func(*Coordinator)

func WithDenialHandler(h DenialHandler) Option {
	return func(c *Coordinator) {
		c.onDenied = h
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func NewCoordinator(backend Backend, session Session, options ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,
		session: session,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Refresh returns a token to use in place of stale. Concurrent callers share
// a single refresh call and all receive its token or its error. If stale has
// already been replaced, the current token is returned without a call; if the
// session has ended, ErrNoSession is returned.
//
// Abandoning ctx releases the caller but never cancels the refresh itself.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	if current, done, err := c.settled(stale); done {
		return current, err
	}

	ch := c.flight.DoChan(flightKey, func() (any, error) {
		return c.fly(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.FlightShared()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// settled reports whether there is nothing left to refresh: the session has
// already moved on from stale, or it has ended.
func (c *Coordinator) settled(stale string) (current string, done bool, err error) {
	switch current = c.session.AccessToken(); current {
	case "":
		return "", true, clinicerrors.ErrNoSession
	case stale:
		return "", false, nil
	default:
		return current, true, nil
	}
}

func (c *Coordinator) fly(ctx context.Context, stale string) (string, error) {
	// A flight that settled between this caller's check and DoChan has
	// already renewed the token.
	if current, done, err := c.settled(stale); done {
		return current, err
	}

	c.metrics.FlightStarted()
	log.Debug().Msg("refreshing access token")

	fresh, err := c.backend.Refresh(ctx)
	if err != nil {
		c.metrics.FlightFailed()
		log.Warn().Err(err).Msg("token refresh failed")
		if c.onDenied != nil {
			c.onDenied(ctx, stale, err)
		}
		return "", fmt.Errorf("refresh: %w", err)
	}

	if err := c.session.ApplyRefresh(ctx, stale, fresh); err != nil {
		c.metrics.FlightFailed()
		log.Info().Err(err).Msg("refreshed token discarded")
		return "", fmt.Errorf("refresh: %w", err)
	}
	return fresh, nil
}
