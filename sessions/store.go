package sessions

import (
	"errors"
	"fmt"
	"sync"

	clinicerrors "github.com/jrsteele09/go-clinic-client/internal/errors"
	"github.com/jrsteele09/go-clinic-client/token"
	"github.com/jrsteele09/go-clinic-client/users"
	"golang.org/x/oauth2"
)

// ErrSessionChanged is returned by ReplaceToken when the token it was asked
// to replace is no longer the current one.
var ErrSessionChanged = errors.New("session changed")

var _ oauth2.TokenSource = (*Store)(nil)

// Store is the single source of truth for who is signed in. The user and
// the token are always written and cleared together under one lock.
type Store struct {
	mu      sync.RWMutex
	user    *users.User
	token   string
	loading bool
	version uint64

	subsMu sync.Mutex
	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn func(Snapshot)
}

// NewStore returns an empty store that is loading until FinishLoading.
func NewStore() *Store {
	return &Store{loading: true}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:        s.user.Clone(),
		AccessToken: s.token,
		Loading:     s.loading,
		Version:     s.version,
	}
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// Token exposes the session as an oauth2.TokenSource. The expiry is read
// from the token itself without verification.
func (s *Store) Token() (*oauth2.Token, error) {
	raw := s.AccessToken()
	if raw == "" {
		return nil, clinicerrors.ErrNoSession
	}
	t := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, err := token.ReadClaims(raw); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t, nil
}

// Set replaces the whole session. Both halves are required.
func (s *Store) Set(user *users.User, accessToken string) error {
	if user == nil || accessToken == "" {
		return fmt.Errorf("sessions: set requires both user and token")
	}
	s.mutate(func() bool {
		s.user = user.Clone()
		s.token = accessToken
		return true
	})
	return nil
}

// ReplaceToken swaps expected for fresh, keeping the user. It fails with
// ErrNoSession when nobody is signed in and ErrSessionChanged when the current
// token is no longer expected.
func (s *Store) ReplaceToken(expected, fresh string) error {
	if fresh == "" {
		return fmt.Errorf("sessions: replacement token is empty")
	}
	var err error
	s.mutate(func() bool {
		switch {
		case s.user == nil:
			err = clinicerrors.ErrNoSession
		case s.token != expected:
			err = ErrSessionChanged
		default:
			s.token = fresh
		}
		return err == nil
	})
	return err
}

// Clear signs out. It reports whether there was a session to clear.
func (s *Store) Clear() bool {
	var cleared bool
	s.mutate(func() bool {
		cleared = s.user != nil || s.token != ""
		s.user, s.token = nil, ""
		return cleared
	})
	return cleared
}

// ClearToken signs out only if expected is still the current token.
func (s *Store) ClearToken(expected string) bool {
	var cleared bool
	s.mutate(func() bool {
		if expected == "" || s.token != expected {
			return false
		}
		s.user, s.token = nil, ""
		cleared = true
		return true
	})
	return cleared
}

// FinishLoading ends the startup loading phase. Later calls do nothing.
func (s *Store) FinishLoading() {
	s.mutate(func() bool {
		if !s.loading {
			return false
		}
		s.loading = false
		return true
	})
}

// Subscribe registers fn to receive a snapshot after every change. Snapshots
// from concurrent changes may arrive out of order; use Version to discard
// stale ones. fn runs without the store lock held.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// mutate runs change under the write lock and notifies subscribers when it
// reports a change.
func (s *Store) mutate(change func() bool) {
	s.mu.Lock()
	changed := change()
	if changed {
		s.version++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subsMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}
