package sessions

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/jrsteele09/go-clinic-client/pipeline"
	"github.com/jrsteele09/go-clinic-client/token"
	"github.com/rs/zerolog/log"
)

// Service performs every session mutation and keeps persistence in step with
// the store. It never navigates: callers act on the returned Outcome.
type Service struct {
	store     *Store
	kv        persist.KV
	authn     auth.Authenticator
	inspector *token.Inspector
	rehydrate sync.Once

	// mu is held across each store change and the persistence write that
	// mirrors it, so a slow write never lands after a later sign out.
	// Subscribers must not call back into the Service.
	mu sync.Mutex
}

type ServiceOption func(*Service)

// WithInspector sets the inspector used to judge persisted tokens.
func WithInspector(inspector *token.Inspector) ServiceOption {
	return func(s *Service) {
		s.inspector = inspector
	}
}

func NewService(store *Store, kv persist.KV, authn auth.Authenticator, options ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		kv:        kv,
		authn:     authn,
		inspector: token.NewInspector(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) AccessToken() string {
	return s.store.AccessToken()
}

// Rehydrate restores the persisted session. Only the first call does any
// work. The store always leaves the loading phase, whatever happens.
//
// An expired persisted token is never loaded: the token and the user are
// both removed and the session starts signed out.
func (s *Service) Rehydrate(ctx context.Context) error {
	var err error
	s.rehydrate.Do(func() {
		defer s.store.FinishLoading()
		err = s.restore(ctx)
	})
	return err
}

func (s *Service) restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := persist.LoadRecord(ctx, s.kv)
	if errors.Is(err, persist.ErrCorruptRecord) {
		log.Warn().Err(err).Msg("discarding unreadable persisted session")
		s.forget(ctx)
		return nil
	}
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if s.inspector.IsExpired(rec.AccessToken) {
		log.Info().Str("user", rec.User.ID).Msg("persisted session has expired")
		s.forget(ctx)
		return nil
	}

	log.Debug().Str("user", rec.User.ID).Msg("session restored")
	return s.store.Set(rec.User, rec.AccessToken)
}

// Login signs in. On failure the session is left exactly as it was and the
// collaborator's error is returned unchanged.
func (s *Service) Login(ctx context.Context, creds auth.Credentials) (Outcome, error) {
	result, err := s.authn.Login(ctx, creds)
	if err != nil {
		return Outcome{}, err
	}
	return s.establish(ctx, result)
}

// Register creates an account; the backend signs the new user in.
func (s *Service) Register(ctx context.Context, profile auth.Profile) (Outcome, error) {
	result, err := s.authn.Register(ctx, profile)
	if err != nil {
		return Outcome{}, err
	}
	return s.establish(ctx, result)
}

func (s *Service) establish(ctx context.Context, result *auth.Result) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(result.User, result.AccessToken); err != nil {
		return Outcome{}, err
	}
	if err := persist.SaveRecord(ctx, s.kv, persist.Record{AccessToken: result.AccessToken, User: result.User}); err != nil {
		log.Warn().Err(err).Msg("session not persisted")
	}
	log.Info().Str("user", result.User.ID).Msg("signed in")
	return Outcome{Event: EventSignedIn, User: result.User.Clone()}, nil
}

// Logout clears the session and its persisted record before returning. It
// does not contact the backend; pass the returned token to NotifyLogout.
func (s *Service) Logout() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	ended := s.store.AccessToken()
	s.store.Clear()
	s.forget(context.Background())
	log.Info().Msg("signed out")
	return Outcome{Event: EventSignedOut, AccessToken: ended}
}

// NotifyLogout tells the backend the session holding accessToken is over, so
// it can revoke the token. Failure is logged and otherwise ignored.
func (s *Service) NotifyLogout(ctx context.Context, accessToken string) {
	if accessToken != "" {
		ctx = pipeline.WithBearer(ctx, accessToken)
	}
	if err := s.authn.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("logout notification failed")
	}
}

// ApplyRefresh installs a refreshed token in place of stale and persists it.
func (s *Service) ApplyRefresh(ctx context.Context, stale, fresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceToken(stale, fresh); err != nil {
		return err
	}
	if err := persist.SaveAccessToken(ctx, s.kv, fresh); err != nil {
		log.Warn().Err(err).Msg("refreshed token not persisted")
	}
	return nil
}

// Expire ends a session that could not be renewed. It only clears the
// session that still holds stale, and reports whether it did.
func (s *Service) Expire(ctx context.Context, stale string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.ClearToken(stale) {
		return Outcome{}, false
	}
	s.forget(ctx)
	log.Info().Msg("session expired")
	return Outcome{Event: EventExpired}, true
}

func (s *Service) forget(ctx context.Context) {
	if err := persist.ClearRecord(ctx, s.kv); err != nil {
		log.Warn().Err(err).Msg("persisted session not cleared")
	}
}
