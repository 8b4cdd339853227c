package sessions_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/auth/authmock"
	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/jrsteele09/go-clinic-client/pipeline"
	"github.com/jrsteele09/go-clinic-client/sessions"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newService(kv persist.KV, authn auth.Authenticator) *sessions.Service {
	return sessions.NewService(sessions.NewStore(), kv, authn)
}

func persistSession(t *testing.T, kv persist.KV, raw string) {
	t.Helper()
	require.NoError(t, persist.SaveRecord(context.Background(), kv, persist.Record{AccessToken: raw, User: doctor()}))
}

func TestService_Rehydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid record", func(t *testing.T) {
		kv := persist.NewMemoryKV()
		raw := tokenExpiringAt(t, time.Now().Add(time.Hour))
		persistSession(t, kv, raw)

		svc := newService(kv, authmock.New())
		require.True(t, svc.Store().Snapshot().Loading)
		require.NoError(t, svc.Rehydrate(ctx))

		snap := svc.Store().Snapshot()
		require.False(t, snap.Loading)
		require.True(t, snap.IsAuthenticated())
		require.Equal(t, raw, snap.AccessToken)
		require.Equal(t, "u1", snap.User.ID)
	})

	t.Run("expired token clears both keys", func(t *testing.T) {
		kv := persist.NewMemoryKV()
		persistSession(t, kv, tokenExpiringAt(t, time.Now().Add(-time.Second)))

		svc := newService(kv, authmock.New())
		require.NoError(t, svc.Rehydrate(ctx))

		snap := svc.Store().Snapshot()
		require.False(t, snap.Loading)
		require.False(t, snap.IsAuthenticated())
		require.Empty(t, kv.Snapshot())
	})

	t.Run("malformed token", func(t *testing.T) {
		kv := persist.NewMemoryKV()
		persistSession(t, kv, "not-a-token")

		svc := newService(kv, authmock.New())
		require.NoError(t, svc.Rehydrate(ctx))
		require.False(t, svc.Store().IsAuthenticated())
		require.Empty(t, kv.Snapshot())
	})

	t.Run("corrupt user record", func(t *testing.T) {
		kv := persist.NewMemoryKV()
		require.NoError(t, kv.Set(ctx, persist.KeyAccessToken, tokenExpiringAt(t, time.Now().Add(time.Hour))))
		require.NoError(t, kv.Set(ctx, persist.KeyUser, "{not json"))

		svc := newService(kv, authmock.New())
		require.NoError(t, svc.Rehydrate(ctx))
		require.False(t, svc.Store().Snapshot().Loading)
		require.False(t, svc.Store().IsAuthenticated())
		require.Empty(t, kv.Snapshot())
	})

	t.Run("nothing persisted", func(t *testing.T) {
		svc := newService(persist.NewMemoryKV(), authmock.New())
		require.NoError(t, svc.Rehydrate(ctx))
		require.False(t, svc.Store().Snapshot().Loading)
	})

	t.Run("runs once", func(t *testing.T) {
		kv := persist.NewMemoryKV()
		svc := newService(kv, authmock.New())
		require.NoError(t, svc.Rehydrate(ctx))

		persistSession(t, kv, tokenExpiringAt(t, time.Now().Add(time.Hour)))
		require.NoError(t, svc.Rehydrate(ctx))
		require.False(t, svc.Store().IsAuthenticated())
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	creds := auth.Credentials{Email: "doctor@clinic.test", Password: "pw"}
	raw := tokenExpiringAt(t, time.Now().Add(time.Hour))

	authn := authmock.New()
	authn.On("Login", mock.Anything, creds).Return(&auth.Result{AccessToken: raw, User: doctor()}, nil).Once()

	kv := persist.NewMemoryKV()
	svc := newService(kv, authn)

	outcome, err := svc.Login(ctx, creds)
	require.NoError(t, err)
	require.Equal(t, sessions.EventSignedIn, outcome.Event)
	require.Equal(t, "u1", outcome.User.ID)
	require.Equal(t, raw, svc.AccessToken())

	stored := kv.Snapshot()
	require.Equal(t, raw, stored[persist.KeyAccessToken])
	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored[persist.KeyUser]), &user))
	require.Equal(t, "u1", user["id"])
	authn.AssertExpectations(t)
}

func TestService_CredentialErrorLeavesSessionAlone(t *testing.T) {
	ctx := context.Background()
	denied := &auth.ResponseError{Op: "login", Status: 401, Kind: auth.ErrInvalidCredentials}

	authn := authmock.New()
	authn.On("Login", mock.Anything, mock.Anything).Return(nil, denied)
	authn.On("Register", mock.Anything, mock.Anything).Return(nil, auth.ErrDuplicateAccount)

	kv := persist.NewMemoryKV()
	svc := newService(kv, authn)
	require.NoError(t, svc.Store().Set(doctor(), "existing"))
	before := svc.Store().Snapshot()

	_, err := svc.Login(ctx, auth.Credentials{Email: "x@clinic.test", Password: "bad"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Same(t, denied, err)

	_, err = svc.Register(ctx, auth.Profile{Email: "taken@clinic.test"})
	require.ErrorIs(t, err, auth.ErrDuplicateAccount)

	require.Equal(t, before, svc.Store().Snapshot())
	require.Empty(t, kv.Snapshot())
}

func TestService_Register(t *testing.T) {
	profile := auth.Profile{FirstName: "Pat", LastName: "Ient", Email: "pat@clinic.test", Password: "Clinic123"}
	authn := authmock.New()
	authn.On("Register", mock.Anything, profile).Return(&auth.Result{AccessToken: "tok", User: doctor()}, nil)

	svc := newService(persist.NewMemoryKV(), authn)
	outcome, err := svc.Register(context.Background(), profile)
	require.NoError(t, err)
	require.Equal(t, sessions.EventSignedIn, outcome.Event)
	require.True(t, svc.Store().IsAuthenticated())
}

func TestService_LogoutIsLocal(t *testing.T) {
	kv := persist.NewMemoryKV()
	persistSession(t, kv, "tok")

	authn := authmock.New()
	svc := newService(kv, authn)
	require.NoError(t, svc.Store().Set(doctor(), "tok"))

	outcome := svc.Logout()
	require.Equal(t, sessions.EventSignedOut, outcome.Event)
	require.Equal(t, "tok", outcome.AccessToken)
	require.False(t, svc.Store().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
	authn.AssertNotCalled(t, "Logout", mock.Anything)
}

func TestService_NotifyLogoutSwallowsErrors(t *testing.T) {
	authn := authmock.New()
	authn.On("Logout", mock.Anything).Return(errors.New("network unreachable")).Once()

	svc := newService(persist.NewMemoryKV(), authn)
	svc.NotifyLogout(context.Background(), "")
	authn.AssertExpectations(t)
}

func TestService_NotifyLogoutCarriesEndedToken(t *testing.T) {
	authn := authmock.New()
	authn.On("Logout", mock.MatchedBy(func(ctx context.Context) bool {
		return pipeline.BearerFrom(ctx) == "tok"
	})).Return(nil).Once()

	svc := newService(persist.NewMemoryKV(), authn)
	require.NoError(t, svc.Store().Set(doctor(), "tok"))

	outcome := svc.Logout()
	svc.NotifyLogout(context.Background(), outcome.AccessToken)
	authn.AssertExpectations(t)
}

// stallingKV holds the first write of key until release is closed.
type stallingKV struct {
	*persist.MemoryKV
	key     string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallingKV(key string) *stallingKV {
	return &stallingKV{
		MemoryKV: persist.NewMemoryKV(),
		key:      key,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (s *stallingKV) Set(ctx context.Context, key, value string) error {
	if key == s.key {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.MemoryKV.Set(ctx, key, value)
}

func TestService_LogoutDuringSlowLoginWriteLeavesNothingPersisted(t *testing.T) {
	ctx := context.Background()
	raw := tokenExpiringAt(t, time.Now().Add(time.Hour))
	authn := authmock.New()
	authn.On("Login", mock.Anything, mock.Anything).Return(&auth.Result{AccessToken: raw, User: doctor()}, nil)

	kv := newStallingKV(persist.KeyUser)
	svc := newService(kv, authn)

	loggedIn := make(chan error, 1)
	go func() {
		_, err := svc.Login(ctx, auth.Credentials{Email: "doctor@clinic.test", Password: "pw"})
		loggedIn <- err
	}()
	<-kv.entered

	loggedOut := make(chan struct{})
	go func() {
		svc.Logout()
		close(loggedOut)
	}()

	close(kv.release)
	require.NoError(t, <-loggedIn)
	<-loggedOut

	require.False(t, svc.Store().IsAuthenticated())
	require.Empty(t, kv.Snapshot())

	restarted := newService(kv, authmock.New())
	require.NoError(t, restarted.Rehydrate(ctx))
	require.False(t, restarted.Store().IsAuthenticated())
}

func TestService_LogoutDuringSlowRefreshWriteLeavesNothingPersisted(t *testing.T) {
	ctx := context.Background()
	kv := newStallingKV(persist.KeyAccessToken)
	svc := newService(kv, authmock.New())
	require.NoError(t, svc.Store().Set(doctor(), "stale"))

	refreshed := make(chan error, 1)
	go func() { refreshed <- svc.ApplyRefresh(ctx, "stale", "fresh") }()
	<-kv.entered

	loggedOut := make(chan struct{})
	go func() {
		svc.Logout()
		close(loggedOut)
	}()

	close(kv.release)
	require.NoError(t, <-refreshed)
	<-loggedOut

	require.False(t, svc.Store().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
}

func TestService_ApplyRefresh(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	svc := newService(kv, authmock.New())

	require.Error(t, svc.ApplyRefresh(ctx, "", "fresh"), "no session to refresh")
	require.Empty(t, kv.Snapshot())

	require.NoError(t, svc.Store().Set(doctor(), "stale"))
	require.NoError(t, svc.ApplyRefresh(ctx, "stale", "fresh"))
	require.Equal(t, "fresh", svc.AccessToken())
	require.Equal(t, "fresh", kv.Snapshot()[persist.KeyAccessToken])

	require.ErrorIs(t, svc.ApplyRefresh(ctx, "stale", "fresher"), sessions.ErrSessionChanged)
	require.Equal(t, "fresh", svc.AccessToken())
}

func TestService_Expire(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()
	persistSession(t, kv, "current")
	svc := newService(kv, authmock.New())
	require.NoError(t, svc.Store().Set(doctor(), "current"))

	_, expired := svc.Expire(ctx, "older")
	require.False(t, expired)
	require.True(t, svc.Store().IsAuthenticated())

	outcome, expired := svc.Expire(ctx, "current")
	require.True(t, expired)
	require.Equal(t, sessions.EventExpired, outcome.Event)
	require.False(t, svc.Store().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
}
