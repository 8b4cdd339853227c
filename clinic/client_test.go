package clinic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-clinic-client/auth"
	"github.com/jrsteele09/go-clinic-client/auth/authmock"
	"github.com/jrsteele09/go-clinic-client/clinic"
	"github.com/jrsteele09/go-clinic-client/gate"
	"github.com/jrsteele09/go-clinic-client/internal/config"
	"github.com/jrsteele09/go-clinic-client/navigation"
	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/jrsteele09/go-clinic-client/server"
	"github.com/jrsteele09/go-clinic-client/token"
	refreshrepofake "github.com/jrsteele09/go-clinic-client/token/refresh/repofake"
	"github.com/jrsteele09/go-clinic-client/users"
	fakeuserrepo "github.com/jrsteele09/go-clinic-client/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clientConfig struct {
	config.API
	config.Routes
}

func newClientConfig(baseURL string) clientConfig {
	return clientConfig{
		API: config.API{
			BaseURL:        baseURL,
			RequestTimeout: 5 * time.Second,
			LoginPath:      server.RouteAuthLogin,
			RegisterPath:   server.RouteAuthRegister,
			RefreshPath:    server.RouteAuthRefresh,
			LogoutPath:     server.RouteAuthLogout,
		},
		Routes: config.Routes{LoginRoute: gate.RouteLogin, LandingRoute: gate.RouteDashboard},
	}
}

type stubConfig struct {
	config.EnvVars
	config.API
	config.Stub
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newStub starts the development backend with the demo accounts seeded and a
// clock the test controls.
func newStub(t *testing.T) (*httptest.Server, *clock) {
	t.Helper()
	repo := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, server.SeedDemoUsers(repo))

	clk := &clock{now: time.Now()}
	cfg := stubConfig{
		EnvVars: config.EnvVars{Env: "TEST"},
		API:     newClientConfig("").API,
		Stub:    config.Stub{SigningSecret: "test-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour},
	}
	s, err := server.New(cfg, server.Repos{
		Users:         repo,
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, server.WithNowFunc(clk.Now))
	require.NoError(t, err)

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv, clk
}

func newClient(t *testing.T, baseURL string, kv persist.KV, opts ...clinic.Option) (*clinic.Client, *navigation.History) {
	t.Helper()
	history := navigation.NewHistory()
	c, err := clinic.New(newClientConfig(baseURL), kv, history, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = c.Wait(ctx)
	})
	return c, history
}

func credentials(email string) auth.Credentials {
	return auth.Credentials{Email: email, Password: users.DemoPassword}
}

func current(t *testing.T, h *navigation.History) navigation.Entry {
	t.Helper()
	e, ok := h.Current()
	require.True(t, ok, "nothing navigated")
	return e
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestClient_LoadingUntilStarted(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())

	require.Equal(t, gate.Loading, c.Visit("/dashboard").State)
	_, navigated := history.Current()
	require.False(t, navigated)

	require.Equal(t, gate.Render, c.Visit(gate.RouteLogin).State, "public routes render while loading")

	require.NoError(t, c.Start(context.Background()))
	d := c.Visit("/dashboard")
	require.Equal(t, gate.Redirect, d.State)
	require.Equal(t, navigation.Entry{Path: gate.RouteLogin, State: navigation.State{From: "/dashboard"}}, current(t, history))
}

func TestClient_LoginResumesRequestedLocation(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))

	c.Visit("/patients/42")
	require.Equal(t, gate.RouteLogin, current(t, history).Path)

	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	require.Equal(t, "/patients/42", current(t, history).Path)
	require.True(t, c.Session().IsAuthenticated())
	require.Equal(t, "user-doctor", c.Session().User.ID)
}

func TestClient_LoginFallsBackToLandingWhenResumeIsForbidden(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))

	c.Visit("/admin/users")
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	require.Equal(t, gate.RouteDashboard, current(t, history).Path)
}

func TestClient_LoginFailureLeavesSessionAlone(t *testing.T) {
	srv, _ := newStub(t)
	kv := persist.NewMemoryKV()
	c, history := newClient(t, srv.URL, kv)
	require.NoError(t, c.Start(context.Background()))

	err := c.Login(context.Background(), auth.Credentials{Email: "doctor@clinic.test", Password: "Wrong1234"})
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.False(t, c.Session().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
	_, navigated := history.Current()
	require.False(t, navigated)
}

func TestClient_RoleDenialRedirectsToLanding(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("patient@clinic.test")))

	d := c.Visit("/patients")
	require.Equal(t, gate.Redirect, d.State)
	require.Equal(t, navigation.Entry{
		Path:  gate.RouteDashboard,
		State: navigation.State{Reason: "You do not have permission to access /patients"},
	}, current(t, history))

	require.Equal(t, gate.Render, c.Visit("/appointments/7").State)
}

func TestClient_Register(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))

	profile := auth.Profile{FirstName: "Nia", LastName: "New", Email: "nia@clinic.test", Password: users.DemoPassword}
	require.NoError(t, c.Register(context.Background(), profile))
	require.Equal(t, gate.RouteDashboard, current(t, history).Path)
	require.True(t, c.Session().User.HasRole(users.RolePatient))

	c.Logout(context.Background())
	err := c.Register(context.Background(), profile)
	require.ErrorIs(t, err, auth.ErrDuplicateAccount)
}

func TestClient_RestoresPersistedSession(t *testing.T) {
	srv, _ := newStub(t)
	kv := persist.NewMemoryKV()

	first, _ := newClient(t, srv.URL, kv)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Login(context.Background(), credentials("reception@clinic.test")))

	second, history := newClient(t, srv.URL, kv)
	require.NoError(t, second.Start(context.Background()))
	require.True(t, second.Session().IsAuthenticated())
	require.Equal(t, first.Session().AccessToken, second.Session().AccessToken)

	require.Equal(t, gate.Render, second.Visit("/reception/queue").State)
	require.Equal(t, "/reception/queue", current(t, history).Path)
}

func TestClient_DiscardsExpiredPersistedSession(t *testing.T) {
	srv, _ := newStub(t)
	kv := persist.NewMemoryKV()

	first, _ := newClient(t, srv.URL, kv)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Login(context.Background(), credentials("doctor@clinic.test")))

	later := token.NewInspector(token.WithNowFunc(func() time.Time { return time.Now().Add(time.Hour) }))
	second, _ := newClient(t, srv.URL, kv, clinic.WithInspector(later))
	require.NoError(t, second.Start(context.Background()))

	require.False(t, second.Session().IsAuthenticated())
	require.False(t, second.Session().Loading)
	require.Empty(t, kv.Snapshot())
}

func TestClient_TransparentRefresh(t *testing.T) {
	srv, clk := newStub(t)
	kv := persist.NewMemoryKV()
	c, history := newClient(t, srv.URL, kv)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	before := c.Session().AccessToken

	clk.Advance(2 * time.Minute)
	resp, err := c.Get(context.Background(), server.RouteAPIMe)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me users.User
	require.NoError(t, json.Unmarshal([]byte(readAll(t, resp)), &me))
	require.Equal(t, "user-doctor", me.ID)

	after := c.Session().AccessToken
	require.NotEqual(t, before, after)
	require.Equal(t, "user-doctor", c.Session().User.ID, "user unchanged by refresh")

	rec, err := persist.LoadRecord(context.Background(), kv)
	require.NoError(t, err)
	require.Equal(t, after, rec.AccessToken)

	require.Equal(t, gate.RouteDashboard, current(t, history).Path, "a refresh never navigates")
}

func TestClient_RefreshReplaysRequestBody(t *testing.T) {
	srv, clk := newStub(t)
	c, _ := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))

	clk.Advance(2 * time.Minute)
	resp, err := c.Post(context.Background(), server.RouteAPIPatients, "application/json",
		strings.NewReader(`{"firstName":"Rae","lastName":"Retry"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, readAll(t, resp), `"firstName":"Rae"`)
}

func TestClient_ConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	srv, clk := newStub(t)
	reg := prometheus.NewRegistry()
	c, _ := newClient(t, srv.URL, persist.NewMemoryKV(), clinic.WithRegisterer(reg))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))

	clk.Advance(2 * time.Minute)

	paths := []string{server.RouteAPIMe, server.RouteAPIServices, server.RouteAPINotices}
	statuses := make([]int, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(context.Background(), p)
			if err != nil {
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}()
	}
	wg.Wait()

	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK}, statuses)
	require.Equal(t, 1.0, counterValue(t, reg, "clinic_client_refresh_flights_total"))
}

func TestClient_RefreshDeniedSignsOutAndResumesAfterLogin(t *testing.T) {
	srv, clk := newStub(t)
	kv := persist.NewMemoryKV()
	c, history := newClient(t, srv.URL, kv)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	require.Equal(t, gate.Render, c.Visit("/patients/42").State)

	// Past the refresh cookie's lifetime as well as the access token's
	clk.Advance(2 * time.Hour)
	_, err := c.Get(context.Background(), server.RouteAPIPatients)
	require.Error(t, err)
	require.True(t, clinic.IsSessionExpired(err))
	require.ErrorIs(t, err, auth.ErrRefreshDenied)

	require.False(t, c.Session().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
	require.Equal(t, navigation.Entry{
		Path:  gate.RouteLogin,
		State: navigation.State{From: "/patients/42", Reason: clinic.SessionExpiredReason},
	}, current(t, history))

	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	require.Equal(t, "/patients/42", current(t, history).Path)
}

func TestClient_AnonymousRequestIsNotRefreshed(t *testing.T) {
	srv, _ := newStub(t)
	reg := prometheus.NewRegistry()
	c, _ := newClient(t, srv.URL, persist.NewMemoryKV(), clinic.WithRegisterer(reg))
	require.NoError(t, c.Start(context.Background()))

	resp, err := c.Get(context.Background(), server.RouteAPIMe)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
	require.Equal(t, 0.0, counterValue(t, reg, "clinic_client_refresh_flights_total"))
}

func TestClient_LogoutIsImmediate(t *testing.T) {
	release := make(chan struct{})
	authn := authmock.New()
	authn.On("Login", mock.Anything, mock.Anything).Return(&auth.Result{
		AccessToken: "token-1",
		User:        &users.User{ID: "user-doctor", Email: "doctor@clinic.test", Roles: []users.RoleType{users.RoleDoctor}},
	}, nil)
	authn.On("Logout", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(nil)

	kv := persist.NewMemoryKV()
	c, history := newClient(t, "http://clinic.invalid", kv, clinic.WithAuthenticator(authn))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	require.NotEmpty(t, kv.Snapshot())

	c.Logout(context.Background())

	// The backend has not answered, yet the client is already signed out
	require.False(t, c.Session().IsAuthenticated())
	require.Empty(t, kv.Snapshot())
	require.Equal(t, gate.RouteLogin, current(t, history).Path)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, c.Wait(context.Background()))
	authn.AssertExpectations(t)
}

func TestClient_LogoutAgainstBackend(t *testing.T) {
	srv, _ := newStub(t)
	c, history := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	ended := c.Session().AccessToken

	c.Logout(context.Background())
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, gate.RouteLogin, current(t, history).Path)

	// The backend revoked the token the session held
	req, err := http.NewRequest(http.MethodGet, srv.URL+server.RouteAPIMe, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ended)
	revoked, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, revoked.StatusCode)
	_ = revoked.Body.Close()

	resp, err := c.Get(context.Background(), server.RouteAPIMe)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
	require.False(t, c.Session().IsAuthenticated())
}

func TestClient_TokenSource(t *testing.T) {
	srv, _ := newStub(t)
	c, _ := newClient(t, srv.URL, persist.NewMemoryKV())
	require.NoError(t, c.Start(context.Background()))

	_, err := c.TokenSource().Token()
	require.Error(t, err)

	require.NoError(t, c.Login(context.Background(), credentials("doctor@clinic.test")))
	tok, err := c.TokenSource().Token()
	require.NoError(t, err)
	require.Equal(t, c.Session().AccessToken, tok.AccessToken)
	require.WithinDuration(t, time.Now().Add(time.Minute), tok.Expiry, 5*time.Second)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
