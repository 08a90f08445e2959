package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/state"
	"github.com/pzaremba/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSession(t *testing.T) (*Store, *testutil.FakeBackend, *state.Store) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	st := testutil.NewStateStore(t)

	cfg := api.DefaultConfig()
	cfg.BaseURL = backend.URL()
	client := api.NewClient(cfg, api.NoopObserver{})

	return New(client, st, 0), backend, st
}

func login(t *testing.T, s *Store, backend *testutil.FakeBackend) {
	t.Helper()
	err := s.Login(context.Background(), domain.Credentials{
		Email:    backend.Email,
		Password: backend.Password,
	})
	require.NoError(t, err)
}

func TestLogin_EstablishesSession(t *testing.T) {
	s, backend, st := setupSession(t)
	login(t, s, backend)

	assert.Equal(t, PhaseAuthenticated, s.Phase())

	identity := s.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.Subject)
	assert.True(t, identity.ExpiresAt.After(time.Now()))

	pair, ok, err := st.TokenPair(context.Background())
	require.NoError(t, err)
	require.True(t, ok, "token pair must be persisted on login")
	assert.Equal(t, backend.CurrentTokens(), pair)
}

func TestLogin_BadCredentials(t *testing.T) {
	s, _, st := setupSession(t)

	err := s.Login(context.Background(), domain.Credentials{Email: "dev@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, api.ErrInvalidCredentials)
	assert.Equal(t, PhaseAnonymous, s.Phase())
	assert.Nil(t, s.Identity())

	_, ok, err := st.TokenPair(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "no token pair persisted after rejected login")
}

func TestLogin_PhaseTransitionsObserved(t *testing.T) {
	s, backend, _ := setupSession(t)

	var mu sync.Mutex
	var seen []Phase
	s.Subscribe(func(p Phase) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	login(t, s, backend)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseAuthenticating, PhaseAuthenticated}, seen)
}

func TestSignup_DoesNotAuthenticate(t *testing.T) {
	s, _, _ := setupSession(t)

	err := s.Signup(context.Background(), domain.Registration{Email: "new@example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, PhaseAnonymous, s.Phase())
}

func TestSignup_FieldErrorsSurface(t *testing.T) {
	s, backend, _ := setupSession(t)
	backend.SignupErrors = map[string][]string{"email": {"already taken"}}

	err := s.Signup(context.Background(), domain.Registration{Email: "dev@example.com"})
	var verr api.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"already taken"}, verr["email"])
}

func TestHydrate_RestoresPersistedSession(t *testing.T) {
	s, backend, st := setupSession(t)
	pair := backend.SeedSession()
	require.NoError(t, st.SetTokenPair(context.Background(), pair))

	require.NoError(t, s.Hydrate(context.Background()))
	assert.Equal(t, PhaseAuthenticated, s.Phase())
	require.NotNil(t, s.Identity())

	// The restored access token must work against the backend.
	require.NoError(t, s.FetchProfile(context.Background()))
	assert.Equal(t, "dev@example.com", s.Profile().Email)
}

func TestHydrate_UndecodableTokenStaysAnonymous(t *testing.T) {
	s, _, st := setupSession(t)
	require.NoError(t, st.SetTokenPair(context.Background(), domain.TokenPair{
		Access:  "not-a-jwt",
		Refresh: "also-garbage",
	}))

	require.NoError(t, s.Hydrate(context.Background()))
	assert.Equal(t, PhaseAnonymous, s.Phase())
	assert.Nil(t, s.Identity())

	_, ok, err := st.TokenPair(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "undecodable pair must be purged from storage")
}

func TestHydrate_NoPersistedPair(t *testing.T) {
	s, _, _ := setupSession(t)
	require.NoError(t, s.Hydrate(context.Background()))
	assert.Equal(t, PhaseAnonymous, s.Phase())
}

func TestLogout_Idempotent(t *testing.T) {
	s, backend, st := setupSession(t)
	login(t, s, backend)
	require.NoError(t, st.SetProjectID(context.Background(), "proj-1"))

	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, PhaseAnonymous, s.Phase())
	assert.Nil(t, s.Identity())
	assert.Equal(t, domain.Profile{}, s.Profile())

	_, ok, err := st.TokenPair(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = st.ProjectID(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "remembered project is purged on logout")

	// Second logout, and logout without any prior session, are no-ops.
	require.NoError(t, s.Logout(context.Background()))
	assert.Equal(t, PhaseAnonymous, s.Phase())
}

func TestRefresh_RotatesAndPersistsPair(t *testing.T) {
	s, backend, st := setupSession(t)
	login(t, s, backend)
	before := backend.CurrentTokens()

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, PhaseAuthenticated, s.Phase())

	after := backend.CurrentTokens()
	assert.NotEqual(t, before.Refresh, after.Refresh)

	pair, ok, err := st.TokenPair(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, after, pair)
}

func TestRefresh_FailureIsFatal(t *testing.T) {
	s, backend, st := setupSession(t)
	login(t, s, backend)
	require.NoError(t, st.SetProjectID(context.Background(), "proj-1"))

	backend.FailRefresh()
	err := s.Refresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, PhaseAnonymous, s.Phase())
	assert.Nil(t, s.Identity())

	_, ok, readErr := st.TokenPair(context.Background())
	require.NoError(t, readErr)
	assert.False(t, ok, "token pair cleared after fatal refresh")
	_, ok, readErr = st.ProjectID(context.Background())
	require.NoError(t, readErr)
	assert.False(t, ok, "project selection cleared after fatal refresh")
}

func TestRefresh_WithoutSession(t *testing.T) {
	s, _, _ := setupSession(t)
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrNotAuthenticated)
}

func TestRefresh_SingleFlight(t *testing.T) {
	s, backend, _ := setupSession(t)
	login(t, s, backend)
	backend.SetRefreshDelay(100 * time.Millisecond)
	countAfterLogin := backend.RefreshCount()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Refresh(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, countAfterLogin+1, backend.RefreshCount(),
		"concurrent callers share one refresh exchange")
	assert.Equal(t, PhaseAuthenticated, s.Phase())
}

func TestFetchProfile_Success(t *testing.T) {
	s, backend, _ := setupSession(t)
	login(t, s, backend)

	require.NoError(t, s.FetchProfile(context.Background()))
	assert.Equal(t, "Dev", s.Profile().FirstName)
	assert.Equal(t, "dev@example.com", s.Profile().Email)
}

func TestFetchProfile_ExpiredTokenRecoversViaRefresh(t *testing.T) {
	s, backend, _ := setupSession(t)
	login(t, s, backend)

	backend.InvalidateAccess()
	require.NoError(t, s.FetchProfile(context.Background()))

	assert.Equal(t, "Dev", s.Profile().FirstName)
	assert.Equal(t, 1, backend.RefreshCount(), "exactly one recovery refresh")
	assert.Equal(t, PhaseAuthenticated, s.Phase())
}

func TestFetchProfile_SecondRejectionHardLogsOut(t *testing.T) {
	s, backend, _ := setupSession(t)
	login(t, s, backend)

	backend.RejectAuthed()
	err := s.FetchProfile(context.Background())
	assert.ErrorIs(t, err, api.ErrTokenExpired)
	assert.Equal(t, PhaseAnonymous, s.Phase(), "second consecutive rejection is fatal")
	assert.Equal(t, 1, backend.RefreshCount(), "no retry loop beyond the single refresh")
}

func TestFetchProfile_WithoutSession(t *testing.T) {
	s, _, _ := setupSession(t)
	assert.ErrorIs(t, s.FetchProfile(context.Background()), ErrNotAuthenticated)
}

func TestRefreshTimer_FiresWhileAuthenticated(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	st := testutil.NewStateStore(t)

	cfg := api.DefaultConfig()
	cfg.BaseURL = backend.URL()
	client := api.NewClient(cfg, api.NoopObserver{})

	s := New(client, st, 20*time.Millisecond)
	login(t, s, backend)

	assert.Eventually(t, func() bool {
		return backend.RefreshCount() >= 2
	}, 2*time.Second, 10*time.Millisecond, "timer should keep refreshing")

	// Disarmed after logout: the count stops moving.
	require.NoError(t, s.Logout(context.Background()))
	count := backend.RefreshCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, count, backend.RefreshCount(), "no refresh while anonymous")
}

func TestDecodeIdentity(t *testing.T) {
	tok := testutil.SignedToken(t, "user-9", time.Now().Add(time.Hour))

	id, err := decodeIdentity(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-9", id.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), id.ExpiresAt, 5*time.Second)

	_, err = decodeIdentity("garbage")
	assert.ErrorIs(t, err, ErrTokenDecode)
}
