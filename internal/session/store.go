// Package session owns the authentication lifecycle: token acquisition,
// identity decoding, the scheduled refresh, and the forced logout that every
// unrecoverable auth failure collapses into.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/state"
)

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseAnonymous      Phase = "ANONYMOUS"
	PhaseAuthenticating Phase = "AUTHENTICATING"
	PhaseAuthenticated  Phase = "AUTHENTICATED"
	PhaseRefreshing     Phase = "REFRESHING"
)

// Listener receives session phase transitions. Callbacks run without the
// store lock held and must not block for long.
type Listener func(Phase)

// Store is the single source of truth for "is the caller authenticated" and
// the resulting identity and profile.
type Store struct {
	api          api.Client
	state        *state.Store
	refreshEvery time.Duration

	mu        sync.Mutex
	phase     Phase
	pair      *domain.TokenPair
	identity  *domain.Identity
	profile   domain.Profile
	listeners []Listener

	timerStop chan struct{}

	// inflight is non-nil while a refresh is running; concurrent callers
	// wait on it instead of issuing a second rotation.
	inflight   chan struct{}
	refreshErr error
}

// New creates a Store in the ANONYMOUS phase. Call Hydrate to restore a
// persisted session.
func New(client api.Client, st *state.Store, refreshEvery time.Duration) *Store {
	return &Store{
		api:          client,
		state:        st,
		refreshEvery: refreshEvery,
		phase:        PhaseAnonymous,
	}
}

// Subscribe registers a listener for phase transitions. The listener is not
// called with the current phase.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Phase returns the current session phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Identity returns the decoded identity, or nil when anonymous.
func (s *Store) Identity() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Profile returns the fetched profile; zero until FetchProfile succeeds.
func (s *Store) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// setPhaseLocked records a transition and returns the listeners to notify.
// Notification happens in the caller, outside the lock.
func (s *Store) setPhaseLocked(p Phase) []Listener {
	if s.phase == p {
		return nil
	}
	s.phase = p
	return append([]Listener(nil), s.listeners...)
}

func notify(listeners []Listener, p Phase) {
	for _, fn := range listeners {
		fn(p)
	}
}

// Hydrate restores a persisted session at startup. A missing pair leaves the
// store anonymous; a pair whose access token no longer decodes is purged.
func (s *Store) Hydrate(ctx context.Context) error {
	pair, ok, err := s.state.TokenPair(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	identity, err := decodeIdentity(pair.Access)
	if err != nil {
		// Stored garbage must not produce a half-open session.
		if clearErr := s.state.ClearTokenPair(ctx); clearErr != nil {
			return clearErr
		}
		return nil
	}

	s.mu.Lock()
	s.pair = &pair
	s.identity = identity
	listeners := s.setPhaseLocked(PhaseAuthenticated)
	s.armTimerLocked()
	s.mu.Unlock()

	s.api.SetAccessToken(pair.Access)
	notify(listeners, PhaseAuthenticated)
	return nil
}

// Login authenticates with the backend and establishes a session. Bad
// credentials surface as api.ErrInvalidCredentials; transport failures as
// api.ErrNetwork; anything else as *api.BackendError.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	listeners := s.setPhaseLocked(PhaseAuthenticating)
	s.mu.Unlock()
	notify(listeners, PhaseAuthenticating)

	pair, err := s.api.Login(ctx, creds)
	if err != nil {
		s.mu.Lock()
		listeners := s.setPhaseLocked(PhaseAnonymous)
		s.mu.Unlock()
		notify(listeners, PhaseAnonymous)
		return err
	}

	return s.adopt(ctx, pair)
}

// adopt installs a freshly minted token pair: decode, persist, transition to
// AUTHENTICATED and arm the refresh timer.
func (s *Store) adopt(ctx context.Context, pair domain.TokenPair) error {
	identity, err := decodeIdentity(pair.Access)
	if err != nil {
		s.mu.Lock()
		listeners := s.setPhaseLocked(PhaseAnonymous)
		s.mu.Unlock()
		notify(listeners, PhaseAnonymous)
		return err
	}

	if err := s.state.SetTokenPair(ctx, pair); err != nil {
		return err
	}

	s.mu.Lock()
	s.pair = &pair
	s.identity = identity
	listeners := s.setPhaseLocked(PhaseAuthenticated)
	s.armTimerLocked()
	s.mu.Unlock()

	s.api.SetAccessToken(pair.Access)
	notify(listeners, PhaseAuthenticated)
	return nil
}

// Signup registers a new account. It never authenticates; on success the
// caller routes to login. Field-level rejections surface as
// api.ValidationErrors.
func (s *Store) Signup(ctx context.Context, reg domain.Registration) error {
	return s.api.Signup(ctx, reg)
}

// Logout tears the session down. It is idempotent, safe without a prior
// session, and always resets in-memory state even when clearing durable
// storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.pair = nil
	s.identity = nil
	s.profile = domain.Profile{}
	s.disarmTimerLocked()
	listeners := s.setPhaseLocked(PhaseAnonymous)
	s.mu.Unlock()

	s.api.SetAccessToken("")
	notify(listeners, PhaseAnonymous)

	err := s.state.ClearTokenPair(ctx)
	if clearErr := s.state.ClearProjectID(ctx); err == nil {
		err = clearErr
	}
	return err
}

// Refresh exchanges the stored refresh token for a new pair. Any failure is
// fatal to the session and triggers Logout; refresh is never retried
// silently. Concurrent callers share a single in-flight exchange.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.pair == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	if s.inflight != nil {
		done := s.inflight
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		err := s.refreshErr
		s.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	s.inflight = done
	refreshToken := s.pair.Refresh
	listeners := s.setPhaseLocked(PhaseRefreshing)
	s.mu.Unlock()
	notify(listeners, PhaseRefreshing)

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err == nil {
		err = s.adopt(ctx, pair)
	}

	s.mu.Lock()
	s.refreshErr = err
	s.inflight = nil
	s.mu.Unlock()
	close(done)

	if err != nil {
		_ = s.Logout(ctx)
	}
	return err
}

// Do runs an authenticated operation with the one-shot token recovery: on
// api.ErrTokenExpired it refreshes once and re-runs fn. A second consecutive
// rejection hard-logs-out. No other error is touched.
func (s *Store) Do(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	if !errors.Is(err, api.ErrTokenExpired) {
		return err
	}

	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		// Refresh already forced the logout.
		return refreshErr
	}

	err = fn(ctx)
	if errors.Is(err, api.ErrTokenExpired) {
		_ = s.Logout(ctx)
	}
	return err
}

// FetchProfile loads the user-facing account record. Requires a session.
func (s *Store) FetchProfile(ctx context.Context) error {
	s.mu.Lock()
	if s.pair == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.mu.Unlock()

	var profile domain.Profile
	err := s.Do(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.api.FetchProfile(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

// armTimerLocked starts the periodic refresh. No-op while already armed.
func (s *Store) armTimerLocked() {
	if s.timerStop != nil || s.refreshEvery <= 0 {
		return
	}
	stop := make(chan struct{})
	s.timerStop = stop

	go func() {
		ticker := time.NewTicker(s.refreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = s.Refresh(context.Background())
			}
		}
	}()
}

func (s *Store) disarmTimerLocked() {
	if s.timerStop == nil {
		return
	}
	close(s.timerStop)
	s.timerStop = nil
}
