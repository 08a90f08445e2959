package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pzaremba/sprintdesk/internal/domain"
)

// FakeBackend is an in-memory stand-in for the project-management backend,
// served over a real httptest server so client tests exercise the full HTTP
// path: status mapping, JSON codecs and the Authorization header.
type FakeBackend struct {
	t      *testing.T
	Server *httptest.Server

	mu sync.Mutex

	// Registered login; defaults to dev@example.com / hunter2.
	Email    string
	Password string
	Profile  domain.Profile

	access  string
	refresh string

	refreshCount int
	failRefresh  bool
	rejectAuthed bool

	refreshDelay time.Duration
	readDelay    time.Duration
	failReads    bool

	// SignupErrors, when set, rejects the next signup with these
	// field-level messages.
	SignupErrors map[string][]string

	Projects []*domain.Project
	Epics    map[string][]*domain.Epic
	Sprints  map[string][]*domain.Sprint
	Items    map[string][]*domain.Item
}

// NewFakeBackend starts a fake backend. The server shuts down when the test
// completes.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		t:        t,
		Email:    "dev@example.com",
		Password: "hunter2",
		Profile:  domain.Profile{FirstName: "Dev", LastName: "User", Email: "dev@example.com"},
		Epics:    map[string][]*domain.Epic{},
		Sprints:  map[string][]*domain.Sprint{},
		Items:    map[string][]*domain.Item{},
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend base URL.
func (b *FakeBackend) URL() string { return b.Server.URL }

// RefreshCount reports how many refresh exchanges the backend has served.
func (b *FakeBackend) RefreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCount
}

// FailRefresh makes every subsequent refresh exchange fail with 401,
// simulating an expired refresh token.
func (b *FakeBackend) FailRefresh() {
	b.mu.Lock()
	b.failRefresh = true
	b.mu.Unlock()
}

// InvalidateAccess expires the current access token: authenticated calls
// return 401 until the client refreshes.
func (b *FakeBackend) InvalidateAccess() {
	b.mu.Lock()
	b.access = ""
	b.mu.Unlock()
}

// CurrentTokens returns the token pair the backend currently honors.
func (b *FakeBackend) CurrentTokens() domain.TokenPair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.TokenPair{Access: b.access, Refresh: b.refresh}
}

// SeedSession mints a token pair the backend honors, for tests that persist
// a session and hydrate instead of logging in.
func (b *FakeBackend) SeedSession() domain.TokenPair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked()
}

// issueLocked mints and records a fresh token pair.
func (b *FakeBackend) issueLocked() domain.TokenPair {
	b.access = SignedToken(b.t, "user-1", time.Now().Add(15*time.Minute))
	b.refresh = SignedToken(b.t, "user-1", time.Now().Add(24*time.Hour))
	return domain.TokenPair{Access: b.access, Refresh: b.refresh}
}

// RejectAuthed makes every authenticated route return 401 regardless of the
// presented token, simulating a backend that keeps rejecting freshly
// refreshed access tokens.
func (b *FakeBackend) RejectAuthed() {
	b.mu.Lock()
	b.rejectAuthed = true
	b.mu.Unlock()
}

func (b *FakeBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejectAuthed {
		return false
	}
	return b.access != "" && r.Header.Get("Authorization") == "Bearer "+b.access
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (b *FakeBackend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		b.mu.Lock()
		defer b.mu.Unlock()
		if creds.Email != b.Email || creds.Password != b.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, b.issueLocked())
	})

	mux.HandleFunc("POST /api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		rejected := b.SignupErrors
		b.SignupErrors = nil
		b.mu.Unlock()
		if len(rejected) > 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": rejected})
			return
		}
		writeJSON(w, http.StatusCreated, nil)
	})

	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		delay := b.refreshDelay
		b.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.refreshCount++
		if b.failRefresh || req.Refresh == "" || req.Refresh != b.refresh {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "refresh token invalid"})
			return
		}
		writeJSON(w, http.StatusOK, b.issueLocked())
	})

	mux.HandleFunc("GET /api/users/me", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.Profile)
	}))

	mux.HandleFunc("GET /api/projects", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.Projects)
	}))

	mux.HandleFunc("POST /api/projects", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var p domain.Project
		_ = json.NewDecoder(r.Body).Decode(&p)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.Projects = append(b.Projects, &p)
		writeJSON(w, http.StatusCreated, &p)
	}))

	mux.HandleFunc("DELETE /api/projects/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.Projects[:0]
		for _, p := range b.Projects {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		b.Projects = kept
		writeJSON(w, http.StatusNoContent, nil)
	}))

	mux.HandleFunc("GET /api/projects/{id}/epics", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.Epics[r.PathValue("id")])
	}))

	mux.HandleFunc("POST /api/projects/{id}/epics", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var e domain.Epic
		_ = json.NewDecoder(r.Body).Decode(&e)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.Epics[r.PathValue("id")] = append(b.Epics[r.PathValue("id")], &e)
		writeJSON(w, http.StatusCreated, &e)
	}))

	mux.HandleFunc("PUT /api/epics/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var e domain.Epic
		_ = json.NewDecoder(r.Body).Decode(&e)
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, epics := range b.Epics {
			for i, have := range epics {
				if have.ID == id {
					e.ID = id
					epics[i] = &e
					writeJSON(w, http.StatusOK, &e)
					return
				}
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "epic not found"})
	}))

	mux.HandleFunc("DELETE /api/epics/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for pid, epics := range b.Epics {
			kept := epics[:0]
			for _, e := range epics {
				if e.ID != id {
					kept = append(kept, e)
				}
			}
			b.Epics[pid] = kept
		}
		writeJSON(w, http.StatusNoContent, nil)
	}))

	mux.HandleFunc("GET /api/projects/{id}/sprints", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.Sprints[r.PathValue("id")])
	}))

	mux.HandleFunc("POST /api/projects/{id}/sprints", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var sp domain.Sprint
		_ = json.NewDecoder(r.Body).Decode(&sp)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.Sprints[r.PathValue("id")] = append(b.Sprints[r.PathValue("id")], &sp)
		writeJSON(w, http.StatusCreated, &sp)
	}))

	mux.HandleFunc("GET /api/projects/{id}/items", b.authed(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, b.Items[r.PathValue("id")])
	}))

	mux.HandleFunc("POST /api/projects/{id}/items", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var it domain.Item
		_ = json.NewDecoder(r.Body).Decode(&it)
		b.mu.Lock()
		defer b.mu.Unlock()
		b.Items[r.PathValue("id")] = append(b.Items[r.PathValue("id")], &it)
		writeJSON(w, http.StatusCreated, &it)
	}))

	mux.HandleFunc("PATCH /api/items/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		_ = json.NewDecoder(r.Body).Decode(&fields)
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, items := range b.Items {
			for _, it := range items {
				if it.ID != id {
					continue
				}
				if v, ok := fields["status"].(string); ok {
					it.Status = domain.ItemStatus(v)
				}
				if v, ok := fields["priority"].(string); ok {
					it.Priority = domain.ItemPriority(v)
				}
				if v, ok := fields["title"].(string); ok {
					it.Title = v
				}
				writeJSON(w, http.StatusOK, it)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	}))

	mux.HandleFunc("DELETE /api/items/{id}", b.authed(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for pid, items := range b.Items {
			kept := items[:0]
			for _, it := range items {
				if it.ID != id {
					kept = append(kept, it)
				}
			}
			b.Items[pid] = kept
		}
		writeJSON(w, http.StatusNoContent, nil)
	}))

	return mux
}

// AddItem registers an extra item for a project while the server is live.
// Direct writes to the exported collections are only safe before the first
// authenticated call; afterwards handlers read them under the mutex.
func (b *FakeBackend) AddItem(projectID string, it *domain.Item) {
	b.mu.Lock()
	b.Items[projectID] = append(b.Items[projectID], it)
	b.mu.Unlock()
}

// FailReads makes every authenticated GET return 500, leaving writes and the
// auth endpoints untouched.
func (b *FakeBackend) FailReads(fail bool) {
	b.mu.Lock()
	b.failReads = fail
	b.mu.Unlock()
}

// SetRefreshDelay slows the refresh exchange down, widening the window for
// concurrent-refresh tests.
func (b *FakeBackend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	b.refreshDelay = d
	b.mu.Unlock()
}

// SetReadDelay slows authenticated GETs down so tests can observe LOADING
// phases before data commits.
func (b *FakeBackend) SetReadDelay(d time.Duration) {
	b.mu.Lock()
	b.readDelay = d
	b.mu.Unlock()
}

func (b *FakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token invalid"})
			return
		}
		if r.Method == http.MethodGet {
			b.mu.Lock()
			delay, fail := b.readDelay, b.failReads
			b.mu.Unlock()
			if delay > 0 {
				time.Sleep(delay)
			}
			if fail {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backend exploded"})
				return
			}
		}
		next(w, r)
	}
}
