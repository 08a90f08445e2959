// Package store maintains the authenticated user's project list, the active
// project, and the project-scoped collections (epics, sprints, items), with
// the invalidation ordering views depend on: a project switch resets every
// dependent collection before any reload commits.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/session"
	"github.com/pzaremba/sprintdesk/internal/state"
)

// LoadPhase is the lifecycle state of one dependent collection.
// EMPTY doubles as the "skeleton while null" signal for views.
type LoadPhase string

const (
	PhaseEmpty   LoadPhase = "EMPTY"
	PhaseLoading LoadPhase = "LOADING"
	PhaseLoaded  LoadPhase = "LOADED"
)

// collection pairs a slice of entities with its load phase.
type collection[T any] struct {
	data  []*T
	phase LoadPhase
}

func (c *collection[T]) reset() {
	c.data = nil
	c.phase = PhaseEmpty
}

// commit installs freshly fetched data.
func (c *collection[T]) commit(data []*T) {
	c.data = data
	c.phase = PhaseLoaded
}

// fail reverts a LOADING marker after a failed fetch. Previously loaded data
// stays visible (stale-but-valid) rather than blanking the view.
func (c *collection[T]) fail() {
	if c.data != nil {
		c.phase = PhaseLoaded
		return
	}
	c.phase = PhaseEmpty
}

// Store is the client-side project data store.
type Store struct {
	api     api.Client
	session *session.Store
	state   *state.Store

	mu       sync.Mutex
	projects collection[domain.Project]
	current  *domain.Project

	epics   collection[domain.Epic]
	sprints collection[domain.Sprint]
	items   collection[domain.Item]

	// generation increments on every selection change and on reset; an
	// in-flight reload tagged with an older generation must not commit.
	generation uint64

	listeners []func()
}

// New creates a Store bound to the session lifecycle: entering AUTHENTICATED
// loads the project list, entering ANONYMOUS clears everything synchronously.
func New(client api.Client, sess *session.Store, st *state.Store) *Store {
	s := &Store{
		api:     client,
		session: sess,
		state:   st,
	}
	s.projects.reset()
	s.epics.reset()
	s.sprints.reset()
	s.items.reset()

	sess.Subscribe(func(p session.Phase) {
		switch p {
		case session.PhaseAuthenticated:
			go func() { _ = s.LoadProjects(context.Background()) }()
		case session.PhaseAnonymous:
			s.Reset()
		}
	})
	return s
}

// OnChange registers a callback invoked after every committed state change.
// Callbacks run without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) changed() {
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Reset clears all store state, including the active project. Responses from
// requests still in flight are discarded by the generation bump.
func (s *Store) Reset() {
	s.mu.Lock()
	s.generation++
	s.projects.reset()
	s.current = nil
	s.epics.reset()
	s.sprints.reset()
	s.items.reset()
	s.mu.Unlock()
	s.changed()
}

// Projects returns the project list and its load phase.
func (s *Store) Projects() ([]*domain.Project, LoadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.data, s.projects.phase
}

// Current returns the active project, or nil when none is selected.
func (s *Store) Current() *domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Epics returns the epic collection and its load phase.
func (s *Store) Epics() ([]*domain.Epic, LoadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epics.data, s.epics.phase
}

// Sprints returns the sprint collection and its load phase.
func (s *Store) Sprints() ([]*domain.Sprint, LoadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sprints.data, s.sprints.phase
}

// Items returns the backlog item collection and its load phase.
func (s *Store) Items() ([]*domain.Item, LoadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.data, s.items.phase
}

// LoadProjects fetches the project list. It is cheap and idempotent, so the
// session layer re-triggers it on every successful refresh. When no project
// is active yet, the remembered selection is resolved afterwards.
func (s *Store) LoadProjects(ctx context.Context) error {
	s.mu.Lock()
	gen := s.generation
	if s.projects.data == nil {
		s.projects.phase = PhaseLoading
	}
	s.mu.Unlock()

	var projects []*domain.Project
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var err error
		projects, err = s.api.ListProjects(ctx)
		return err
	})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.projects.fail()
		s.mu.Unlock()
		return err
	}
	s.projects.commit(projects)
	needSelect := s.current == nil
	s.mu.Unlock()
	s.changed()

	if needSelect {
		return s.SelectAuto(ctx)
	}
	return nil
}

// Sync brings the whole store up to date synchronously: project list,
// selection, and the three dependent collections. One-shot commands use it
// to render current data without racing the background cascade.
func (s *Store) Sync(ctx context.Context) error {
	if err := s.LoadProjects(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	gen := s.generation
	current := s.current
	s.mu.Unlock()
	if current == nil {
		return nil
	}

	s.reloadEpics(ctx, gen, current.ID)
	s.reloadSprints(ctx, gen, current.ID)
	s.reloadItems(ctx, gen, current.ID)
	return nil
}

// Select makes the project with the given id active, remembers the choice,
// and starts the cascade: dependent collections reset to EMPTY synchronously,
// then reload in parallel scoped to the new project.
func (s *Store) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	var target *domain.Project
	for _, p := range s.projects.data {
		if p.ID == id {
			target = p
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return fmt.Errorf("selecting project %q: %w", id, api.ErrNotFound)
	}
	s.mu.Unlock()

	if err := s.state.SetProjectID(ctx, id); err != nil {
		return err
	}
	s.activate(target)
	return nil
}

// SelectAuto resolves the active project without an explicit id: the
// remembered selection when it still exists, otherwise the first project in
// backend list order. An empty project list leaves the selection null.
func (s *Store) SelectAuto(ctx context.Context) error {
	remembered, _, err := s.state.ProjectID(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	var target *domain.Project
	for _, p := range s.projects.data {
		if p.ID == remembered {
			target = p
			break
		}
	}
	if target == nil && len(s.projects.data) > 0 {
		target = s.projects.data[0]
	}
	s.mu.Unlock()

	if target == nil {
		return nil
	}
	s.activate(target)
	return nil
}

// activate installs the project and fires the cascade. The reset happens
// before any reload starts so views never show a previous project's data.
func (s *Store) activate(p *domain.Project) {
	s.mu.Lock()
	s.current = p
	s.generation++
	gen := s.generation
	s.epics.reset()
	s.sprints.reset()
	s.items.reset()
	s.epics.phase = PhaseLoading
	s.sprints.phase = PhaseLoading
	s.items.phase = PhaseLoading
	s.mu.Unlock()
	s.changed()

	ctx := context.Background()
	go s.reloadEpics(ctx, gen, p.ID)
	go s.reloadSprints(ctx, gen, p.ID)
	go s.reloadItems(ctx, gen, p.ID)
}

// reloadEpics fetches epics for projectID and commits them only when the
// store is still on the same generation (last-selection-wins).
func (s *Store) reloadEpics(ctx context.Context, gen uint64, projectID string) {
	var epics []*domain.Epic
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var err error
		epics, err = s.api.ListEpics(ctx, projectID)
		return err
	})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.epics.fail()
		s.mu.Unlock()
		return
	}
	s.epics.commit(epics)
	s.mu.Unlock()
	s.changed()
}

func (s *Store) reloadSprints(ctx context.Context, gen uint64, projectID string) {
	var sprints []*domain.Sprint
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var err error
		sprints, err = s.api.ListSprints(ctx, projectID)
		return err
	})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.sprints.fail()
		s.mu.Unlock()
		return
	}
	s.sprints.commit(sprints)
	s.mu.Unlock()
	s.changed()
}

func (s *Store) reloadItems(ctx context.Context, gen uint64, projectID string) {
	var items []*domain.Item
	err := s.session.Do(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.api.ListItems(ctx, projectID)
		return err
	})

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.items.fail()
		s.mu.Unlock()
		return
	}
	s.items.commit(items)
	s.mu.Unlock()
	s.changed()
}

// currentID returns the active project id, or an error when none is set.
func (s *Store) currentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", fmt.Errorf("no active project")
	}
	return s.current.ID, nil
}
