package store

import (
	"context"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/domain"
)

// Mutations follow one policy: perform the call, and on success reload the
// owning collection in full rather than patching locally. The extra round
// trip buys the guarantee that the client view matches server state after
// every mutation. A failed mutation surfaces its typed error and leaves
// local state untouched.

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.CreateProject(ctx, p)
	})
	if err != nil {
		return err
	}
	return s.LoadProjects(ctx)
}

func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.UpdateProject(ctx, p)
	})
	if err != nil {
		return err
	}
	return s.LoadProjects(ctx)
}

// DeleteProject removes a project. Deleting the active project clears the
// selection; SelectAuto picks the next survivor after the list reloads.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.DeleteProject(ctx, id)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	wasCurrent := s.current != nil && s.current.ID == id
	if wasCurrent {
		s.current = nil
		s.generation++
		s.epics.reset()
		s.sprints.reset()
		s.items.reset()
	}
	s.mu.Unlock()
	if wasCurrent {
		_ = s.state.ClearProjectID(ctx)
		s.changed()
	}
	return s.LoadProjects(ctx)
}

func (s *Store) CreateEpic(ctx context.Context, e *domain.Epic) error {
	if err := s.scopeToCurrent(&e.ProjectID); err != nil {
		return err
	}
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.CreateEpic(ctx, e)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindEpic)
	return nil
}

func (s *Store) UpdateEpic(ctx context.Context, e *domain.Epic) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.UpdateEpic(ctx, e)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindEpic)
	return nil
}

func (s *Store) DeleteEpic(ctx context.Context, id string) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.DeleteEpic(ctx, id)
	})
	if err != nil {
		return err
	}
	// Items referencing the epic move to the "No Epic" bucket server-side.
	s.reloadOwned(ctx, api.KindEpic)
	s.reloadOwned(ctx, api.KindItem)
	return nil
}

func (s *Store) CreateSprint(ctx context.Context, sp *domain.Sprint) error {
	if err := s.scopeToCurrent(&sp.ProjectID); err != nil {
		return err
	}
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.CreateSprint(ctx, sp)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindSprint)
	return nil
}

func (s *Store) UpdateSprint(ctx context.Context, sp *domain.Sprint) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.UpdateSprint(ctx, sp)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindSprint)
	return nil
}

func (s *Store) DeleteSprint(ctx context.Context, id string) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.DeleteSprint(ctx, id)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindSprint)
	s.reloadOwned(ctx, api.KindItem)
	return nil
}

func (s *Store) CreateItem(ctx context.Context, it *domain.Item) error {
	if err := s.scopeToCurrent(&it.ProjectID); err != nil {
		return err
	}
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.CreateItem(ctx, it)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindItem)
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, it *domain.Item) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.UpdateItem(ctx, it)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindItem)
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, api.KindItem)
	return nil
}

// PatchField is the one generic per-field mutation behind every edit
// surface: patch a single field on one entity, then reload the owning
// collection.
func (s *Store) PatchField(ctx context.Context, kind api.EntityKind, id, field string, value any) error {
	err := s.session.Do(ctx, func(ctx context.Context) error {
		return s.api.Patch(ctx, kind, id, map[string]any{field: value})
	})
	if err != nil {
		return err
	}
	s.reloadOwned(ctx, kind)
	return nil
}

// scopeToCurrent fills an empty project id with the active project's.
func (s *Store) scopeToCurrent(projectID *string) error {
	if *projectID != "" {
		return nil
	}
	id, err := s.currentID()
	if err != nil {
		return err
	}
	*projectID = id
	return nil
}

// reloadOwned refreshes the collection owning the mutated entity, scoped to
// the active project. A reload failure keeps the previous data (stale-but-
// valid); the mutation itself already succeeded.
func (s *Store) reloadOwned(ctx context.Context, kind api.EntityKind) {
	s.mu.Lock()
	gen := s.generation
	current := s.current
	s.mu.Unlock()
	if current == nil {
		if kind == api.KindProject {
			_ = s.LoadProjects(ctx)
		}
		return
	}

	switch kind {
	case api.KindProject:
		_ = s.LoadProjects(ctx)
	case api.KindEpic:
		s.reloadEpics(ctx, gen, current.ID)
	case api.KindSprint:
		s.reloadSprints(ctx, gen, current.ID)
	case api.KindItem:
		s.reloadItems(ctx, gen, current.ID)
	}
}
