package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pzaremba/sprintdesk/internal/domain"
)

var fixtureCounter atomic.Int64

func nextN() int64 { return fixtureCounter.Add(1) }

// Project options

func NewTestProject(name string) *domain.Project {
	return &domain.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: fmt.Sprintf("test project %d", nextN()),
	}
}

func NewTestEpic(projectID, name string) *domain.Epic {
	return &domain.Epic{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
	}
}

func NewTestSprint(projectID, name string) *domain.Sprint {
	return &domain.Sprint{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
	}
}

// Item options
type ItemOption func(*domain.Item)

func WithStatus(s domain.ItemStatus) ItemOption {
	return func(it *domain.Item) { it.Status = s }
}

func WithPriority(p domain.ItemPriority) ItemOption {
	return func(it *domain.Item) { it.Priority = p }
}

func WithType(t domain.ItemType) ItemOption {
	return func(it *domain.Item) { it.Type = t }
}

func WithEpic(epicID string) ItemOption {
	return func(it *domain.Item) { it.EpicID = &epicID }
}

func WithSprint(sprintID string) ItemOption {
	return func(it *domain.Item) { it.SprintID = &sprintID }
}

func NewTestItem(projectID, title string, opts ...ItemOption) *domain.Item {
	it := &domain.Item{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     title,
		Type:      domain.TypeTask,
		Status:    domain.StatusToDo,
		Priority:  domain.PriorityBeneficial,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}
