package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubEntry is a checklist row belonging to an item: a subtask or an
// acceptance criterion.
type SubEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type Item struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        ItemType     `json:"itemType"`
	Status      ItemStatus   `json:"status"`
	Priority    ItemPriority `json:"priority"`

	// EpicID nil means the item is ungrouped and belongs to the synthetic
	// "No Epic" bucket.
	EpicID   *string    `json:"epicId"`
	SprintID *string    `json:"sprintId"`
	DueDate  *time.Time `json:"dueDate"`

	AcceptanceCriteria []SubEntry `json:"acceptanceCriteria"`
	Subtasks           []SubEntry `json:"subtasks"`
}

// NewSubEntry creates an unchecked checklist row with a fresh unique id.
func NewSubEntry(text string) SubEntry {
	return SubEntry{ID: uuid.New().String(), Text: text}
}

// AddSubtask appends a new unchecked subtask and returns its id.
func (it *Item) AddSubtask(text string) string {
	e := NewSubEntry(text)
	it.Subtasks = append(it.Subtasks, e)
	return e.ID
}

// AddAcceptanceCriterion appends a new unchecked acceptance criterion and
// returns its id.
func (it *Item) AddAcceptanceCriterion(text string) string {
	e := NewSubEntry(text)
	it.AcceptanceCriteria = append(it.AcceptanceCriteria, e)
	return e.ID
}

// InSprint reports whether the item is assigned to the given sprint.
// Items without a sprint never match a non-empty sprint id.
func (it *Item) InSprint(sprintID string) bool {
	if sprintID == "" {
		return true
	}
	return it.SprintID != nil && *it.SprintID == sprintID
}
