package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRank(t *testing.T) {
	assert.Equal(t, 0, StatusRank(StatusToDo))
	assert.Equal(t, 3, StatusRank(StatusDone))
	assert.Equal(t, -1, StatusRank(ItemStatus("BLOCKED")))
	assert.Equal(t, -1, StatusRank(""))
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityRank(PriorityOptional))
	assert.Equal(t, 3, PriorityRank(PriorityCritical))
	assert.Equal(t, -1, PriorityRank(ItemPriority("URGENT")))
}

func TestAddSubtask_AssignsUniqueIDs(t *testing.T) {
	it := &Item{}
	a := it.AddSubtask("write tests")
	b := it.AddSubtask("write docs")

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
	assert.Len(t, it.Subtasks, 2)
	assert.False(t, it.Subtasks[0].Done)
}

func TestAddAcceptanceCriterion(t *testing.T) {
	it := &Item{}
	id := it.AddAcceptanceCriterion("loads under 200ms")

	assert.Len(t, it.AcceptanceCriteria, 1)
	assert.Equal(t, id, it.AcceptanceCriteria[0].ID)
	assert.Equal(t, "loads under 200ms", it.AcceptanceCriteria[0].Text)
}

func TestInSprint(t *testing.T) {
	s1 := "sprint-1"
	with := &Item{SprintID: &s1}
	without := &Item{}

	assert.True(t, with.InSprint("sprint-1"))
	assert.False(t, with.InSprint("sprint-2"))
	assert.True(t, with.InSprint(""), "empty filter imposes no restriction")
	assert.True(t, without.InSprint(""))
	assert.False(t, without.InSprint("sprint-1"), "sprintless item never matches a set filter")
}
