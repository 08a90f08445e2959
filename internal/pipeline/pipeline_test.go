package pipeline

import (
	"testing"

	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []*domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func namedItem(id string, opts ...testutil.ItemOption) *domain.Item {
	it := testutil.NewTestItem("proj-1", "item "+id, opts...)
	it.ID = id
	return it
}

func TestApply_SortByStatusAscending(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusDone)),
		namedItem("2", testutil.WithStatus(domain.StatusToDo)),
		namedItem("3", testutil.WithStatus(domain.StatusReview)),
	}

	spec := DefaultSpec()
	spec.SortBy = SortStatus

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"2", "3", "1"}, ids(res.Items))
	assert.True(t, res.ShowGroup)
}

func TestApply_SortByStatusDescending(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusDone)),
		namedItem("2", testutil.WithStatus(domain.StatusToDo)),
		namedItem("3", testutil.WithStatus(domain.StatusReview)),
	}

	spec := DefaultSpec()
	spec.SortBy = SortStatus
	spec.SortOrder = OrderDesc

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"1", "3", "2"}, ids(res.Items))
}

func TestApply_SortByPriority(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithPriority(domain.PriorityCritical)),
		namedItem("2", testutil.WithPriority(domain.PriorityOptional)),
		namedItem("3", testutil.WithPriority(domain.PriorityEssential)),
	}

	spec := DefaultSpec()
	spec.SortBy = SortPriority

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"2", "3", "1"}, ids(res.Items))
}

func TestApply_SortNoneKeepsIncomingOrder(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusDone)),
		namedItem("2", testutil.WithStatus(domain.StatusToDo)),
	}

	res := Apply(items, nil, DefaultSpec())
	assert.Equal(t, []string{"1", "2"}, ids(res.Items))
}

func TestApply_UnknownStatusSortsFirst(t *testing.T) {
	// A value outside the fixed ordering ranks -1 and lands ahead of all
	// known statuses.
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusToDo)),
		namedItem("2", testutil.WithStatus(domain.ItemStatus("BLOCKED"))),
	}

	spec := DefaultSpec()
	spec.SortBy = SortStatus

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"2", "1"}, ids(res.Items))
}

func TestApply_SortIsStable(t *testing.T) {
	items := []*domain.Item{
		namedItem("a", testutil.WithStatus(domain.StatusToDo)),
		namedItem("b", testutil.WithStatus(domain.StatusToDo)),
		namedItem("c", testutil.WithStatus(domain.StatusToDo)),
	}

	spec := DefaultSpec()
	spec.SortBy = SortStatus

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Items))
}

func TestApply_StatusFilterExplicitFalseExcludes(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusDone)),
		namedItem("2", testutil.WithStatus(domain.StatusToDo)),
		namedItem("3", testutil.WithStatus(domain.StatusReview)),
	}

	spec := DefaultSpec()
	spec.StatusFilter = map[domain.ItemStatus]bool{domain.StatusDone: false}

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"2", "3"}, ids(res.Items))
}

func TestApply_FiltersAreDefaultInclusive(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithType(domain.TypeBug)),
		namedItem("2", testutil.WithType(domain.TypeUserStory)),
	}

	spec := DefaultSpec()
	// Only USER_STORY has an entry, and it is true; BUG stays included.
	spec.TypeFilter = map[domain.ItemType]bool{domain.TypeUserStory: true}

	res := Apply(items, nil, spec)
	assert.Len(t, res.Items, 2)
}

func TestApply_TypeAndPriorityFilters(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithType(domain.TypeBug), testutil.WithPriority(domain.PriorityCritical)),
		namedItem("2", testutil.WithType(domain.TypeBug), testutil.WithPriority(domain.PriorityOptional)),
		namedItem("3", testutil.WithType(domain.TypeTask), testutil.WithPriority(domain.PriorityCritical)),
	}

	spec := DefaultSpec()
	spec.TypeFilter = map[domain.ItemType]bool{domain.TypeTask: false}
	spec.PriorityFilter = map[domain.ItemPriority]bool{domain.PriorityOptional: false}

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"1"}, ids(res.Items))
}

func TestApply_SprintFilter(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithSprint("sprint-1")),
		namedItem("2", testutil.WithSprint("sprint-2")),
		namedItem("3"), // no sprint
	}

	spec := DefaultSpec()
	spec.SprintFilter = "sprint-1"

	res := Apply(items, nil, spec)
	assert.Equal(t, []string{"1"}, ids(res.Items))
}

func TestApply_EmptySprintFilterKeepsSprintlessItems(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithSprint("sprint-1")),
		namedItem("2"),
	}

	res := Apply(items, nil, DefaultSpec())
	assert.Len(t, res.Items, 2)
}

func TestApply_GroupSelection(t *testing.T) {
	epicA := "epic-a"
	items := []*domain.Item{
		namedItem("1", testutil.WithEpic(epicA)),
		namedItem("2"), // ungrouped
		namedItem("3", testutil.WithEpic("epic-b")),
	}

	inA := Apply(items, &epicA, DefaultSpec())
	assert.Equal(t, []string{"1"}, ids(inA.Items))

	noEpic := Apply(items, nil, DefaultSpec())
	assert.Equal(t, []string{"2"}, ids(noEpic.Items))
}

func TestApply_HideEmptyGroups(t *testing.T) {
	epicA := "epic-a"
	items := []*domain.Item{
		namedItem("1"), // only ungrouped items
	}

	spec := DefaultSpec()
	spec.HideEmptyGroups = true

	res := Apply(items, &epicA, spec)
	assert.Empty(t, res.Items)
	assert.False(t, res.ShowGroup, "empty group should be suppressed")

	spec.HideEmptyGroups = false
	res = Apply(items, &epicA, spec)
	assert.Empty(t, res.Items)
	assert.True(t, res.ShowGroup, "empty group should render an empty body")
}

func TestApply_FilterThenSortDeterminism(t *testing.T) {
	items := []*domain.Item{
		namedItem("1", testutil.WithStatus(domain.StatusDone), testutil.WithSprint("s1")),
		namedItem("2", testutil.WithStatus(domain.StatusToDo), testutil.WithSprint("s1")),
		namedItem("3", testutil.WithStatus(domain.StatusInProgress)),
	}

	spec := DefaultSpec()
	spec.SortBy = SortStatus
	spec.SprintFilter = "s1"

	first := Apply(items, nil, spec)
	second := Apply(items, nil, spec)
	assert.Equal(t, ids(first.Items), ids(second.Items))
	assert.Equal(t, []string{"2", "1"}, ids(first.Items))
}

func TestGroupAll_AppendsNoEpicBucketLast(t *testing.T) {
	epics := []*domain.Epic{
		testutil.NewTestEpic("proj-1", "Auth"),
		testutil.NewTestEpic("proj-1", "Billing"),
	}
	items := []*domain.Item{
		namedItem("1", testutil.WithEpic(epics[0].ID)),
		namedItem("2"),
	}

	groups := GroupAll(items, epics, DefaultSpec())
	require.Len(t, groups, 3)
	assert.Equal(t, "Auth", groups[0].Epic.Name)
	assert.Equal(t, []string{"1"}, ids(groups[0].Items))
	assert.Nil(t, groups[2].Epic, "synthetic No Epic bucket is last")
	assert.Equal(t, []string{"2"}, ids(groups[2].Items))
}
