// Package pipeline is the deterministic filter/sort transform applied to
// backlog items before display. It owns no state: the same inputs always
// produce the same output.
package pipeline

import (
	"sort"

	"github.com/pzaremba/sprintdesk/internal/domain"
)

type SortField string

const (
	SortNone     SortField = "NONE"
	SortStatus   SortField = "STATUS"
	SortPriority SortField = "PRIORITY"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// Spec is the UI-owned filter and sort specification. Enum filter maps are
// default-inclusive: only an explicit false excludes a value.
type Spec struct {
	SortBy    SortField
	SortOrder SortOrder

	TypeFilter     map[domain.ItemType]bool
	StatusFilter   map[domain.ItemStatus]bool
	PriorityFilter map[domain.ItemPriority]bool

	// SprintFilter restricts output to one sprint; empty means no
	// restriction. Items without a sprint never match a non-empty filter.
	SprintFilter string

	HideEmptyGroups bool
}

// DefaultSpec returns a Spec that passes every item through unchanged.
func DefaultSpec() Spec {
	return Spec{SortBy: SortNone, SortOrder: OrderAsc}
}

// Result is the output of one group's pipeline run.
type Result struct {
	Items []*domain.Item

	// ShowGroup is false only when HideEmptyGroups is set and the group
	// came out empty; the caller then suppresses the group's container.
	ShowGroup bool
}

// included reports whether an explicit-false map admits the value.
// A nil map or an absent key imposes no restriction.
func included[K comparable](filter map[K]bool, value K) bool {
	on, present := filter[value]
	return !present || on
}

// Apply runs the pipeline for one epic group. epicID nil selects the
// synthetic "No Epic" bucket of ungrouped items.
func Apply(items []*domain.Item, epicID *string, spec Spec) Result {
	var selected []*domain.Item
	for _, it := range items {
		if !sameGroup(it.EpicID, epicID) {
			continue
		}
		selected = append(selected, it)
	}

	selected = sortItems(selected, spec)

	var out []*domain.Item
	for _, it := range selected {
		if !it.InSprint(spec.SprintFilter) {
			continue
		}
		if !included(spec.TypeFilter, it.Type) {
			continue
		}
		if !included(spec.StatusFilter, it.Status) {
			continue
		}
		if !included(spec.PriorityFilter, it.Priority) {
			continue
		}
		out = append(out, it)
	}

	return Result{
		Items:     out,
		ShowGroup: !spec.HideEmptyGroups || len(out) > 0,
	}
}

func sameGroup(have, want *string) bool {
	if want == nil {
		return have == nil
	}
	return have != nil && *have == *want
}

// sortItems orders by rank in the fixed status/priority sequences. Unknown
// values rank -1 and therefore sort ahead of all known ones; that quirk is
// kept on purpose for parity with the backend's own ordering. The sort is
// stable, and SortNone leaves the incoming order untouched.
func sortItems(items []*domain.Item, spec Spec) []*domain.Item {
	if spec.SortBy == SortNone || len(items) < 2 {
		return items
	}

	var rank func(*domain.Item) int
	switch spec.SortBy {
	case SortStatus:
		rank = func(it *domain.Item) int { return domain.StatusRank(it.Status) }
	case SortPriority:
		rank = func(it *domain.Item) int { return domain.PriorityRank(it.Priority) }
	default:
		return items
	}

	sorted := append([]*domain.Item(nil), items...)
	desc := spec.SortOrder == OrderDesc
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return rank(sorted[i]) > rank(sorted[j])
		}
		return rank(sorted[i]) < rank(sorted[j])
	})
	return sorted
}

// Group is one display bucket: an epic and its pipeline result.
type Group struct {
	Epic *domain.Epic // nil for the synthetic "No Epic" bucket
	Result
}

// GroupAll runs the pipeline for every epic in order, appending the
// synthetic "No Epic" bucket last.
func GroupAll(items []*domain.Item, epics []*domain.Epic, spec Spec) []Group {
	groups := make([]Group, 0, len(epics)+1)
	for _, e := range epics {
		id := e.ID
		groups = append(groups, Group{Epic: e, Result: Apply(items, &id, spec)})
	}
	groups = append(groups, Group{Result: Apply(items, nil, spec)})
	return groups
}
