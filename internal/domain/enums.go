package domain

type ItemType string

const (
	TypeUserStory     ItemType = "USER_STORY"
	TypeTask          ItemType = "TASK"
	TypeDocumentation ItemType = "DOCUMENTATION"
	TypeBug           ItemType = "BUG"
)

type ItemStatus string

const (
	StatusToDo       ItemStatus = "TO_DO"
	StatusInProgress ItemStatus = "IN_PROGRESS"
	StatusReview     ItemStatus = "REVIEW"
	StatusDone       ItemStatus = "DONE"
)

type ItemPriority string

const (
	PriorityOptional   ItemPriority = "OPTIONAL"
	PriorityBeneficial ItemPriority = "BENEFICIAL"
	PriorityEssential  ItemPriority = "ESSENTIAL"
	PriorityCritical   ItemPriority = "CRITICAL"
)

// StatusOrder is the canonical display ordering for item statuses.
var StatusOrder = []ItemStatus{StatusToDo, StatusInProgress, StatusReview, StatusDone}

// PriorityOrder is the canonical display ordering for item priorities.
var PriorityOrder = []ItemPriority{PriorityOptional, PriorityBeneficial, PriorityEssential, PriorityCritical}

// ValidItemTypes is the canonical set of accepted item type strings.
var ValidItemTypes = map[string]bool{
	"USER_STORY": true, "TASK": true, "DOCUMENTATION": true, "BUG": true,
}

// StatusRank returns the position of s in StatusOrder, or -1 when s is not a
// known status. Unknown values therefore sort ahead of all known ones.
func StatusRank(s ItemStatus) int {
	for i, v := range StatusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

// PriorityRank returns the position of p in PriorityOrder, or -1 when p is
// not a known priority.
func PriorityRank(p ItemPriority) int {
	for i, v := range PriorityOrder {
		if v == p {
			return i
		}
	}
	return -1
}
