package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pzaremba/sprintdesk/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusBadge returns a colored status marker such as "● IN_PROGRESS".
func StatusBadge(s domain.ItemStatus) string {
	switch s {
	case domain.StatusToDo:
		return StyleDim.Render("● TO_DO")
	case domain.StatusInProgress:
		return StyleBlue.Render("● IN_PROGRESS")
	case domain.StatusReview:
		return StyleYellow.Render("● REVIEW")
	case domain.StatusDone:
		return StyleGreen.Render("● DONE")
	default:
		return StyleDim.Render("● " + string(s))
	}
}

// PriorityBadge returns a colored priority marker.
func PriorityBadge(p domain.ItemPriority) string {
	switch p {
	case domain.PriorityCritical:
		return StyleRed.Render(string(p))
	case domain.PriorityEssential:
		return StyleYellow.Render(string(p))
	case domain.PriorityBeneficial:
		return StyleBlue.Render(string(p))
	case domain.PriorityOptional:
		return StyleDim.Render(string(p))
	default:
		return StyleDim.Render(string(p))
	}
}

// TypeLabel returns a colored item type label.
func TypeLabel(t domain.ItemType) string {
	switch t {
	case domain.TypeBug:
		return StyleRed.Render("BUG")
	case domain.TypeUserStory:
		return StyleGreen.Render("STORY")
	case domain.TypeDocumentation:
		return StylePurple.Render("DOCS")
	default:
		return StyleFg.Render("TASK")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// ShortID truncates a UUID to its leading 8 characters for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
