package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/pipeline"
	"github.com/pzaremba/sprintdesk/internal/store"
	"github.com/spf13/cobra"
)

func newBoardCmd(app *App) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Interactive backlog board grouped by epic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("board needs a terminal; use 'sprintdesk item list' instead")
			}
			if err := app.requireSession(); err != nil {
				return err
			}
			spec, err := filters.toSpec()
			if err != nil {
				return err
			}

			m := newBoardModel(app, spec)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	addFilterFlags(cmd.Flags(), &filters)
	return cmd
}

type boardKeyMap struct {
	Sort      key.Binding
	Order     key.Binding
	HideEmpty key.Binding
	Reload    key.Binding
	Quit      key.Binding
}

func defaultBoardKeyMap() boardKeyMap {
	return boardKeyMap{
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Order:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		HideEmpty: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "empty epics")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// storeChangedMsg arrives whenever the project store commits new data.
type storeChangedMsg struct{}

// syncDoneMsg reports the outcome of a background store sync.
type syncDoneMsg struct{ err error }

// boardModel renders the active project's items grouped by epic and reacts
// to store changes pushed from the reload cascade.
type boardModel struct {
	app  *App
	spec pipeline.Spec
	keys boardKeyMap

	vp      viewport.Model
	spin    spinner.Model
	width   int
	height  int
	ready   bool
	syncing bool
	err     error

	changes chan struct{}

	quitting bool
}

func newBoardModel(app *App, spec pipeline.Spec) boardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(formatter.ColorHeader)

	m := boardModel{
		app:     app,
		spec:    spec,
		keys:    defaultBoardKeyMap(),
		vp:      viewport.New(0, 0),
		spin:    sp,
		changes: make(chan struct{}, 1),
	}
	// Coalescing send: a pending notification already covers this change.
	app.Store.OnChange(func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	})
	return m
}

func (m boardModel) listenForChanges() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		<-ch
		return storeChangedMsg{}
	}
}

func (m boardModel) syncCmd() tea.Cmd {
	app := m.app
	return func() tea.Msg {
		return syncDoneMsg{err: app.Store.Sync(context.Background())}
	}
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.listenForChanges(), m.syncCmd(), m.spin.Tick)
}

// loading reports whether any collection of the active project is still
// on its way in.
func (m boardModel) loading() bool {
	_, itemPhase := m.app.Store.Items()
	_, epicPhase := m.app.Store.Epics()
	return itemPhase == store.PhaseLoading || epicPhase == store.PhaseLoading
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-4, 1)
		m.ready = true
		m.vp.SetContent(m.renderBoard())
		return m, nil

	case storeChangedMsg:
		m.vp.SetContent(m.renderBoard())
		if m.loading() {
			return m, tea.Batch(m.listenForChanges(), m.spin.Tick)
		}
		return m, m.listenForChanges()

	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		m.vp.SetContent(m.renderBoard())
		return m, nil

	case spinner.TickMsg:
		if !m.loading() && !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.vp.SetContent(m.renderBoard())
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Sort):
			m.spec.SortBy = nextSortField(m.spec.SortBy)
			m.vp.SetContent(m.renderBoard())
			return m, nil

		case key.Matches(msg, m.keys.Order):
			if m.spec.SortOrder == pipeline.OrderAsc {
				m.spec.SortOrder = pipeline.OrderDesc
			} else {
				m.spec.SortOrder = pipeline.OrderAsc
			}
			m.vp.SetContent(m.renderBoard())
			return m, nil

		case key.Matches(msg, m.keys.HideEmpty):
			m.spec.HideEmptyGroups = !m.spec.HideEmptyGroups
			m.vp.SetContent(m.renderBoard())
			return m, nil

		case key.Matches(msg, m.keys.Reload):
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			return m, tea.Batch(m.syncCmd(), m.spin.Tick)
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func nextSortField(f pipeline.SortField) pipeline.SortField {
	switch f {
	case pipeline.SortNone:
		return pipeline.SortStatus
	case pipeline.SortStatus:
		return pipeline.SortPriority
	default:
		return pipeline.SortNone
	}
}

func (m boardModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return formatter.StyleDim.Render("loading...")
	}
	return m.renderHeader() + "\n" + m.vp.View() + "\n" + m.renderStatusBar()
}

func (m boardModel) renderHeader() string {
	title := formatter.StylePurple.Render("sprintdesk")
	if p := m.app.Store.Current(); p != nil {
		title += "  " + formatter.StyleDim.Render("›") + " " + formatter.StyleFg.Render(p.Name)
	}
	sep := formatter.StyleDim.Render(strings.Repeat("─", max(m.width, 20)))
	return title + "\n" + sep
}

func (m boardModel) renderStatusBar() string {
	hints := []string{
		formatter.StyleDim.Render(fmt.Sprintf("sort: %s/%s",
			strings.ToLower(string(m.spec.SortBy)), strings.ToLower(string(m.spec.SortOrder)))),
	}
	for _, b := range []key.Binding{m.keys.Sort, m.keys.Order, m.keys.HideEmpty, m.keys.Reload, m.keys.Quit} {
		hints = append(hints, formatter.StyleDim.Render(b.Help().Key+": "+b.Help().Desc))
	}
	if m.syncing {
		hints = append(hints, formatter.StyleYellow.Render("reloading..."))
	}
	if m.err != nil {
		hints = append(hints, formatter.StyleRed.Render(m.err.Error()))
	}
	sep := formatter.StyleDim.Render(strings.Repeat("─", max(m.width, 20)))
	return sep + "\n" + strings.Join(hints, "  ")
}

func (m boardModel) renderBoard() string {
	items, itemPhase := m.app.Store.Items()
	epics, epicPhase := m.app.Store.Epics()

	if m.app.Store.Current() == nil {
		return formatter.StyleDim.Render("No project selected.")
	}
	if itemPhase == store.PhaseLoading || epicPhase == store.PhaseLoading {
		return m.spin.View() + formatter.StyleDim.Render(" Loading project data...")
	}

	var b strings.Builder
	for _, g := range pipeline.GroupAll(items, epics, m.spec) {
		if !g.ShowGroup {
			continue
		}
		name := "No Epic"
		if g.Epic != nil {
			name = g.Epic.Name
		}
		b.WriteString(formatter.Header(name))
		b.WriteString("\n")
		if len(g.Items) == 0 {
			b.WriteString(formatter.StyleDim.Render("  (no items)"))
			b.WriteString("\n\n")
			continue
		}
		rows := make([][]string, 0, len(g.Items))
		for _, it := range g.Items {
			rows = append(rows, itemRow(it))
		}
		b.WriteString(formatter.RenderTable(
			[]string{"ID", "Title", "Type", "Status", "Priority", "Due"}, rows))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return formatter.StyleDim.Render("Nothing to show.")
	}
	return b.String()
}
