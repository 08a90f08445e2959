package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/pzaremba/sprintdesk/internal/api"
	"github.com/pzaremba/sprintdesk/internal/cli/formatter"
	"github.com/pzaremba/sprintdesk/internal/domain"
	"github.com/pzaremba/sprintdesk/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newItemCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage backlog items of the active project",
	}
	cmd.AddCommand(
		newItemListCmd(app),
		newItemAddCmd(app),
		newItemSetCmd(app),
		newItemRmCmd(app),
	)
	return cmd
}

// filterFlags mirrors the pipeline spec on the command line. The only/skip
// lists translate to the explicit-false filter maps: --status only shows the
// named values, --skip-status hides them, everything else stays visible.
type filterFlags struct {
	sortBy     string
	sortOrder  string
	types      []string
	statuses   []string
	priorities []string
	sprint     string
	hideEmpty  bool
}

// addFilterFlags registers the shared view flags on a flag set.
func addFilterFlags(fs *pflag.FlagSet, f *filterFlags) {
	fs.StringVar(&f.sortBy, "sort", "none", "sort field: none, status, priority")
	fs.StringVar(&f.sortOrder, "order", "asc", "sort order: asc, desc")
	fs.StringSliceVar(&f.types, "type", nil, "show only these item types")
	fs.StringSliceVar(&f.statuses, "status", nil, "show only these statuses")
	fs.StringSliceVar(&f.priorities, "priority", nil, "show only these priorities")
	fs.StringVar(&f.sprint, "sprint", "", "show only items in this sprint")
	fs.BoolVar(&f.hideEmpty, "hide-empty", false, "hide epics with no visible items")
}

// onlyFilter builds an explicit-false map that admits exactly the named
// values. An empty list yields a nil map, which admits everything.
func onlyFilter[K ~string](order []K, only []string) (map[K]bool, error) {
	if len(only) == 0 {
		return nil, nil
	}
	known := make(map[K]bool, len(order))
	for _, v := range order {
		known[v] = true
	}
	filter := make(map[K]bool, len(order))
	for _, v := range order {
		filter[v] = false
	}
	for _, raw := range only {
		val := K(strings.ToUpper(strings.TrimSpace(raw)))
		if !known[val] {
			return nil, fmt.Errorf("unknown value %q", raw)
		}
		filter[val] = true
	}
	return filter, nil
}

// toSpec validates the flag values and converts them to a pipeline spec.
func (f filterFlags) toSpec() (pipeline.Spec, error) {
	spec := pipeline.DefaultSpec()

	switch strings.ToLower(f.sortBy) {
	case "none":
		spec.SortBy = pipeline.SortNone
	case "status":
		spec.SortBy = pipeline.SortStatus
	case "priority":
		spec.SortBy = pipeline.SortPriority
	default:
		return spec, fmt.Errorf("unknown sort field %q", f.sortBy)
	}
	switch strings.ToLower(f.sortOrder) {
	case "asc":
		spec.SortOrder = pipeline.OrderAsc
	case "desc":
		spec.SortOrder = pipeline.OrderDesc
	default:
		return spec, fmt.Errorf("unknown sort order %q", f.sortOrder)
	}

	types := []domain.ItemType{domain.TypeUserStory, domain.TypeTask, domain.TypeDocumentation, domain.TypeBug}
	var err error
	if spec.TypeFilter, err = onlyFilter(types, f.types); err != nil {
		return spec, fmt.Errorf("--type: %w", err)
	}
	if spec.StatusFilter, err = onlyFilter(domain.StatusOrder, f.statuses); err != nil {
		return spec, fmt.Errorf("--status: %w", err)
	}
	if spec.PriorityFilter, err = onlyFilter(domain.PriorityOrder, f.priorities); err != nil {
		return spec, fmt.Errorf("--priority: %w", err)
	}

	spec.SprintFilter = f.sprint
	spec.HideEmptyGroups = f.hideEmpty
	return spec, nil
}

func newItemListCmd(app *App) *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items of the active project, grouped by epic",
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := filters.toSpec()
			if err != nil {
				return err
			}
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if app.Store.Current() == nil {
				return fmt.Errorf("no project selected")
			}

			items, _ := app.Store.Items()
			epics, _ := app.Store.Epics()
			out := cmd.OutOrStdout()
			for _, g := range pipeline.GroupAll(items, epics, spec) {
				if !g.ShowGroup {
					continue
				}
				name := "No Epic"
				if g.Epic != nil {
					name = g.Epic.Name
				}
				fmt.Fprintln(out, formatter.Header(name))
				if len(g.Items) == 0 {
					fmt.Fprintln(out, formatter.StyleDim.Render("  (no items)"))
					continue
				}
				rows := make([][]string, 0, len(g.Items))
				for _, it := range g.Items {
					rows = append(rows, itemRow(it))
				}
				fmt.Fprintln(out, formatter.RenderTable(
					[]string{"ID", "Title", "Type", "Status", "Priority", "Due"}, rows))
			}
			return nil
		},
	}

	addFilterFlags(cmd.Flags(), &filters)
	return cmd
}

func itemRow(it *domain.Item) []string {
	due := ""
	if it.DueDate != nil {
		due = it.DueDate.Format("2006-01-02")
	}
	return []string{
		formatter.ShortID(it.ID),
		it.Title,
		formatter.TypeLabel(it.Type),
		formatter.StatusBadge(it.Status),
		formatter.PriorityBadge(it.Priority),
		due,
	}
}

func newItemAddCmd(app *App) *cobra.Command {
	var (
		itemType, priority string
		epicID, sprintID   string
		description, due   string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create an item in the active project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it := &domain.Item{
				Title:       strings.Join(args, " "),
				Description: description,
				Type:        domain.ItemType(strings.ToUpper(itemType)),
				Status:      domain.StatusToDo,
				Priority:    domain.ItemPriority(strings.ToUpper(priority)),
			}
			if !domain.ValidItemTypes[string(it.Type)] {
				return fmt.Errorf("unknown item type %q", itemType)
			}
			if domain.PriorityRank(it.Priority) < 0 {
				return fmt.Errorf("unknown priority %q", priority)
			}
			if epicID != "" {
				it.EpicID = &epicID
			}
			if sprintID != "" {
				it.SprintID = &sprintID
			}
			if due != "" {
				d, err := time.Parse("2006-01-02", due)
				if err != nil {
					return fmt.Errorf("--due: expected YYYY-MM-DD, got %q", due)
				}
				it.DueDate = &d
			}

			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.CreateItem(cmd.Context(), it); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created item %s.\n", formatter.StyleGreen.Render(it.Title))
			return nil
		},
	}

	cmd.Flags().StringVarP(&itemType, "type", "t", "TASK", "item type")
	cmd.Flags().StringVarP(&priority, "priority", "p", "BENEFICIAL", "item priority")
	cmd.Flags().StringVar(&epicID, "epic", "", "epic id")
	cmd.Flags().StringVar(&sprintID, "sprint", "", "sprint id")
	cmd.Flags().StringVarP(&description, "description", "d", "", "item description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

// patchableFields maps the field names accepted by "item set" to the wire
// field and a parser for the value. Epic and sprint accept "-" to clear.
var patchableFields = map[string]struct {
	wire  string
	parse func(string) (any, error)
}{
	"title":       {"title", func(v string) (any, error) { return v, nil }},
	"description": {"description", func(v string) (any, error) { return v, nil }},
	"type": {"itemType", func(v string) (any, error) {
		v = strings.ToUpper(v)
		if !domain.ValidItemTypes[v] {
			return nil, fmt.Errorf("unknown item type %q", v)
		}
		return v, nil
	}},
	"status": {"status", func(v string) (any, error) {
		s := domain.ItemStatus(strings.ToUpper(v))
		if domain.StatusRank(s) < 0 {
			return nil, fmt.Errorf("unknown status %q", v)
		}
		return string(s), nil
	}},
	"priority": {"priority", func(v string) (any, error) {
		p := domain.ItemPriority(strings.ToUpper(v))
		if domain.PriorityRank(p) < 0 {
			return nil, fmt.Errorf("unknown priority %q", v)
		}
		return string(p), nil
	}},
	"epic":   {"epicId", parseClearable},
	"sprint": {"sprintId", parseClearable},
	"due": {"dueDate", func(v string) (any, error) {
		if v == "-" {
			return nil, nil
		}
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, fmt.Errorf("expected YYYY-MM-DD or '-', got %q", v)
		}
		return d.Format(time.RFC3339), nil
	}},
}

func parseClearable(v string) (any, error) {
	if v == "-" {
		return nil, nil
	}
	return v, nil
}

func newItemSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Update one field of an item",
		Long: "Update one field of an item without touching the rest.\n" +
			"Fields: title, description, type, status, priority, epic, sprint, due.\n" +
			"Use '-' as the value to clear epic, sprint, or due.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, field, raw := args[0], strings.ToLower(args[1]), args[2]
			spec, ok := patchableFields[field]
			if !ok {
				return fmt.Errorf("unknown field %q", field)
			}
			value, err := spec.parse(raw)
			if err != nil {
				return err
			}

			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.PatchField(cmd.Context(), api.KindItem, id, spec.wire, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s of item %s.\n", field, formatter.ShortID(id))
			return nil
		},
	}
}

func newItemRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.syncStore(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.DeleteItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %s.\n", formatter.ShortID(args[0]))
			return nil
		},
	}
}
